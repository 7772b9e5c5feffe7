package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"gorm.io/gorm"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

var _ publishing.CredentialStore = (*CredentialRepository)(nil)

// Get looks up the stored credential for one user on one platform in one
// workspace. A missing record is not an error: it means the user never
// connected the platform, and both return values are nil.
func (r *CredentialRepository) Get(ctx context.Context, userID, workspaceID, platform string) (*models.ConnectorCredential, error) {
	var cred models.ConnectorCredential
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND workspace_id = ? AND platform = ?", userID, workspaceID, platform).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// Upsert stores a credential, replacing any existing record for the same
// user/workspace/platform triple. Used after an OAuth handshake and after a
// token refresh.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *models.ConnectorCredential) error {
	existing, err := r.Get(ctx, cred.UserID, cred.WorkspaceID, cred.Platform)
	if err != nil {
		return err
	}
	if existing != nil {
		cred.ID = existing.ID
		cred.CreatedAt = existing.CreatedAt
	}
	if err := r.db.WithContext(ctx).Save(cred).Error; err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// Delete removes the credential for one user on one platform, disconnecting
// the integration. Deleting a credential that does not exist is a no-op.
func (r *CredentialRepository) Delete(ctx context.Context, userID, workspaceID, platform string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND workspace_id = ? AND platform = ?", userID, workspaceID, platform).
		Delete(&models.ConnectorCredential{}).Error; err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
