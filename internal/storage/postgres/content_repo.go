package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"gorm.io/gorm"
)

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

var _ publishing.ContentStore = (*ContentRepository)(nil)

// Create inserts a new content record. Returns an error if the database
// operation fails.
func (r *ContentRepository) Create(ctx context.Context, content *models.Content) error {
	if err := r.db.WithContext(ctx).Create(content).Error; err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// Get retrieves a single content record by its ID. Returns the record if
// found, or an error if it doesn't exist or the database query fails.
func (r *ContentRepository) Get(ctx context.Context, id string) (*models.Content, error) {
	var content models.Content
	if err := r.db.WithContext(ctx).First(&content, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content not found: %w", err)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	return &content, nil
}

// SetPublishState moves a content record through the publish lifecycle.
// published_at and scheduled_for may be nil; they are written as given so a
// re-publish can clear a stale schedule.
func (r *ContentRepository) SetPublishState(ctx context.Context, id, status string, publishedAt, scheduledFor *time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.Content{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        status,
			"published_at":  publishedAt,
			"scheduled_for": scheduledFor,
		}).Error; err != nil {
		return fmt.Errorf("set publish state: %w", err)
	}
	return nil
}

// ListByWorkspace retrieves all content belonging to a workspace, newest
// first. Returns a slice of records or an error if the query fails.
func (r *ContentRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]models.Content, error) {
	var contents []models.Content
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&contents).Error; err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return contents, nil
}
