package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"gorm.io/gorm"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

var _ publishing.PostStore = (*PostRepository)(nil)

// Create inserts a new published-post record. Returns an error if the
// database operation fails.
func (r *PostRepository) Create(ctx context.Context, post *models.PublishedPost) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// Get retrieves a single post record by its ID. Returns the record if found,
// or an error if it doesn't exist or the database query fails.
func (r *PostRepository) Get(ctx context.Context, id string) (*models.PublishedPost, error) {
	var post models.PublishedPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post not found: %w", err)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// SetStatus updates the status and error message of a post identified by id.
// Both fields are written in a single operation so a retry cannot observe a
// half-updated record.
func (r *PostRepository) SetStatus(ctx context.Context, id, status, errMsg string) error {
	if err := r.db.WithContext(ctx).Model(&models.PublishedPost{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": status,
			"error":  errMsg,
		}).Error; err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// SetPublished marks a post as live on its platform, recording the
// platform-assigned id and public URL and clearing any previous error.
func (r *PostRepository) SetPublished(ctx context.Context, id, platformPostID, url string) error {
	if err := r.db.WithContext(ctx).Model(&models.PublishedPost{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           models.PostStatusPublished,
			"platform_post_id": platformPostID,
			"url":              url,
			"error":            "",
		}).Error; err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	return nil
}

// List retrieves the post records of a workspace, newest first, narrowed by
// the optional platform/status filter. A zero filter returns everything up
// to the default limit.
func (r *PostRepository) List(ctx context.Context, workspaceID string, f publishing.PostFilter) ([]models.PublishedPost, error) {
	q := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC")

	if f.Platform != "" {
		q = q.Where("platform = ?", f.Platform)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var posts []models.PublishedPost
	if err := q.Limit(limit).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}
