package publishing

import (
	"context"
	"time"

	"github.com/creatorly/publisher/internal/adapt"
	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/queue"
)

// ContentStore reads and updates content records.
type ContentStore interface {
	Get(ctx context.Context, id string) (*models.Content, error)
	SetPublishState(ctx context.Context, id, status string, publishedAt, scheduledFor *time.Time) error
}

// PostFilter narrows published-post listings.
type PostFilter struct {
	Platform string
	Status   string
	Limit    int
}

// PostStore persists per-platform post records.
type PostStore interface {
	Create(ctx context.Context, post *models.PublishedPost) error
	Get(ctx context.Context, id string) (*models.PublishedPost, error)
	SetStatus(ctx context.Context, id, status, errMsg string) error
	SetPublished(ctx context.Context, id, platformPostID, url string) error
	List(ctx context.Context, workspaceID string, f PostFilter) ([]models.PublishedPost, error)
}

// CredentialStore resolves stored platform credentials. A nil record with a
// nil error means the user never connected the platform.
type CredentialStore interface {
	Get(ctx context.Context, userID, workspaceID, platform string) (*models.ConnectorCredential, error)
}

// Adapter reshapes generic content into one platform's constraints.
type Adapter interface {
	Platform(content *models.Content, platform string) (*adapt.Adapted, error)
}

// Enqueuer is the slice of the job queue the service needs.
type Enqueuer interface {
	Enqueue(typ queue.Type, data any, opts queue.Options) *queue.Job
}

// ServiceInterface is the publishing surface exposed to application code.
type ServiceInterface interface {
	PublishContent(ctx context.Context, req PublishRequest) (*PublishResult, error)
	BatchPublish(ctx context.Context, req BatchPublishRequest) []BatchItemResult
	RetryFailedPost(ctx context.Context, postID string) (*queue.Job, error)
	DeletePublishedPost(ctx context.Context, postID string) error
	GetPublishedPosts(ctx context.Context, workspaceID string, f PostFilter) ([]models.PublishedPost, error)
}
