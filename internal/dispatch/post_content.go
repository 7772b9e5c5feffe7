// Package dispatch wires queue job types to connector operations. Handlers
// translate connector outcomes into job outcomes: configuration problems fail
// permanently, platform trouble fails retryably.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/creatorly/publisher/internal/connector"
	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/queue"
)

// PostContentData is the payload of a post_content job.
type PostContentData struct {
	ConnectorID string                `json:"connector_id"`
	PostID      string                `json:"post_id,omitempty"`
	Post        connector.PostContent `json:"post"`
}

// PostRecorder receives publish outcomes for the post record a job carries.
type PostRecorder interface {
	SetPublished(ctx context.Context, id, platformPostID, url string) error
	SetStatus(ctx context.Context, id, status, errMsg string) error
}

// NewPostContentHandler returns the handler for post_content jobs. A missing
// connector is a configuration problem and fails permanently; a connector
// that is present but unhealthy is expected to recover, so those failures
// stay retryable. posts may be nil when no record tracking is wanted.
func NewPostContentHandler(reg *connector.Registry, posts PostRecorder) queue.Handler {
	return queue.Handler{
		Handle: func(ctx context.Context, job *queue.Job) (any, error) {
			data, ok := job.Data.(*PostContentData)
			if !ok {
				return nil, queue.NonRetryable(errors.New("post_content: job data is not PostContentData"))
			}

			conn, err := activeConnector(ctx, reg, data.ConnectorID)
			if err != nil {
				return nil, err
			}

			result := conn.Post(ctx, data.Post)
			if !result.Success {
				// platform errors are usually transient: rate limits, momentary outages
				return nil, fmt.Errorf("post to %s failed: %s", data.ConnectorID, result.Error)
			}

			if posts != nil && data.PostID != "" {
				if err := posts.SetPublished(ctx, data.PostID, result.PostID, result.URL); err != nil {
					// the content is live; losing the record update must not fail the job
					log.Printf("[dispatch] record publish of post %s: %v", data.PostID, err)
				}
			}
			return result, nil
		},
		OnSuccess: func(job *queue.Job) {
			log.Printf("[dispatch] post_content job %s published via %s", job.ID, job.ConnectorID)
		},
		OnFailure: func(job *queue.Job, err error) {
			log.Printf("[dispatch] post_content job %s failed after %d attempts: %v", job.ID, job.Attempts, err)
			data, ok := job.Data.(*PostContentData)
			if !ok || posts == nil || data.PostID == "" {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if recErr := posts.SetStatus(ctx, data.PostID, models.PostStatusFailed, err.Error()); recErr != nil {
				log.Printf("[dispatch] record failure of post %s: %v", data.PostID, recErr)
			}
		},
	}
}

// activeConnector resolves a healthy connector, refreshing its token first
// when the stored one has expired. The queue does not do this for us.
func activeConnector(ctx context.Context, reg *connector.Registry, id string) (connector.Social, error) {
	conn, ok := reg.Active(id)
	if !ok {
		return nil, queue.NonRetryable(fmt.Errorf("no active connector for platform %q", id))
	}
	if !conn.IsConnected() {
		return nil, fmt.Errorf("connector %q is not connected", id)
	}
	if conn.IsTokenExpired() {
		// refresh endpoints can be transiently unavailable, keep this retryable
		if err := conn.RefreshToken(ctx); err != nil {
			return nil, fmt.Errorf("refresh %s token: %w", id, err)
		}
	}
	return conn, nil
}
