package publishing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/datatypes"

	"github.com/creatorly/publisher/internal/adapt"
	"github.com/creatorly/publisher/internal/connector"
	"github.com/creatorly/publisher/internal/dispatch"
	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/queue"
)

const defaultBatchPause = 2 * time.Second

// PublishRequest asks for one content item on a set of platforms.
type PublishRequest struct {
	ContentID    string
	WorkspaceID  string
	UserID       string
	Platforms    []string
	ScheduledFor *time.Time
}

// PlatformSuccess records one platform accepted for publishing.
type PlatformSuccess struct {
	Platform string `json:"platform"`
	JobID    string `json:"job_id"`
	PostID   string `json:"post_id"`
}

// PlatformFailure records one platform that could not be enqueued.
type PlatformFailure struct {
	Platform string `json:"platform"`
	Reason   string `json:"reason"`
}

// PublishResult is the aggregate outcome across platforms. Success means at
// least one platform was accepted; callers must inspect PublishedTo against
// Failed for the full picture.
type PublishResult struct {
	Success     bool              `json:"success"`
	PublishedTo []PlatformSuccess `json:"published_to"`
	Failed      []PlatformFailure `json:"failed"`
}

type BatchPublishRequest struct {
	ContentIDs   []string
	WorkspaceID  string
	UserID       string
	Platforms    []string
	ScheduledFor *time.Time
}

type BatchItemResult struct {
	ContentID string         `json:"content_id"`
	Result    *PublishResult `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Service turns publish requests into queued jobs and keeps the durable
// content/post records consistent with what it can observe synchronously.
// Delivery itself completes asynchronously inside the job queue.
type Service struct {
	contents   ContentStore
	posts      PostStore
	creds      CredentialStore
	adapter    Adapter
	queue      Enqueuer
	registry   *connector.Registry
	clock      clockwork.Clock
	batchPause time.Duration
}

var _ ServiceInterface = (*Service)(nil)

type ServiceOption func(s *Service)

func WithClock(c clockwork.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithBatchPause sets the pause between batch items, there to avoid bursting
// platform rate limits across many content items.
func WithBatchPause(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.batchPause = d
		}
	}
}

func NewService(contents ContentStore, posts PostStore, creds CredentialStore, adapter Adapter, q Enqueuer, registry *connector.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		contents:   contents,
		posts:      posts,
		creds:      creds,
		adapter:    adapter,
		queue:      q,
		registry:   registry,
		clock:      clockwork.NewRealClock(),
		batchPause: defaultBatchPause,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishContent enqueues one post_content job per target platform.
// Platforms fail individually (missing credentials, adaptation errors)
// without sinking the rest; on any success the content record moves to
// scheduled or published — meaning accepted for publishing, not delivered.
func (s *Service) PublishContent(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	content, err := s.contents.Get(ctx, req.ContentID)
	if err != nil {
		return nil, fmt.Errorf("load content %s: %w", req.ContentID, err)
	}

	priority := queue.PriorityHigh
	if req.ScheduledFor != nil {
		priority = queue.PriorityNormal
	}

	result := &PublishResult{}
	for _, platform := range req.Platforms {
		cred, err := s.creds.Get(ctx, req.UserID, req.WorkspaceID, platform)
		if err != nil {
			result.Failed = append(result.Failed, PlatformFailure{Platform: platform, Reason: fmt.Sprintf("resolve credentials: %v", err)})
			continue
		}
		if cred == nil {
			result.Failed = append(result.Failed, PlatformFailure{Platform: platform, Reason: fmt.Sprintf("%s is not connected", platform)})
			continue
		}

		adapted, err := s.adapter.Platform(content, platform)
		if err != nil {
			result.Failed = append(result.Failed, PlatformFailure{Platform: platform, Reason: err.Error()})
			continue
		}

		post, err := s.createPostRecord(ctx, content, req, platform, adapted)
		if err != nil {
			result.Failed = append(result.Failed, PlatformFailure{Platform: platform, Reason: err.Error()})
			continue
		}

		job := s.queue.Enqueue(queue.TypePostContent, &dispatch.PostContentData{
			ConnectorID: platform,
			PostID:      post.ID,
			Post: connector.PostContent{
				Text:      adapted.Text,
				MediaURLs: adapted.MediaURLs,
				Hashtags:  adapted.Hashtags,
			},
		}, queue.Options{
			UserID:       req.UserID,
			ConnectorID:  platform,
			Priority:     priority,
			ScheduledFor: req.ScheduledFor,
		})

		result.PublishedTo = append(result.PublishedTo, PlatformSuccess{
			Platform: platform,
			JobID:    job.ID,
			PostID:   post.ID,
		})
	}

	result.Success = len(result.PublishedTo) > 0
	if result.Success {
		if err := s.markContentAccepted(ctx, content.ID, req.ScheduledFor); err != nil {
			// jobs are already on the queue; report the record drift, don't undo
			log.Printf("[publish] content %s accepted but status update failed: %v", content.ID, err)
		}
	}
	return result, nil
}

func (s *Service) createPostRecord(ctx context.Context, content *models.Content, req PublishRequest, platform string, adapted *adapt.Adapted) (*models.PublishedPost, error) {
	payload, err := json.Marshal(adapted)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	post := &models.PublishedPost{
		ID:          uuid.NewString(),
		ContentID:   content.ID,
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Platform:    platform,
		Status:      models.PostStatusPending,
		Payload:     datatypes.JSON(payload),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post record: %w", err)
	}
	return post, nil
}

func (s *Service) markContentAccepted(ctx context.Context, contentID string, scheduledFor *time.Time) error {
	if scheduledFor != nil {
		return s.contents.SetPublishState(ctx, contentID, models.ContentStatusScheduled, nil, scheduledFor)
	}
	now := s.clock.Now()
	return s.contents.SetPublishState(ctx, contentID, models.ContentStatusPublished, &now, nil)
}

// BatchPublish publishes several content items sequentially with a pause
// between them. One item failing does not abort the rest.
func (s *Service) BatchPublish(ctx context.Context, req BatchPublishRequest) []BatchItemResult {
	results := make([]BatchItemResult, 0, len(req.ContentIDs))
	for i, contentID := range req.ContentIDs {
		if i > 0 && s.batchPause > 0 {
			select {
			case <-s.clock.After(s.batchPause):
			case <-ctx.Done():
				results = append(results, BatchItemResult{ContentID: contentID, Error: ctx.Err().Error()})
				continue
			}
		}

		item := BatchItemResult{ContentID: contentID}
		res, err := s.PublishContent(ctx, PublishRequest{
			ContentID:    contentID,
			WorkspaceID:  req.WorkspaceID,
			UserID:       req.UserID,
			Platforms:    req.Platforms,
			ScheduledFor: req.ScheduledFor,
		})
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = res
		}
		results = append(results, item)
	}
	return results
}

// RetryFailedPost re-enqueues a failed post at high priority using the
// payload captured when it was first adapted.
func (s *Service) RetryFailedPost(ctx context.Context, postID string) (*queue.Job, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", postID, err)
	}

	var adapted adapt.Adapted
	if err := json.Unmarshal(post.Payload, &adapted); err != nil {
		return nil, fmt.Errorf("decode post %s payload: %w", postID, err)
	}

	if err := s.posts.SetStatus(ctx, post.ID, models.PostStatusRetrying, ""); err != nil {
		return nil, fmt.Errorf("mark post %s retrying: %w", postID, err)
	}

	job := s.queue.Enqueue(queue.TypePostContent, &dispatch.PostContentData{
		ConnectorID: post.Platform,
		PostID:      post.ID,
		Post: connector.PostContent{
			Text:      adapted.Text,
			MediaURLs: adapted.MediaURLs,
			Hashtags:  adapted.Hashtags,
		},
	}, queue.Options{
		UserID:      post.UserID,
		ConnectorID: post.Platform,
		Priority:    queue.PriorityHigh,
		Metadata:    map[string]string{"retry": "true", "post_id": post.ID},
	})
	return job, nil
}

// DeletePublishedPost removes the remote post best-effort and marks the local
// record deleted either way; the local record is authoritative for the UI.
func (s *Service) DeletePublishedPost(ctx context.Context, postID string) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", postID, err)
	}

	if post.PlatformPostID != "" {
		if conn, ok := s.registry.Active(post.Platform); ok {
			if err := conn.DeletePost(ctx, post.PlatformPostID); err != nil {
				log.Printf("[publish] remote delete of %s post %s failed: %v", post.Platform, post.PlatformPostID, err)
			}
		}
	}

	if err := s.posts.SetStatus(ctx, post.ID, models.PostStatusDeleted, ""); err != nil {
		return fmt.Errorf("mark post %s deleted: %w", postID, err)
	}
	return nil
}

// GetPublishedPosts lists post records for a workspace.
func (s *Service) GetPublishedPosts(ctx context.Context, workspaceID string, f PostFilter) ([]models.PublishedPost, error) {
	return s.posts.List(ctx, workspaceID, f)
}
