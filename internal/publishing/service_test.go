package publishing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/creatorly/publisher/internal/adapt"
	"github.com/creatorly/publisher/internal/connector"
	"github.com/creatorly/publisher/internal/dispatch"
	"github.com/creatorly/publisher/internal/mocks"
	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"github.com/creatorly/publisher/internal/queue"
)

type serviceDeps struct {
	contents *mocks.ContentStoreMock
	posts    *mocks.PostStoreMock
	creds    *mocks.CredentialStoreMock
	adapter  *mocks.AdapterMock
	queue    *mocks.EnqueuerMock
	registry *connector.Registry
	clock    *clockwork.FakeClock
}

func newTestService(t *testing.T, opts ...publishing.ServiceOption) (*publishing.Service, *serviceDeps) {
	t.Helper()
	deps := &serviceDeps{
		contents: new(mocks.ContentStoreMock),
		posts:    new(mocks.PostStoreMock),
		creds:    new(mocks.CredentialStoreMock),
		adapter:  new(mocks.AdapterMock),
		queue:    new(mocks.EnqueuerMock),
		registry: connector.NewRegistry(),
		clock:    clockwork.NewFakeClock(),
	}
	opts = append([]publishing.ServiceOption{
		publishing.WithClock(deps.clock),
		publishing.WithBatchPause(0),
	}, opts...)
	svc := publishing.NewService(deps.contents, deps.posts, deps.creds, deps.adapter, deps.queue, deps.registry, opts...)
	return svc, deps
}

func testContent() *models.Content {
	return &models.Content{
		ID:          "content-1",
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Title:       "Launch day",
		Body:        "We are live!",
		Status:      models.ContentStatusDraft,
	}
}

func testRequest(platforms ...string) publishing.PublishRequest {
	return publishing.PublishRequest{
		ContentID:   "content-1",
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Platforms:   platforms,
	}
}

func connectedCred(platform string) *models.ConnectorCredential {
	return &models.ConnectorCredential{
		UserID:      "user-1",
		WorkspaceID: "ws-1",
		Platform:    platform,
		AccessToken: "tok",
	}
}

func TestPublishContent_PartialSuccess(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.contents.On("Get", ctx, "content-1").Return(testContent(), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "instagram").Return(connectedCred("instagram"), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "tiktok").Return(nil, nil)

	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.adapter.On("Platform", mock.Anything, "instagram").Return(&adapt.Adapted{Text: "hi", MediaURLs: []string{"u"}}, nil)

	deps.posts.On("Create", ctx, mock.Anything).Return(nil)
	deps.queue.On("Enqueue", queue.TypePostContent, mock.Anything, mock.Anything).Return(&queue.Job{ID: "job-1"})
	deps.contents.On("SetPublishState", ctx, "content-1", models.ContentStatusPublished, mock.Anything, (*time.Time)(nil)).Return(nil)

	result, err := svc.PublishContent(ctx, testRequest("twitter", "instagram", "tiktok"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.PublishedTo, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "tiktok", result.Failed[0].Platform)
	assert.Equal(t, "tiktok is not connected", result.Failed[0].Reason)
}

func TestPublishContent_ContentLoadError(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.contents.On("Get", ctx, "content-1").Return(nil, errors.New("content not found"))

	result, err := svc.PublishContent(ctx, testRequest("twitter"))

	require.Error(t, err)
	assert.Nil(t, result)
	deps.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishContent_ImmediateIsHighPriority(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.contents.On("Get", ctx, "content-1").Return(testContent(), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.posts.On("Create", ctx, mock.Anything).Return(nil)

	deps.queue.On("Enqueue", queue.TypePostContent, mock.Anything, mock.MatchedBy(func(opts queue.Options) bool {
		return opts.Priority == queue.PriorityHigh && opts.ScheduledFor == nil
	})).Return(&queue.Job{ID: "job-1"})

	now := deps.clock.Now()
	deps.contents.On("SetPublishState", ctx, "content-1", models.ContentStatusPublished, &now, (*time.Time)(nil)).Return(nil)

	result, err := svc.PublishContent(ctx, testRequest("twitter"))

	require.NoError(t, err)
	assert.True(t, result.Success)
	deps.contents.AssertExpectations(t)
	deps.queue.AssertExpectations(t)
}

func TestPublishContent_ScheduledIsNormalPriority(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	when := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	req := testRequest("twitter")
	req.ScheduledFor = &when

	deps.contents.On("Get", ctx, "content-1").Return(testContent(), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.posts.On("Create", ctx, mock.Anything).Return(nil)

	deps.queue.On("Enqueue", queue.TypePostContent, mock.Anything, mock.MatchedBy(func(opts queue.Options) bool {
		return opts.Priority == queue.PriorityNormal && opts.ScheduledFor == &when
	})).Return(&queue.Job{ID: "job-1"})

	deps.contents.On("SetPublishState", ctx, "content-1", models.ContentStatusScheduled, (*time.Time)(nil), &when).Return(nil)

	result, err := svc.PublishContent(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Success)
	deps.contents.AssertExpectations(t)
}

func TestPublishContent_AdaptationFailure(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.contents.On("Get", ctx, "content-1").Return(testContent(), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "instagram").Return(connectedCred("instagram"), nil)
	deps.adapter.On("Platform", mock.Anything, "instagram").Return(nil, errors.New("instagram requires media but content content-1 has none"))

	result, err := svc.PublishContent(ctx, testRequest("instagram"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Reason, "requires media")
	deps.posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	deps.contents.AssertNotCalled(t, "SetPublishState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishContent_PostRecordFailure(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.contents.On("Get", ctx, "content-1").Return(testContent(), nil)
	deps.creds.On("Get", ctx, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.posts.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

	result, err := svc.PublishContent(ctx, testRequest("twitter"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Reason, "create post record")
	deps.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchPublish_ContinuesPastFailures(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.contents.On("Get", ctx, "c1").Return(&models.Content{ID: "c1", WorkspaceID: "ws-1", UserID: "user-1", Body: "one"}, nil)
	deps.contents.On("Get", ctx, "c2").Return(nil, errors.New("content not found"))
	deps.contents.On("Get", ctx, "c3").Return(&models.Content{ID: "c3", WorkspaceID: "ws-1", UserID: "user-1", Body: "three"}, nil)

	deps.creds.On("Get", ctx, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.posts.On("Create", ctx, mock.Anything).Return(nil)
	deps.queue.On("Enqueue", queue.TypePostContent, mock.Anything, mock.Anything).Return(&queue.Job{ID: "job-1"})
	deps.contents.On("SetPublishState", ctx, mock.Anything, models.ContentStatusPublished, mock.Anything, (*time.Time)(nil)).Return(nil)

	results := svc.BatchPublish(ctx, publishing.BatchPublishRequest{
		ContentIDs:  []string{"c1", "c2", "c3"},
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Platforms:   []string{"twitter"},
	})

	require.Len(t, results, 3)
	require.NotNil(t, results[0].Result)
	assert.True(t, results[0].Result.Success)
	assert.Contains(t, results[1].Error, "content not found")
	require.NotNil(t, results[2].Result)
	assert.True(t, results[2].Result.Success)
}

func TestBatchPublish_PausesBetweenItems(t *testing.T) {
	svc, deps := newTestService(t, publishing.WithBatchPause(2*time.Second))
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		deps.contents.On("Get", ctx, id).Return(&models.Content{ID: id, WorkspaceID: "ws-1", UserID: "user-1", Body: "x"}, nil)
	}
	deps.creds.On("Get", ctx, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.posts.On("Create", ctx, mock.Anything).Return(nil)
	deps.queue.On("Enqueue", queue.TypePostContent, mock.Anything, mock.Anything).Return(&queue.Job{ID: "job-1"})
	deps.contents.On("SetPublishState", ctx, mock.Anything, models.ContentStatusPublished, mock.Anything, (*time.Time)(nil)).Return(nil)

	done := make(chan []publishing.BatchItemResult, 1)
	go func() {
		done <- svc.BatchPublish(ctx, publishing.BatchPublishRequest{
			ContentIDs:  []string{"c1", "c2"},
			WorkspaceID: "ws-1",
			UserID:      "user-1",
			Platforms:   []string{"twitter"},
		})
	}()

	// the second item must wait for the pause
	deps.clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("batch finished before the pause elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	deps.clock.Advance(2 * time.Second)
	results := <-done
	require.Len(t, results, 2)
	assert.True(t, results[0].Result.Success)
	assert.True(t, results[1].Result.Success)
}

func TestBatchPublish_CancelledContext(t *testing.T) {
	svc, deps := newTestService(t, publishing.WithBatchPause(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())

	deps.contents.On("Get", mock.Anything, "c1").Return(&models.Content{ID: "c1", WorkspaceID: "ws-1", UserID: "user-1", Body: "x"}, nil)
	deps.creds.On("Get", mock.Anything, "user-1", "ws-1", "twitter").Return(connectedCred("twitter"), nil)
	deps.adapter.On("Platform", mock.Anything, "twitter").Return(&adapt.Adapted{Text: "hi"}, nil)
	deps.posts.On("Create", mock.Anything, mock.Anything).Return(nil)
	deps.queue.On("Enqueue", queue.TypePostContent, mock.Anything, mock.Anything).Return(&queue.Job{ID: "job-1"})
	deps.contents.On("SetPublishState", mock.Anything, "c1", models.ContentStatusPublished, mock.Anything, (*time.Time)(nil)).Return(nil)

	cancel()
	results := svc.BatchPublish(ctx, publishing.BatchPublishRequest{
		ContentIDs:  []string{"c1", "c2"},
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Platforms:   []string{"twitter"},
	})

	require.Len(t, results, 2)
	// the first item runs before any pause, the second hits the cancelled wait
	require.NotNil(t, results[0].Result)
	assert.Contains(t, results[1].Error, context.Canceled.Error())
}

func TestRetryFailedPost(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.posts.On("Get", ctx, "post-1").Return(&models.PublishedPost{
		ID:       "post-1",
		UserID:   "user-1",
		Platform: "twitter",
		Status:   models.PostStatusFailed,
		Payload:  datatypes.JSON([]byte(`{"text":"hello again"}`)),
	}, nil)
	deps.posts.On("SetStatus", ctx, "post-1", models.PostStatusRetrying, "").Return(nil)

	deps.queue.On("Enqueue", queue.TypePostContent, mock.MatchedBy(func(data *dispatch.PostContentData) bool {
		return data.PostID == "post-1" && data.Post.Text == "hello again"
	}), mock.MatchedBy(func(opts queue.Options) bool {
		return opts.Priority == queue.PriorityHigh && opts.Metadata["retry"] == "true"
	})).Return(&queue.Job{ID: "job-9"})

	job, err := svc.RetryFailedPost(ctx, "post-1")

	require.NoError(t, err)
	assert.Equal(t, "job-9", job.ID)
	deps.posts.AssertExpectations(t)
	deps.queue.AssertExpectations(t)
}

func TestRetryFailedPost_BadPayload(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.posts.On("Get", ctx, "post-1").Return(&models.PublishedPost{
		ID:      "post-1",
		Payload: datatypes.JSON([]byte(`not json`)),
	}, nil)

	job, err := svc.RetryFailedPost(ctx, "post-1")

	require.Error(t, err)
	assert.Nil(t, job)
	deps.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeletePublishedPost_RemoteAndLocal(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	conn := new(mocks.SocialConnectorMock)
	conn.On("DeletePost", ctx, "tw-1").Return(nil)
	deps.registry.Register("twitter", func() connector.Social { return conn })
	_, err := deps.registry.Create("twitter")
	require.NoError(t, err)

	deps.posts.On("Get", ctx, "post-1").Return(&models.PublishedPost{
		ID:             "post-1",
		Platform:       "twitter",
		PlatformPostID: "tw-1",
		Status:         models.PostStatusPublished,
	}, nil)
	deps.posts.On("SetStatus", ctx, "post-1", models.PostStatusDeleted, "").Return(nil)

	require.NoError(t, svc.DeletePublishedPost(ctx, "post-1"))
	conn.AssertExpectations(t)
	deps.posts.AssertExpectations(t)
}

func TestDeletePublishedPost_RemoteFailureStillDeletesLocally(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	conn := new(mocks.SocialConnectorMock)
	conn.On("DeletePost", ctx, "tt-1").Return(errors.New("programmatic post deletion is not supported"))
	deps.registry.Register("tiktok", func() connector.Social { return conn })
	_, err := deps.registry.Create("tiktok")
	require.NoError(t, err)

	deps.posts.On("Get", ctx, "post-1").Return(&models.PublishedPost{
		ID:             "post-1",
		Platform:       "tiktok",
		PlatformPostID: "tt-1",
		Status:         models.PostStatusPublished,
	}, nil)
	deps.posts.On("SetStatus", ctx, "post-1", models.PostStatusDeleted, "").Return(nil)

	require.NoError(t, svc.DeletePublishedPost(ctx, "post-1"))
	deps.posts.AssertExpectations(t)
}

func TestDeletePublishedPost_NeverPublishedSkipsRemote(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.posts.On("Get", ctx, "post-1").Return(&models.PublishedPost{
		ID:       "post-1",
		Platform: "twitter",
		Status:   models.PostStatusFailed,
	}, nil)
	deps.posts.On("SetStatus", ctx, "post-1", models.PostStatusDeleted, "").Return(nil)

	require.NoError(t, svc.DeletePublishedPost(ctx, "post-1"))
}

func TestGetPublishedPosts(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	want := []models.PublishedPost{{ID: "p1"}, {ID: "p2"}}
	filter := publishing.PostFilter{Platform: "twitter", Limit: 10}
	deps.posts.On("List", ctx, "ws-1", filter).Return(want, nil)

	got, err := svc.GetPublishedPosts(ctx, "ws-1", filter)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}
