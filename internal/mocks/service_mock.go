package mocks

import (
	"context"

	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"github.com/creatorly/publisher/internal/queue"
	"github.com/stretchr/testify/mock"
)

type PublishingServiceMock struct {
	mock.Mock
}

var _ publishing.ServiceInterface = (*PublishingServiceMock)(nil)

func (m *PublishingServiceMock) PublishContent(ctx context.Context, req publishing.PublishRequest) (*publishing.PublishResult, error) {
	args := m.Called(ctx, req)

	result, _ := args.Get(0).(*publishing.PublishResult)
	return result, args.Error(1)
}

func (m *PublishingServiceMock) BatchPublish(ctx context.Context, req publishing.BatchPublishRequest) []publishing.BatchItemResult {
	args := m.Called(ctx, req)

	results, _ := args.Get(0).([]publishing.BatchItemResult)
	return results
}

func (m *PublishingServiceMock) RetryFailedPost(ctx context.Context, postID string) (*queue.Job, error) {
	args := m.Called(ctx, postID)

	job, _ := args.Get(0).(*queue.Job)
	return job, args.Error(1)
}

func (m *PublishingServiceMock) DeletePublishedPost(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *PublishingServiceMock) GetPublishedPosts(ctx context.Context, workspaceID string, f publishing.PostFilter) ([]models.PublishedPost, error) {
	args := m.Called(ctx, workspaceID, f)

	posts, _ := args.Get(0).([]models.PublishedPost)
	return posts, args.Error(1)
}

type JobReaderMock struct {
	mock.Mock
}

func (m *JobReaderMock) GetJob(id string) (*queue.Job, bool) {
	args := m.Called(id)

	job, _ := args.Get(0).(*queue.Job)
	return job, args.Bool(1)
}

func (m *JobReaderMock) JobsByUser(userID string) []*queue.Job {
	args := m.Called(userID)

	jobs, _ := args.Get(0).([]*queue.Job)
	return jobs
}

func (m *JobReaderMock) Stats() queue.Stats {
	args := m.Called()

	stats, _ := args.Get(0).(queue.Stats)
	return stats
}
