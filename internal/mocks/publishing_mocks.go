package mocks

import (
	"context"
	"time"

	"github.com/creatorly/publisher/internal/adapt"
	"github.com/creatorly/publisher/internal/models"
	"github.com/creatorly/publisher/internal/publishing"
	"github.com/creatorly/publisher/internal/queue"
	"github.com/stretchr/testify/mock"
)

type ContentStoreMock struct {
	mock.Mock
}

var _ publishing.ContentStore = (*ContentStoreMock)(nil)

func (m *ContentStoreMock) Get(ctx context.Context, id string) (*models.Content, error) {
	args := m.Called(ctx, id)

	content, _ := args.Get(0).(*models.Content)
	return content, args.Error(1)
}

func (m *ContentStoreMock) SetPublishState(ctx context.Context, id, status string, publishedAt, scheduledFor *time.Time) error {
	args := m.Called(ctx, id, status, publishedAt, scheduledFor)
	return args.Error(0)
}

type PostStoreMock struct {
	mock.Mock
}

var _ publishing.PostStore = (*PostStoreMock)(nil)

func (m *PostStoreMock) Create(ctx context.Context, post *models.PublishedPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *PostStoreMock) Get(ctx context.Context, id string) (*models.PublishedPost, error) {
	args := m.Called(ctx, id)

	post, _ := args.Get(0).(*models.PublishedPost)
	return post, args.Error(1)
}

func (m *PostStoreMock) SetStatus(ctx context.Context, id, status, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *PostStoreMock) SetPublished(ctx context.Context, id, platformPostID, url string) error {
	args := m.Called(ctx, id, platformPostID, url)
	return args.Error(0)
}

func (m *PostStoreMock) List(ctx context.Context, workspaceID string, f publishing.PostFilter) ([]models.PublishedPost, error) {
	args := m.Called(ctx, workspaceID, f)

	posts, _ := args.Get(0).([]models.PublishedPost)
	return posts, args.Error(1)
}

type CredentialStoreMock struct {
	mock.Mock
}

var _ publishing.CredentialStore = (*CredentialStoreMock)(nil)

func (m *CredentialStoreMock) Get(ctx context.Context, userID, workspaceID, platform string) (*models.ConnectorCredential, error) {
	args := m.Called(ctx, userID, workspaceID, platform)

	cred, _ := args.Get(0).(*models.ConnectorCredential)
	return cred, args.Error(1)
}

type AdapterMock struct {
	mock.Mock
}

var _ publishing.Adapter = (*AdapterMock)(nil)

func (m *AdapterMock) Platform(content *models.Content, platform string) (*adapt.Adapted, error) {
	args := m.Called(content, platform)

	adapted, _ := args.Get(0).(*adapt.Adapted)
	return adapted, args.Error(1)
}

type EnqueuerMock struct {
	mock.Mock
}

var _ publishing.Enqueuer = (*EnqueuerMock)(nil)

func (m *EnqueuerMock) Enqueue(typ queue.Type, data any, opts queue.Options) *queue.Job {
	args := m.Called(typ, data, opts)

	job, _ := args.Get(0).(*queue.Job)
	return job
}
