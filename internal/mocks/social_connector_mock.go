package mocks

import (
	"context"

	"github.com/creatorly/publisher/internal/connector"
	"github.com/stretchr/testify/mock"
)

type SocialConnectorMock struct {
	mock.Mock
}

var _ connector.Social = (*SocialConnectorMock)(nil)

func (m *SocialConnectorMock) Info() connector.Info {
	args := m.Called()

	info, _ := args.Get(0).(connector.Info)
	return info
}

func (m *SocialConnectorMock) ValidateCredentials(creds *connector.Credentials) error {
	args := m.Called(creds)
	return args.Error(0)
}

func (m *SocialConnectorMock) Connect(ctx context.Context, creds *connector.Credentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *SocialConnectorMock) Disconnect() {
	m.Called()
}

func (m *SocialConnectorMock) HealthCheck(ctx context.Context) connector.HealthCheck {
	args := m.Called(ctx)

	hc, _ := args.Get(0).(connector.HealthCheck)
	return hc
}

func (m *SocialConnectorMock) RefreshToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *SocialConnectorMock) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *SocialConnectorMock) IsTokenExpired() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *SocialConnectorMock) Post(ctx context.Context, post connector.PostContent) connector.PostResult {
	args := m.Called(ctx, post)

	result, _ := args.Get(0).(connector.PostResult)
	return result
}

func (m *SocialConnectorMock) UploadMedia(ctx context.Context, data []byte, kind connector.MediaKind) connector.MediaUploadResult {
	args := m.Called(ctx, data, kind)

	result, _ := args.Get(0).(connector.MediaUploadResult)
	return result
}

func (m *SocialConnectorMock) DeletePost(ctx context.Context, postID string) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

func (m *SocialConnectorMock) Metrics(ctx context.Context) (*connector.Metrics, error) {
	args := m.Called(ctx)

	metrics, _ := args.Get(0).(*connector.Metrics)
	return metrics, args.Error(1)
}

func (m *SocialConnectorMock) PostMetrics(ctx context.Context, postID string) (*connector.PostMetrics, error) {
	args := m.Called(ctx, postID)

	metrics, _ := args.Get(0).(*connector.PostMetrics)
	return metrics, args.Error(1)
}
