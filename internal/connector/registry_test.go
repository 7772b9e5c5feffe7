package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSocial is the minimal Social used to exercise the registry.
type stubSocial struct {
	Base
	serial int
}

func newStubSocial(id string, serial int) *stubSocial {
	return &stubSocial{Base: NewBase(Info{ID: id}, nil), serial: serial}
}

func (s *stubSocial) ValidateCredentials(creds *Credentials) error { return nil }

func (s *stubSocial) Connect(ctx context.Context, creds *Credentials) error {
	s.SetCredentials(creds)
	return nil
}

func (s *stubSocial) HealthCheck(ctx context.Context) HealthCheck { return s.LastHealth() }

func (s *stubSocial) RefreshToken(ctx context.Context) error { return nil }

func (s *stubSocial) Post(ctx context.Context, post PostContent) PostResult {
	return PostResult{Success: true}
}

func (s *stubSocial) UploadMedia(ctx context.Context, data []byte, kind MediaKind) MediaUploadResult {
	return MediaUploadResult{Success: true}
}

func (s *stubSocial) DeletePost(ctx context.Context, postID string) error { return nil }

func (s *stubSocial) Metrics(ctx context.Context) (*Metrics, error) { return &Metrics{}, nil }

func (s *stubSocial) PostMetrics(ctx context.Context, postID string) (*PostMetrics, error) {
	return &PostMetrics{}, nil
}

func TestRegistry_CreateRequiresRegistration(t *testing.T) {
	r := NewRegistry()

	_, err := r.Create("instagram")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no connector registered for platform "instagram"`)
}

func TestRegistry_SingleActiveInstance(t *testing.T) {
	r := NewRegistry()

	serial := 0
	r.Register("instagram", func() Social {
		serial++
		return newStubSocial("instagram", serial)
	})

	first, err := r.Create("instagram")
	require.NoError(t, err)
	second, err := r.Create("instagram")
	require.NoError(t, err)

	assert.NotSame(t, first, second)

	active, ok := r.Active("instagram")
	require.True(t, ok)
	assert.Same(t, second, active)
	assert.Equal(t, 2, active.(*stubSocial).serial)
}

func TestRegistry_RegisterOverwritesSilently(t *testing.T) {
	r := NewRegistry()
	r.Register("tiktok", func() Social { return newStubSocial("tiktok", 1) })
	r.Register("tiktok", func() Social { return newStubSocial("tiktok", 2) })

	conn, err := r.Create("tiktok")
	require.NoError(t, err)
	assert.Equal(t, 2, conn.(*stubSocial).serial)
}

func TestRegistry_RemoveAndAvailable(t *testing.T) {
	r := NewRegistry()
	r.Register("instagram", func() Social { return newStubSocial("instagram", 1) })
	r.Register("twitter", func() Social { return newStubSocial("twitter", 1) })

	assert.Equal(t, []string{"instagram", "twitter"}, r.Available())

	_, err := r.Create("twitter")
	require.NoError(t, err)
	assert.Len(t, r.AllActive(), 1)

	r.Remove("twitter")
	_, ok := r.Active("twitter")
	assert.False(t, ok)
	assert.Empty(t, r.AllActive())

	// registration survives removal of the instance
	_, err = r.Create("twitter")
	assert.NoError(t, err)
}
