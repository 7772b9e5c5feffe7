// Package connector defines the client capability for one external social
// platform: credential lifecycle, health classification and the posting
// operations the publishing pipeline drives.
package connector

import (
	"context"
	"encoding/json"
	"time"
)

type HealthStatus string

const (
	HealthConnected    HealthStatus = "connected"
	HealthDisconnected HealthStatus = "disconnected"
	HealthError        HealthStatus = "error"
	HealthExpired      HealthStatus = "expired"
	HealthRateLimited  HealthStatus = "rate_limited"
)

// Credentials is the secret material for one user on one platform. A
// connector instance exclusively owns its credentials: they are stored on
// connect, mutated in place on refresh and cleared on disconnect.
type Credentials struct {
	AccessToken    string
	RefreshToken   string
	APIKey         string
	ExpiresAt      *time.Time
	UserID         string
	PlatformUserID string
	Metadata       map[string]string
}

// HealthCheck is a point-in-time assessment of a connector's usability.
type HealthCheck struct {
	Status     HealthStatus `json:"status"`
	CheckedAt  time.Time    `json:"checked_at"`
	Message    string       `json:"message,omitempty"`
	QuotaUsed  int          `json:"quota_used,omitempty"`
	QuotaLimit int          `json:"quota_limit,omitempty"`
}

// Info is the static configuration of a platform integration.
type Info struct {
	ID               string   `json:"id"`
	DisplayName      string   `json:"display_name"`
	Category         string   `json:"category"`
	RequiresOAuth    bool     `json:"requires_oauth"`
	Scopes           []string `json:"scopes,omitempty"`
	RateLimitPerHour int      `json:"rate_limit_per_hour,omitempty"`
}

// Connector is the base capability shared by every platform client.
// HealthCheck classifies expected failures (expired auth, network trouble,
// missing credentials) into a status instead of returning an error.
type Connector interface {
	Info() Info
	ValidateCredentials(creds *Credentials) error
	Connect(ctx context.Context, creds *Credentials) error
	Disconnect()
	HealthCheck(ctx context.Context) HealthCheck
	RefreshToken(ctx context.Context) error
	IsConnected() bool
	IsTokenExpired() bool
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// PostContent is the platform-shaped payload produced by content adaptation.
type PostContent struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
}

// HasAnyContent reports whether the post carries text or media. Connectors
// reject posts with neither before touching the network.
func (p PostContent) HasAnyContent() bool {
	return p.Text != "" || len(p.MediaURLs) > 0
}

// PostResult is the structured outcome of a post attempt. Platform failures
// land in Error rather than escaping as panics or raw transport errors.
type PostResult struct {
	Success          bool            `json:"success"`
	PostID           string          `json:"post_id,omitempty"`
	URL              string          `json:"url,omitempty"`
	Error            string          `json:"error,omitempty"`
	PlatformResponse json.RawMessage `json:"platform_response,omitempty"`
}

type MediaUploadResult struct {
	Success bool   `json:"success"`
	MediaID string `json:"media_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Metrics are account-level figures. Platforms that do not expose a figure
// report zero rather than omitting the field.
type Metrics struct {
	Followers   int64 `json:"followers"`
	Impressions int64 `json:"impressions"`
	Engagement  int64 `json:"engagement"`
	Reach       int64 `json:"reach"`
}

// PostMetrics are per-post engagement figures, zero-filled like Metrics.
type PostMetrics struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views"`
	Reach    int64 `json:"reach"`
}

// Social extends Connector with the posting operations of social platforms.
// A platform that cannot support an operation (no programmatic delete, no
// proxy upload) reports that through the result/error channel.
type Social interface {
	Connector
	Post(ctx context.Context, post PostContent) PostResult
	UploadMedia(ctx context.Context, data []byte, kind MediaKind) MediaUploadResult
	DeletePost(ctx context.Context, postID string) error
	Metrics(ctx context.Context) (*Metrics, error)
	PostMetrics(ctx context.Context, postID string) (*PostMetrics, error)
}
