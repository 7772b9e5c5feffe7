package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	ContentStatusDraft     = "draft"
	ContentStatusScheduled = "scheduled"
	ContentStatusPublished = "published"

	PostStatusPending   = "pending"
	PostStatusPublished = "published"
	PostStatusRetrying  = "retrying"
	PostStatusFailed    = "failed"
	PostStatusDeleted   = "deleted"
)

// Content is the generic content record the UI edits and the publishing
// pipeline reads. Hashtags and media urls are JSON arrays.
type Content struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	WorkspaceID  string         `gorm:"index;not null" json:"workspace_id"`
	UserID       string         `gorm:"not null" json:"user_id"`
	Title        string         `gorm:"type:varchar(255)" json:"title"`
	Body         string         `gorm:"type:text" json:"body"`
	Hashtags     datatypes.JSON `gorm:"type:jsonb" json:"hashtags,omitempty"`
	MediaURLs    datatypes.JSON `gorm:"type:jsonb" json:"media_urls,omitempty"`
	Status       string         `gorm:"type:varchar(50);not null;default:'draft'" json:"status"`
	PublishedAt  *time.Time     `json:"published_at,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Content) HashtagList() ([]string, error) {
	return decodeStringList(c.Hashtags, "hashtags")
}

func (c *Content) MediaURLList() ([]string, error) {
	return decodeStringList(c.MediaURLs, "media urls")
}

func decodeStringList(raw datatypes.JSON, what string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	return out, nil
}

// PublishedPost tracks one content item on one platform. Payload keeps the
// adapted content so a failed post can be retried without re-adaptation.
type PublishedPost struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	ContentID      string         `gorm:"index;not null" json:"content_id"`
	WorkspaceID    string         `gorm:"index;not null" json:"workspace_id"`
	UserID         string         `gorm:"not null" json:"user_id"`
	Platform       string         `gorm:"type:varchar(50);not null" json:"platform"`
	PlatformPostID string         `gorm:"type:varchar(255)" json:"platform_post_id,omitempty"`
	URL            string         `gorm:"type:text" json:"url,omitempty"`
	Status         string         `gorm:"type:varchar(50);not null;default:'pending'" json:"status"`
	Error          string         `gorm:"type:text" json:"error,omitempty"`
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ConnectorCredential is the stored secret material for one user on one
// platform in one workspace. Created on a successful OAuth handshake, updated
// in place on refresh, deleted on disconnect.
type ConnectorCredential struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         string         `gorm:"index:idx_cred_lookup;not null" json:"user_id"`
	WorkspaceID    string         `gorm:"index:idx_cred_lookup;not null" json:"workspace_id"`
	Platform       string         `gorm:"index:idx_cred_lookup;not null" json:"platform"`
	AccessToken    string         `gorm:"type:text;not null" json:"-"`
	RefreshToken   string         `gorm:"type:text" json:"-"`
	APIKey         string         `gorm:"type:text" json:"-"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	PlatformUserID string         `gorm:"type:varchar(255)" json:"platform_user_id,omitempty"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
