package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorly/publisher/internal/connector"
)

// TikTok posts through the Content Posting API. The feed is video-only and
// TikTok offers no programmatic deletion, so DeletePost reports the refusal
// instead of calling the network.
type TikTok struct {
	connector.Base
	client  *http.Client
	baseURL string
}

func NewTikTok(opts Options) *TikTok {
	base := opts.BaseURL
	if base == "" {
		base = "https://open.tiktokapis.com"
	}
	return &TikTok{
		Base: connector.NewBase(connector.Info{
			ID:               "tiktok",
			DisplayName:      "TikTok",
			Category:         "social",
			RequiresOAuth:    true,
			Scopes:           []string{"user.info.basic", "video.publish"},
			RateLimitPerHour: 100,
		}, opts.Clock),
		client:  opts.client(),
		baseURL: base,
	}
}

func (c *TikTok) ValidateCredentials(creds *connector.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("tiktok: access token is required")
	}
	if creds.RefreshToken == "" {
		return errors.New("tiktok: refresh token is required")
	}
	return nil
}

func (c *TikTok) Connect(ctx context.Context, creds *connector.Credentials) error {
	if err := c.ValidateCredentials(creds); err != nil {
		return err
	}
	c.SetCredentials(creds)
	if h := c.HealthCheck(ctx); h.Status != connector.HealthConnected {
		return fmt.Errorf("tiktok: connect failed: %s", h.Message)
	}
	return nil
}

func (c *TikTok) HealthCheck(ctx context.Context) connector.HealthCheck {
	creds := c.Credentials()
	h := connector.HealthCheck{CheckedAt: c.Clock().Now()}
	if creds == nil {
		h.Status = connector.HealthDisconnected
		h.Message = "no credentials stored"
		c.SetHealth(h)
		return h
	}

	resp, err := doBearer(ctx, c.client, http.MethodGet,
		c.baseURL+"/v2/user/info/?fields=open_id,display_name", creds.AccessToken, nil)
	switch {
	case err != nil:
		h.Status = connector.HealthError
		h.Message = err.Error()
	case resp.ok():
		h.Status = connector.HealthConnected
		h.Message = "ok"
	case resp.authRejected():
		h.Status = connector.HealthExpired
		h.Message = "tiktok rejected the access token"
	case resp.rateLimited():
		h.Status = connector.HealthRateLimited
		h.Message = "tiktok rate limit hit"
	default:
		h.Status = connector.HealthError
		h.Message = fmt.Sprintf("tiktok returned status %d", resp.status)
	}
	c.SetHealth(h)
	return h
}

func (c *TikTok) RefreshToken(ctx context.Context) error {
	creds := c.Credentials()
	if creds == nil || creds.RefreshToken == "" {
		return fmt.Errorf("tiktok: no refresh token: %w", connector.ErrNoCredentials)
	}

	resp, err := do(ctx, c.client, http.MethodPost, c.baseURL+"/v2/oauth/token/", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
	})
	if err != nil {
		return fmt.Errorf("tiktok: refresh token: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("tiktok: refresh token rejected with status %d", resp.status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := resp.decode(&body); err != nil {
		return fmt.Errorf("tiktok: %w", err)
	}
	return c.UpdateToken(body.AccessToken, expiryFromSeconds(c.Clock(), body.ExpiresIn))
}

func (c *TikTok) Post(ctx context.Context, post connector.PostContent) connector.PostResult {
	if !post.HasAnyContent() {
		return connector.PostResult{Error: "tiktok: post has neither text nor media"}
	}
	if len(post.MediaURLs) == 0 {
		return connector.PostResult{Error: "tiktok: post requires a video"}
	}
	creds := c.Credentials()
	if creds == nil {
		return connector.PostResult{Error: "tiktok: not connected"}
	}

	var result connector.PostResult
	publish := func(ctx context.Context) error {
		resp, err := doBearer(ctx, c.client, http.MethodPost,
			c.baseURL+"/v2/post/publish/video/init/", creds.AccessToken, url.Values{
				"title":     {caption(post.Text, post.Hashtags)},
				"video_url": {post.MediaURLs[0]},
			})
		if err != nil {
			return err
		}
		if resp.rateLimited() {
			c.HandleRateLimit(ctx, resp.retryAfter)
			return fmt.Errorf("tiktok rate limit exceeded")
		}
		if !resp.ok() {
			return fmt.Errorf("tiktok publish returned status %d", resp.status)
		}
		var body struct {
			Data struct {
				PublishID string `json:"publish_id"`
			} `json:"data"`
		}
		if err := resp.decode(&body); err != nil {
			return err
		}
		result = connector.PostResult{
			Success:          true,
			PostID:           body.Data.PublishID,
			PlatformResponse: resp.body,
		}
		return nil
	}

	if err := c.RetryOnFailure(ctx, publish, 3, time.Second); err != nil {
		return connector.PostResult{Error: err.Error()}
	}
	return result
}

func (c *TikTok) UploadMedia(ctx context.Context, data []byte, kind connector.MediaKind) connector.MediaUploadResult {
	if kind != connector.MediaVideo {
		return connector.MediaUploadResult{Error: "tiktok: only video media is supported"}
	}
	creds := c.Credentials()
	if creds == nil {
		return connector.MediaUploadResult{Error: "tiktok: not connected"}
	}

	resp, err := doBearer(ctx, c.client, http.MethodPost,
		c.baseURL+"/v2/post/publish/inbox/video/init/", creds.AccessToken, url.Values{
			"source":     {"FILE_UPLOAD"},
			"video_size": {fmt.Sprintf("%d", len(data))},
		})
	if err != nil {
		return connector.MediaUploadResult{Error: fmt.Sprintf("tiktok: upload init: %v", err)}
	}
	if !resp.ok() {
		return connector.MediaUploadResult{Error: fmt.Sprintf("tiktok: upload init returned status %d", resp.status)}
	}
	var body struct {
		Data struct {
			UploadID  string `json:"publish_id"`
			UploadURL string `json:"upload_url"`
		} `json:"data"`
	}
	if err := resp.decode(&body); err != nil {
		return connector.MediaUploadResult{Error: err.Error()}
	}
	return connector.MediaUploadResult{Success: true, MediaID: body.Data.UploadID, URL: body.Data.UploadURL}
}

// DeletePost always refuses: TikTok has no deletion endpoint for API posts.
func (c *TikTok) DeletePost(ctx context.Context, postID string) error {
	return errors.New("tiktok: programmatic post deletion is not supported")
}

func (c *TikTok) Metrics(ctx context.Context) (*connector.Metrics, error) {
	creds := c.Credentials()
	if creds == nil {
		return nil, fmt.Errorf("tiktok: %w", connector.ErrNoCredentials)
	}
	resp, err := doBearer(ctx, c.client, http.MethodGet,
		c.baseURL+"/v2/user/info/?fields=follower_count,likes_count", creds.AccessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("tiktok: metrics: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("tiktok: metrics returned status %d", resp.status)
	}
	var body struct {
		Data struct {
			User struct {
				FollowerCount int64 `json:"follower_count"`
				LikesCount    int64 `json:"likes_count"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := resp.decode(&body); err != nil {
		return nil, err
	}
	return &connector.Metrics{
		Followers:  body.Data.User.FollowerCount,
		Engagement: body.Data.User.LikesCount,
	}, nil
}

func (c *TikTok) PostMetrics(ctx context.Context, postID string) (*connector.PostMetrics, error) {
	creds := c.Credentials()
	if creds == nil {
		return nil, fmt.Errorf("tiktok: %w", connector.ErrNoCredentials)
	}
	resp, err := doBearer(ctx, c.client, http.MethodPost,
		c.baseURL+"/v2/video/query/?fields=like_count,comment_count,share_count,view_count",
		creds.AccessToken, url.Values{"video_id": {postID}})
	if err != nil {
		return nil, fmt.Errorf("tiktok: post metrics: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("tiktok: post metrics returned status %d", resp.status)
	}
	var body struct {
		Data struct {
			Videos []struct {
				LikeCount    int64 `json:"like_count"`
				CommentCount int64 `json:"comment_count"`
				ShareCount   int64 `json:"share_count"`
				ViewCount    int64 `json:"view_count"`
			} `json:"videos"`
		} `json:"data"`
	}
	if err := resp.decode(&body); err != nil {
		return nil, err
	}
	m := &connector.PostMetrics{}
	if len(body.Data.Videos) > 0 {
		v := body.Data.Videos[0]
		m.Likes, m.Comments, m.Shares, m.Views = v.LikeCount, v.CommentCount, v.ShareCount, v.ViewCount
	}
	return m, nil
}
