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

// Instagram talks to the Instagram Graph API. Posting is the two-step
// container/publish flow and requires at least one media item; text-only
// posts are rejected without a network call.
type Instagram struct {
	connector.Base
	client  *http.Client
	baseURL string
}

func NewInstagram(opts Options) *Instagram {
	base := opts.BaseURL
	if base == "" {
		base = "https://graph.instagram.com"
	}
	return &Instagram{
		Base: connector.NewBase(connector.Info{
			ID:               "instagram",
			DisplayName:      "Instagram",
			Category:         "social",
			RequiresOAuth:    true,
			Scopes:           []string{"instagram_basic", "instagram_content_publish"},
			RateLimitPerHour: 200,
		}, opts.Clock),
		client:  opts.client(),
		baseURL: base,
	}
}

func (c *Instagram) ValidateCredentials(creds *connector.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("instagram: access token is required")
	}
	if creds.PlatformUserID == "" {
		return errors.New("instagram: platform user id is required")
	}
	return nil
}

func (c *Instagram) Connect(ctx context.Context, creds *connector.Credentials) error {
	if err := c.ValidateCredentials(creds); err != nil {
		return err
	}
	c.SetCredentials(creds)
	if h := c.HealthCheck(ctx); h.Status != connector.HealthConnected {
		return fmt.Errorf("instagram: connect failed: %s", h.Message)
	}
	return nil
}

func (c *Instagram) HealthCheck(ctx context.Context) connector.HealthCheck {
	creds := c.Credentials()
	h := connector.HealthCheck{CheckedAt: c.Clock().Now()}
	if creds == nil {
		h.Status = connector.HealthDisconnected
		h.Message = "no credentials stored"
		c.SetHealth(h)
		return h
	}

	resp, err := do(ctx, c.client, http.MethodGet,
		fmt.Sprintf("%s/me?fields=id,username&access_token=%s", c.baseURL, url.QueryEscape(creds.AccessToken)), nil)
	switch {
	case err != nil:
		h.Status = connector.HealthError
		h.Message = err.Error()
	case resp.ok():
		h.Status = connector.HealthConnected
		h.Message = "ok"
	case resp.authRejected():
		h.Status = connector.HealthExpired
		h.Message = "instagram rejected the access token"
	case resp.rateLimited():
		h.Status = connector.HealthRateLimited
		h.Message = "instagram rate limit hit"
	default:
		h.Status = connector.HealthError
		h.Message = fmt.Sprintf("instagram returned status %d", resp.status)
	}
	c.SetHealth(h)
	return h
}

// RefreshToken extends a long-lived token via the ig_refresh_token flow.
func (c *Instagram) RefreshToken(ctx context.Context) error {
	creds := c.Credentials()
	if creds == nil || creds.AccessToken == "" {
		return fmt.Errorf("instagram: %w", connector.ErrNoCredentials)
	}

	resp, err := do(ctx, c.client, http.MethodGet,
		fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
			c.baseURL, url.QueryEscape(creds.AccessToken)), nil)
	if err != nil {
		return fmt.Errorf("instagram: refresh token: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: refresh token rejected with status %d", resp.status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := resp.decode(&body); err != nil {
		return fmt.Errorf("instagram: %w", err)
	}
	return c.UpdateToken(body.AccessToken, expiryFromSeconds(c.Clock(), body.ExpiresIn))
}

func (c *Instagram) Post(ctx context.Context, post connector.PostContent) connector.PostResult {
	if !post.HasAnyContent() {
		return connector.PostResult{Error: "instagram: post has neither text nor media"}
	}
	if len(post.MediaURLs) == 0 {
		return connector.PostResult{Error: "instagram: post requires at least one media item"}
	}
	creds := c.Credentials()
	if creds == nil {
		return connector.PostResult{Error: "instagram: not connected"}
	}

	form := url.Values{
		"image_url":    {post.MediaURLs[0]},
		"caption":      {caption(post.Text, post.Hashtags)},
		"access_token": {creds.AccessToken},
	}
	container, errResult := c.createContainer(ctx, creds.PlatformUserID, form)
	if errResult != nil {
		return *errResult
	}

	var result connector.PostResult
	publish := func(ctx context.Context) error {
		resp, err := do(ctx, c.client, http.MethodPost,
			fmt.Sprintf("%s/%s/media_publish", c.baseURL, creds.PlatformUserID),
			url.Values{"creation_id": {container}, "access_token": {creds.AccessToken}})
		if err != nil {
			return err
		}
		if resp.rateLimited() {
			c.HandleRateLimit(ctx, resp.retryAfter)
			return fmt.Errorf("instagram rate limit exceeded")
		}
		if !resp.ok() {
			return fmt.Errorf("instagram publish returned status %d", resp.status)
		}
		var body struct {
			ID string `json:"id"`
		}
		if err := resp.decode(&body); err != nil {
			return err
		}
		result = connector.PostResult{
			Success:          true,
			PostID:           body.ID,
			URL:              fmt.Sprintf("https://www.instagram.com/p/%s/", body.ID),
			PlatformResponse: resp.body,
		}
		return nil
	}

	if err := c.RetryOnFailure(ctx, publish, 3, time.Second); err != nil {
		return connector.PostResult{Error: err.Error()}
	}
	return result
}

func (c *Instagram) createContainer(ctx context.Context, userID string, form url.Values) (string, *connector.PostResult) {
	resp, err := do(ctx, c.client, http.MethodPost,
		fmt.Sprintf("%s/%s/media", c.baseURL, userID), form)
	if err != nil {
		return "", &connector.PostResult{Error: fmt.Sprintf("instagram: create container: %v", err)}
	}
	if resp.rateLimited() {
		c.HandleRateLimit(ctx, resp.retryAfter)
		return "", &connector.PostResult{Error: "instagram: rate limit exceeded"}
	}
	if !resp.ok() {
		return "", &connector.PostResult{Error: fmt.Sprintf("instagram: create container returned status %d", resp.status)}
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := resp.decode(&body); err != nil {
		return "", &connector.PostResult{Error: err.Error()}
	}
	return body.ID, nil
}

// UploadMedia registers a media container from raw bytes. The Graph API only
// accepts hosted URLs, so direct byte uploads are reported as unsupported.
func (c *Instagram) UploadMedia(ctx context.Context, data []byte, kind connector.MediaKind) connector.MediaUploadResult {
	return connector.MediaUploadResult{
		Error: "instagram: direct media upload is not supported, provide a hosted media url",
	}
}

func (c *Instagram) DeletePost(ctx context.Context, postID string) error {
	creds := c.Credentials()
	if creds == nil {
		return fmt.Errorf("instagram: %w", connector.ErrNoCredentials)
	}
	resp, err := do(ctx, c.client, http.MethodDelete,
		fmt.Sprintf("%s/%s?access_token=%s", c.baseURL, postID, url.QueryEscape(creds.AccessToken)), nil)
	if err != nil {
		return fmt.Errorf("instagram: delete post: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("instagram: delete post returned status %d", resp.status)
	}
	return nil
}

func (c *Instagram) Metrics(ctx context.Context) (*connector.Metrics, error) {
	creds := c.Credentials()
	if creds == nil {
		return nil, fmt.Errorf("instagram: %w", connector.ErrNoCredentials)
	}
	resp, err := do(ctx, c.client, http.MethodGet,
		fmt.Sprintf("%s/%s?fields=followers_count&access_token=%s",
			c.baseURL, creds.PlatformUserID, url.QueryEscape(creds.AccessToken)), nil)
	if err != nil {
		return nil, fmt.Errorf("instagram: metrics: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("instagram: metrics returned status %d", resp.status)
	}
	var body struct {
		FollowersCount int64 `json:"followers_count"`
	}
	if err := resp.decode(&body); err != nil {
		return nil, err
	}
	// impressions/engagement/reach need the insights product; zero-filled here
	return &connector.Metrics{Followers: body.FollowersCount}, nil
}

func (c *Instagram) PostMetrics(ctx context.Context, postID string) (*connector.PostMetrics, error) {
	creds := c.Credentials()
	if creds == nil {
		return nil, fmt.Errorf("instagram: %w", connector.ErrNoCredentials)
	}
	resp, err := do(ctx, c.client, http.MethodGet,
		fmt.Sprintf("%s/%s?fields=like_count,comments_count&access_token=%s",
			c.baseURL, postID, url.QueryEscape(creds.AccessToken)), nil)
	if err != nil {
		return nil, fmt.Errorf("instagram: post metrics: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("instagram: post metrics returned status %d", resp.status)
	}
	var body struct {
		LikeCount     int64 `json:"like_count"`
		CommentsCount int64 `json:"comments_count"`
	}
	if err := resp.decode(&body); err != nil {
		return nil, err
	}
	return &connector.PostMetrics{Likes: body.LikeCount, Comments: body.CommentsCount}, nil
}
