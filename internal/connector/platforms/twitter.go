package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/creatorly/publisher/internal/connector"
)

// Twitter posts through the v2 API. Media must be uploaded out of band by the
// caller; the proxy upload flow is refused here because the v2 tweet endpoint
// only accepts previously registered media ids.
type Twitter struct {
	connector.Base
	client  *http.Client
	baseURL string
}

func NewTwitter(opts Options) *Twitter {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.twitter.com"
	}
	return &Twitter{
		Base: connector.NewBase(connector.Info{
			ID:               "twitter",
			DisplayName:      "X (Twitter)",
			Category:         "social",
			RequiresOAuth:    true,
			Scopes:           []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			RateLimitPerHour: 300,
		}, opts.Clock),
		client:  opts.client(),
		baseURL: base,
	}
}

func (c *Twitter) ValidateCredentials(creds *connector.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("twitter: access token is required")
	}
	return nil
}

func (c *Twitter) Connect(ctx context.Context, creds *connector.Credentials) error {
	if err := c.ValidateCredentials(creds); err != nil {
		return err
	}
	c.SetCredentials(creds)
	if h := c.HealthCheck(ctx); h.Status != connector.HealthConnected {
		return fmt.Errorf("twitter: connect failed: %s", h.Message)
	}
	return nil
}

func (c *Twitter) HealthCheck(ctx context.Context) connector.HealthCheck {
	creds := c.Credentials()
	h := connector.HealthCheck{CheckedAt: c.Clock().Now()}
	if creds == nil {
		h.Status = connector.HealthDisconnected
		h.Message = "no credentials stored"
		c.SetHealth(h)
		return h
	}

	resp, err := doBearer(ctx, c.client, http.MethodGet, c.baseURL+"/2/users/me", creds.AccessToken, nil)
	switch {
	case err != nil:
		h.Status = connector.HealthError
		h.Message = err.Error()
	case resp.ok():
		h.Status = connector.HealthConnected
		h.Message = "ok"
	case resp.authRejected():
		h.Status = connector.HealthExpired
		h.Message = "twitter rejected the access token"
	case resp.rateLimited():
		h.Status = connector.HealthRateLimited
		h.Message = "twitter rate limit hit"
	default:
		h.Status = connector.HealthError
		h.Message = fmt.Sprintf("twitter returned status %d", resp.status)
	}
	c.SetHealth(h)
	return h
}

func (c *Twitter) RefreshToken(ctx context.Context) error {
	creds := c.Credentials()
	if creds == nil || creds.RefreshToken == "" {
		return fmt.Errorf("twitter: no refresh token: %w", connector.ErrNoCredentials)
	}

	resp, err := do(ctx, c.client, http.MethodPost, c.baseURL+"/2/oauth2/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
	})
	if err != nil {
		return fmt.Errorf("twitter: refresh token: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("twitter: refresh token rejected with status %d", resp.status)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := resp.decode(&body); err != nil {
		return fmt.Errorf("twitter: %w", err)
	}
	if err := c.UpdateToken(body.AccessToken, expiryFromSeconds(c.Clock(), body.ExpiresIn)); err != nil {
		return err
	}
	// twitter rotates the refresh token on every exchange
	if body.RefreshToken != "" {
		if cur := c.Credentials(); cur != nil {
			updated := *cur
			updated.RefreshToken = body.RefreshToken
			c.SetCredentials(&updated)
		}
	}
	return nil
}

func (c *Twitter) Post(ctx context.Context, post connector.PostContent) connector.PostResult {
	if !post.HasAnyContent() {
		return connector.PostResult{Error: "twitter: post has neither text nor media"}
	}
	creds := c.Credentials()
	if creds == nil {
		return connector.PostResult{Error: "twitter: not connected"}
	}

	payload := map[string]any{"text": caption(post.Text, post.Hashtags)}
	body, _ := json.Marshal(payload)

	var result connector.PostResult
	publish := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

		httpResp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		resp, err := readResponse(httpResp)
		if err != nil {
			return err
		}
		if resp.rateLimited() {
			c.HandleRateLimit(ctx, resp.retryAfter)
			return fmt.Errorf("twitter rate limit exceeded")
		}
		if !resp.ok() {
			return fmt.Errorf("twitter returned status %d", resp.status)
		}

		var data struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := resp.decode(&data); err != nil {
			return err
		}
		result = connector.PostResult{
			Success:          true,
			PostID:           data.Data.ID,
			URL:              fmt.Sprintf("https://twitter.com/i/web/status/%s", data.Data.ID),
			PlatformResponse: resp.body,
		}
		return nil
	}

	if err := c.RetryOnFailure(ctx, publish, 3, time.Second); err != nil {
		return connector.PostResult{Error: err.Error()}
	}
	return result
}

// UploadMedia refuses the proxy flow; callers register media through the
// upload endpoint themselves and pass ids in post metadata.
func (c *Twitter) UploadMedia(ctx context.Context, data []byte, kind connector.MediaKind) connector.MediaUploadResult {
	return connector.MediaUploadResult{
		Error: "twitter: proxy media upload is not supported, register media ids upstream",
	}
}

func (c *Twitter) DeletePost(ctx context.Context, postID string) error {
	creds := c.Credentials()
	if creds == nil {
		return fmt.Errorf("twitter: %w", connector.ErrNoCredentials)
	}
	resp, err := doBearer(ctx, c.client, http.MethodDelete,
		fmt.Sprintf("%s/2/tweets/%s", c.baseURL, postID), creds.AccessToken, nil)
	if err != nil {
		return fmt.Errorf("twitter: delete post: %w", err)
	}
	if !resp.ok() {
		return fmt.Errorf("twitter: delete post returned status %d", resp.status)
	}
	return nil
}

func (c *Twitter) Metrics(ctx context.Context) (*connector.Metrics, error) {
	creds := c.Credentials()
	if creds == nil {
		return nil, fmt.Errorf("twitter: %w", connector.ErrNoCredentials)
	}
	resp, err := doBearer(ctx, c.client, http.MethodGet,
		c.baseURL+"/2/users/me?user.fields=public_metrics", creds.AccessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("twitter: metrics: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("twitter: metrics returned status %d", resp.status)
	}
	var body struct {
		Data struct {
			PublicMetrics struct {
				FollowersCount int64 `json:"followers_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := resp.decode(&body); err != nil {
		return nil, err
	}
	return &connector.Metrics{Followers: body.Data.PublicMetrics.FollowersCount}, nil
}

func (c *Twitter) PostMetrics(ctx context.Context, postID string) (*connector.PostMetrics, error) {
	creds := c.Credentials()
	if creds == nil {
		return nil, fmt.Errorf("twitter: %w", connector.ErrNoCredentials)
	}
	resp, err := doBearer(ctx, c.client, http.MethodGet,
		fmt.Sprintf("%s/2/tweets/%s?tweet.fields=public_metrics", c.baseURL, postID),
		creds.AccessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("twitter: post metrics: %w", err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("twitter: post metrics returned status %d", resp.status)
	}
	var body struct {
		Data struct {
			PublicMetrics struct {
				LikeCount       int64 `json:"like_count"`
				ReplyCount      int64 `json:"reply_count"`
				RetweetCount    int64 `json:"retweet_count"`
				ImpressionCount int64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := resp.decode(&body); err != nil {
		return nil, err
	}
	pm := body.Data.PublicMetrics
	return &connector.PostMetrics{
		Likes:    pm.LikeCount,
		Comments: pm.ReplyCount,
		Shares:   pm.RetweetCount,
		Views:    pm.ImpressionCount,
	}, nil
}
