// Package platforms holds the concrete connector implementations. Each one
// is a mechanical adapter between the connector contract and one platform's
// HTTP API; capability gaps (no programmatic delete, media-only feeds) are
// reported through the standard result and error channels.
package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Options configure a platform connector at registration time.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Clock      clockwork.Clock
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

type apiResponse struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

func (r apiResponse) ok() bool { return r.status >= 200 && r.status < 300 }

func (r apiResponse) authRejected() bool {
	return r.status == http.StatusUnauthorized || r.status == http.StatusForbidden
}

func (r apiResponse) rateLimited() bool { return r.status == http.StatusTooManyRequests }

func (r apiResponse) decode(out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode platform response: %w", err)
	}
	return nil
}

func do(ctx context.Context, client *http.Client, method, rawURL string, form url.Values) (apiResponse, error) {
	return doBearer(ctx, client, method, rawURL, "", form)
}

// doBearer is do with an Authorization: Bearer header for platforms that do
// not accept the token as a query parameter.
func doBearer(ctx context.Context, client *http.Client, method, rawURL, token string, form url.Values) (apiResponse, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return apiResponse{}, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apiResponse{}, err
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

func readResponse(resp *http.Response) (apiResponse, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiResponse{}, err
	}
	out := apiResponse{status: resp.StatusCode, body: data}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		out.retryAfter = time.Duration(secs) * time.Second
	}
	return out, nil
}

// caption joins post text with its hashtag list the way most platforms
// expect: text first, hashtags appended on a new line.
func caption(text string, hashtags []string) string {
	if len(hashtags) == 0 {
		return text
	}
	tags := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		tags = append(tags, h)
	}
	if text == "" {
		return strings.Join(tags, " ")
	}
	return text + "\n" + strings.Join(tags, " ")
}

func expiryFromSeconds(clock clockwork.Clock, seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := clock.Now().Add(time.Duration(seconds) * time.Second)
	return &t
}
