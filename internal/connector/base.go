package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = time.Second
)

// ErrNoCredentials is returned by operations that need stored credentials
// when the connector has none.
var ErrNoCredentials = errors.New("connector has no credentials")

// Base carries the state every platform client shares: static info, the one
// set of credentials, the most recent health check and the clock used for
// rate-limit sleeps and retry backoff. Concrete connectors embed it.
type Base struct {
	mu     sync.Mutex
	info   Info
	creds  *Credentials
	health HealthCheck
	clock  clockwork.Clock
}

func NewBase(info Info, clock clockwork.Clock) Base {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return Base{
		info:   info,
		clock:  clock,
		health: HealthCheck{Status: HealthDisconnected},
	}
}

func (b *Base) Info() Info { return b.info }

func (b *Base) Clock() clockwork.Clock { return b.clock }

// SetCredentials stores the credentials this instance will own from now on.
func (b *Base) SetCredentials(creds *Credentials) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creds = creds
}

// Credentials returns the stored credentials, or nil when disconnected.
func (b *Base) Credentials() *Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creds
}

// UpdateToken rotates the access token in place after a refresh.
func (b *Base) UpdateToken(accessToken string, expiresAt *time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.creds == nil {
		return ErrNoCredentials
	}
	b.creds.AccessToken = accessToken
	b.creds.ExpiresAt = expiresAt
	return nil
}

func (b *Base) SetHealth(h HealthCheck) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.health = h
}

func (b *Base) LastHealth() HealthCheck {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health
}

// Disconnect clears the stored credentials and records a disconnected health
// state.
func (b *Base) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creds = nil
	b.health = HealthCheck{
		Status:    HealthDisconnected,
		CheckedAt: b.clock.Now(),
		Message:   "disconnected",
	}
}

// IsConnected reports whether credentials are present and the last health
// check classified the connection as usable.
func (b *Base) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creds != nil && b.health.Status == HealthConnected
}

// IsTokenExpired reports whether the stored token carries an expiry that has
// passed. Tokens without an expiry never count as expired.
func (b *Base) IsTokenExpired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.creds == nil || b.creds.ExpiresAt == nil {
		return false
	}
	return b.clock.Now().After(*b.creds.ExpiresAt)
}

// HandleRateLimit records a rate-limited health state and, when the platform
// told us how long to wait, suspends the calling operation for that duration.
// Only the in-flight operation sleeps; the rest of the process keeps going.
func (b *Base) HandleRateLimit(ctx context.Context, retryAfter time.Duration) {
	b.SetHealth(HealthCheck{
		Status:    HealthRateLimited,
		CheckedAt: b.clock.Now(),
		Message:   fmt.Sprintf("%s rate limit hit", b.info.ID),
	})
	if retryAfter <= 0 {
		return
	}
	select {
	case <-b.clock.After(retryAfter):
	case <-ctx.Done():
	}
}

// RetryOnFailure runs op up to maxRetries times with exponential backoff
// (backoff * 2^attempt between attempts) and returns the last error if every
// attempt fails. Zero arguments fall back to 3 attempts / 1s.
func (b *Base) RetryOnFailure(ctx context.Context, op func(ctx context.Context) error, maxRetries int, backoff time.Duration) error {
	if maxRetries <= 0 {
		maxRetries = defaultRetryAttempts
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff * (1 << (attempt - 1))
			select {
			case <-b.clock.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", b.info.ID, maxRetries, lastErr)
}
