package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// App holds the process-level knobs outside the database layer, which loads
// its own configuration in storage/postgres.
type App struct {
	ListenAddr   string        `env:"LISTEN_ADDR,default=:8080"`
	GinMode      string        `env:"GIN_MODE,default=release"`
	MaxJobs      int           `env:"QUEUE_MAX_CONCURRENT,default=5"`
	TickInterval time.Duration `env:"QUEUE_TICK_INTERVAL,default=1s"`
	BackoffBase  time.Duration `env:"QUEUE_BACKOFF_BASE,default=1s"`
	BatchPause   time.Duration `env:"BATCH_PUBLISH_PAUSE,default=2s"`

	InstagramBaseURL string `env:"INSTAGRAM_BASE_URL,default=https://graph.instagram.com"`
	TikTokBaseURL    string `env:"TIKTOK_BASE_URL,default=https://open.tiktokapis.com"`
	TwitterBaseURL   string `env:"TWITTER_BASE_URL,default=https://api.twitter.com"`
}

func Load(ctx context.Context) (*App, error) {
	var cfg App
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if cfg.MaxJobs < 1 {
		return nil, fmt.Errorf("QUEUE_MAX_CONCURRENT must be at least 1, got %d", cfg.MaxJobs)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("QUEUE_TICK_INTERVAL must be positive")
	}
	if cfg.BackoffBase <= 0 {
		return nil, fmt.Errorf("QUEUE_BACKOFF_BASE must be positive")
	}
	if cfg.BatchPause < 0 {
		return nil, fmt.Errorf("BATCH_PUBLISH_PAUSE must be non-negative")
	}
	return &cfg, nil
}
