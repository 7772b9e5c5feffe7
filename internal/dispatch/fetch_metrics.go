package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/creatorly/publisher/internal/connector"
	"github.com/creatorly/publisher/internal/queue"
)

// FetchMetricsData is the payload of a fetch_metrics job. With a
// PlatformPostID the handler fetches per-post figures, otherwise the
// account-level ones.
type FetchMetricsData struct {
	ConnectorID    string `json:"connector_id"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
}

// MetricsResult is the job result of a fetch_metrics job.
type MetricsResult struct {
	FetchedAt time.Time              `json:"fetched_at"`
	Account   *connector.Metrics     `json:"account,omitempty"`
	Post      *connector.PostMetrics `json:"post,omitempty"`
}

func NewFetchMetricsHandler(reg *connector.Registry, clock clockwork.Clock) queue.Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return queue.Handler{
		Handle: func(ctx context.Context, job *queue.Job) (any, error) {
			data, ok := job.Data.(*FetchMetricsData)
			if !ok {
				return nil, queue.NonRetryable(errors.New("fetch_metrics: job data is not FetchMetricsData"))
			}

			conn, err := activeConnector(ctx, reg, data.ConnectorID)
			if err != nil {
				return nil, err
			}

			result := MetricsResult{FetchedAt: clock.Now()}
			if data.PlatformPostID != "" {
				result.Post, err = conn.PostMetrics(ctx, data.PlatformPostID)
			} else {
				result.Account, err = conn.Metrics(ctx)
			}
			if err != nil {
				return nil, err
			}
			return result, nil
		},
		OnFailure: func(job *queue.Job, err error) {
			log.Printf("[dispatch] fetch_metrics job %s failed: %v", job.ID, err)
		},
	}
}
