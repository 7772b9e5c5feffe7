package queue

import (
	"time"
)

type Type string

const (
	TypePostContent     Type = "post_content"
	TypeUploadMedia     Type = "upload_media"
	TypeScheduleContent Type = "schedule_content"
	TypeFetchMetrics    Type = "fetch_metrics"
	TypeSyncPlatform    Type = "sync_platform"
	TypeProcessMedia    Type = "process_media"
	TypeDeleteContent   Type = "delete_content"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
	StatusCancelled  Status = "cancelled"
)

// Priority orders dispatch across jobs. Higher values win; the zero value
// means "use the default" (PriorityNormal) so callers can leave it unset.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// Job is a unit of deferred work tracked by the queue. The queue owns all
// bookkeeping fields; handlers receive a copy and must treat it as read-only.
type Job struct {
	ID           string            `json:"id"`
	Type         Type              `json:"type"`
	Status       Status            `json:"status"`
	Priority     Priority          `json:"priority"`
	Data         any               `json:"data,omitempty"`
	UserID       string            `json:"user_id"`
	ConnectorID  string            `json:"connector_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Attempts     int               `json:"attempts"`
	MaxAttempts  int               `json:"max_attempts"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Error        string            `json:"error,omitempty"`
	Result       any               `json:"result,omitempty"`

	// admission sequence, tie-breaker within a priority band
	seq uint64
}

func (j *Job) clone() *Job {
	c := *j
	if j.Metadata != nil {
		c.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Options control admission of a single job. Zero values fall back to
// PriorityNormal and the default attempt ceiling.
type Options struct {
	UserID       string
	ConnectorID  string
	Priority     Priority
	ScheduledFor *time.Time
	MaxAttempts  int
	Metadata     map[string]string
}

// Stats is a point-in-time snapshot of queue occupancy by status plus the
// number of jobs currently executing.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
	Cancelled  int `json:"cancelled"`
	Active     int `json:"active"`
}
