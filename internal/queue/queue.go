package queue

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// HandlerFunc executes one job attempt. The returned value is stored as the
// job result on success. Errors are retryable unless wrapped with
// NonRetryable.
type HandlerFunc func(ctx context.Context, job *Job) (any, error)

// Handler binds the execution function for one job type together with
// optional telemetry callbacks. The callbacks run after the terminal state is
// already recorded and must not carry business state.
type Handler struct {
	Handle    HandlerFunc
	OnSuccess func(job *Job)
	OnFailure func(job *Job, err error)
}

const (
	defaultMaxConcurrent = 5
	defaultTickInterval  = time.Second
	defaultBackoffBase   = time.Second
	defaultMaxAttempts   = 3
)

// Queue is an in-memory priority job scheduler. Jobs are ordered by
// (priority desc, admission order asc) and dispatched to per-type handlers on
// a fixed tick, never exceeding the concurrency ceiling. Queue state does not
// survive a process restart.
//
// Construct exactly one per process and pass it to whatever needs it.
type Queue struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	order    []*Job
	handlers map[Type]Handler
	inFlight map[string]struct{}
	active   int
	seq      uint64

	clock         clockwork.Clock
	maxConcurrent int
	tickInterval  time.Duration
	backoffBase   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(q *Queue)

func WithMaxConcurrent(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxConcurrent = n
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.tickInterval = d
		}
	}
}

// WithBackoffBase sets the unit for the exponential retry delay
// (base * 2^attempts). Defaults to one second.
func WithBackoffBase(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.backoffBase = d
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{
		jobs:          make(map[string]*Job),
		handlers:      make(map[Type]Handler),
		inFlight:      make(map[string]struct{}),
		clock:         clockwork.NewRealClock(),
		maxConcurrent: defaultMaxConcurrent,
		tickInterval:  defaultTickInterval,
		backoffBase:   defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// RegisterHandler binds the handler for a job type. Registering again for the
// same type replaces the previous handler.
func (q *Queue) RegisterHandler(typ Type, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[typ] = h
}

// Enqueue admits a job. Admission is synchronous and never blocks on
// execution; the returned job is a snapshot in status pending.
func (q *Queue) Enqueue(typ Type, data any, opts Options) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()
	priority := opts.Priority
	if priority == 0 {
		priority = PriorityNormal
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	q.seq++
	job := &Job{
		ID:           uuid.NewString(),
		Type:         typ,
		Status:       StatusPending,
		Priority:     priority,
		Data:         data,
		UserID:       opts.UserID,
		ConnectorID:  opts.ConnectorID,
		Metadata:     opts.Metadata,
		MaxAttempts:  maxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: opts.ScheduledFor,
		seq:          q.seq,
	}

	q.jobs[job.ID] = job
	q.order = append(q.order, job)
	q.sortLocked()

	return job.clone()
}

func (q *Queue) sortLocked() {
	slices.SortFunc(q.order, func(a, b *Job) int {
		if a.Priority != b.Priority {
			return int(b.Priority - a.Priority)
		}
		if a.seq < b.seq {
			return -1
		}
		return 1
	})
}

// Start launches the dispatch loop. It returns immediately; jobs are picked
// up on each tick until Stop is called or ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.run()
}

// Stop halts dispatching and waits for in-flight handlers to finish. Pending
// jobs stay in memory but will not run again; there is no durable store to
// recover them from.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

func (q *Queue) run() {
	defer q.wg.Done()
	ticker := q.clock.NewTicker(q.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.Chan():
			q.tick()
		}
	}
}

func (q *Queue) tick() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.active < q.maxConcurrent {
		job := q.nextDispatchableLocked()
		if job == nil {
			return
		}

		handler, ok := q.handlers[job.Type]
		if !ok {
			q.failLocked(job, fmt.Sprintf("no handler registered for job type %q", job.Type))
			continue
		}

		now := q.clock.Now()
		job.Status = StatusProcessing
		job.StartedAt = &now
		job.UpdatedAt = now
		job.Attempts++
		q.active++
		q.inFlight[job.ID] = struct{}{}

		q.wg.Add(1)
		go q.execute(job, handler)
	}
}

func (q *Queue) nextDispatchableLocked() *Job {
	now := q.clock.Now()
	for _, job := range q.order {
		if _, busy := q.inFlight[job.ID]; busy {
			continue
		}
		switch job.Status {
		case StatusPending, StatusRetrying:
			if job.ScheduledFor != nil && now.Before(*job.ScheduledFor) {
				continue
			}
			return job
		}
	}
	return nil
}

func (q *Queue) execute(job *Job, h Handler) {
	defer q.wg.Done()

	result, err := q.invoke(h, job.clone())

	q.mu.Lock()
	q.active--
	delete(q.inFlight, job.ID)
	now := q.clock.Now()
	job.UpdatedAt = now

	if err == nil {
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
		job.Error = ""
		q.removeFromOrderLocked(job)
		snapshot := job.clone()
		q.mu.Unlock()
		if h.OnSuccess != nil {
			h.OnSuccess(snapshot)
		}
		return
	}

	job.Error = err.Error()
	if IsRetryable(err) && job.Attempts < job.MaxAttempts {
		job.Status = StatusRetrying
		retryAt := now.Add(q.backoffDelay(job.Attempts))
		job.ScheduledFor = &retryAt
		q.mu.Unlock()
		log.Printf("[queue] job %s attempt %d failed, retrying at %s: %v",
			job.ID, job.Attempts, retryAt.Format(time.RFC3339), err)
		return
	}

	job.Status = StatusFailed
	job.CompletedAt = &now
	q.removeFromOrderLocked(job)
	snapshot := job.clone()
	q.mu.Unlock()
	if h.OnFailure != nil {
		h.OnFailure(snapshot, err)
	}
}

func (q *Queue) invoke(h Handler, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(q.ctx, job)
}

func (q *Queue) backoffDelay(attempts int) time.Duration {
	return q.backoffBase * (1 << attempts)
}

// failLocked records an immediate, non-retryable failure during dispatch.
func (q *Queue) failLocked(job *Job, msg string) {
	now := q.clock.Now()
	job.Status = StatusFailed
	job.Error = msg
	job.CompletedAt = &now
	job.UpdatedAt = now
	q.removeFromOrderLocked(job)
}

func (q *Queue) removeFromOrderLocked(job *Job) {
	for i, j := range q.order {
		if j.ID == job.ID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// GetJob returns a snapshot of a job, terminal or not.
func (q *Queue) GetJob(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// CancelJob cancels a job that has not started executing. A processing job
// cannot be cancelled and runs to its natural terminal state.
func (q *Queue) CancelJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	switch job.Status {
	case StatusProcessing:
		return fmt.Errorf("job %s is processing and cannot be cancelled", id)
	case StatusCompleted, StatusFailed, StatusCancelled:
		return fmt.Errorf("job %s already finished with status %s", id, job.Status)
	}

	now := q.clock.Now()
	job.Status = StatusCancelled
	job.UpdatedAt = now
	q.removeFromOrderLocked(job)
	return nil
}

// JobsByUser returns snapshots of every job admitted for a user, oldest first.
func (q *Queue) JobsByUser(userID string) []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.collectLocked(func(j *Job) bool { return j.UserID == userID })
}

// JobsByStatus returns snapshots of every job in the given status, oldest
// first.
func (q *Queue) JobsByStatus(status Status) []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.collectLocked(func(j *Job) bool { return j.Status == status })
}

func (q *Queue) collectLocked(keep func(*Job) bool) []*Job {
	var out []*Job
	for _, job := range q.jobs {
		if keep(job) {
			out = append(out, job.clone())
		}
	}
	slices.SortFunc(out, func(a, b *Job) int {
		if a.seq < b.seq {
			return -1
		}
		return 1
	})
	return out
}

// Stats counts jobs by status plus the number currently executing.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, job := range q.jobs {
		switch job.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusRetrying:
			s.Retrying++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	s.Active = q.active
	return s
}
