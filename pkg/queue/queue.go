// Package queue runs background jobs such as confirmation emails.
//
//	q := queue.NewManager(queue.NewMemoryDriver())
//	q.Register(jobs.SendOrderConfirmationName, func() queue.Job { return &jobs.SendOrderConfirmation{} })
//	q.Dispatch(ctx, &jobs.SendOrderConfirmation{OrderID: id})
//
// Jobs are JSON-encoded into an envelope keyed by name, so the worker that
// pops a job may live in another process (`usgears queue:work`).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/metrics"
)

type Job interface {
	Handle(ctx context.Context) error
}

// Named lets a job pick its registry key. Jobs without it are keyed by %T.
type Named interface {
	JobName() string
}

// FailedJob is a job that exhausted its retries.
type FailedJob struct {
	JobType  string          `bson:"job_type"  json:"jobType"`
	Payload  json.RawMessage `bson:"-"         json:"payload"`
	Raw      string          `bson:"payload"   json:"-"`
	Error    string          `bson:"error"     json:"error"`
	Attempts int             `bson:"attempts"  json:"attempts"`
	FailedAt time.Time       `bson:"failed_at" json:"failedAt"`
}

type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. A nil payload with a nil error
	// means the driver timed out and the caller should poll again.
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers that can hold a job until later.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// FailedStore persists failed jobs beyond process memory.
type FailedStore interface {
	Save(ctx context.Context, f FailedJob) error
}

type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	store    FailedStore
	maxRetry int
	backoff  time.Duration
	timeout  time.Duration
}

func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
		timeout:  time.Minute,
	}
}

func (m *Manager) SetFailedStore(s FailedStore) {
	m.mu.Lock()
	m.store = s
	m.mu.Unlock()
}

// SetRetry configures attempts per job and the first backoff delay, which
// doubles after each failure.
func (m *Manager) SetRetry(attempts int, backoff time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempts < 1 {
		attempts = 1
	}
	m.maxRetry = attempts
	m.backoff = backoff
}

func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	m.registry[name] = factory
	m.mu.Unlock()
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func jobName(j Job) string {
	if n, ok := j.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", j)
}

func encode(j Job) ([]byte, error) {
	name := jobName(j)
	payload, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

func (m *Manager) Dispatch(ctx context.Context, j Job) error {
	raw, err := encode(j)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(ctx, raw)
}

// DispatchAfter uses the driver's delayed queue when it has one and an
// in-process timer otherwise.
func (m *Manager) DispatchAfter(ctx context.Context, j Job, delay time.Duration) error {
	raw, err := encode(j)
	if err != nil {
		return err
	}
	d := m.currentDriver()
	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, raw, delay)
	}
	time.AfterFunc(delay, func() {
		if err := d.Push(context.Background(), raw); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", jobName(j), "error", err)
		}
	})
	return nil
}

// StartWorkers launches n workers that run until ctx is cancelled.
func (m *Manager) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go m.work(ctx)
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		raw, err := m.currentDriver().Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}
		m.Process(ctx, raw)
	}
}

// Process decodes one envelope and runs its job with retries.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		m.fail(ctx, env.Type, env.Payload, fmt.Errorf("unregistered job type %q", env.Type), 0)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		m.fail(ctx, env.Type, env.Payload, err, 0)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	m.mu.RLock()
	attempts, backoff, timeout := m.maxRetry, m.backoff, m.timeout
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, timeout)
		err := job.Handle(jobCtx)
		cancel()
		if err == nil {
			metrics.RecordQueueJob(env.Type, "processed", start)
			logger.Info("queue: job processed", "type", env.Type, "attempt", attempt)
			return
		}
		lastErr = err
		logger.Warn("queue: job failed", "type", env.Type, "attempt", attempt, "error", err)
		if attempt < attempts && !sleep(ctx, backoff<<(attempt-1)) {
			break
		}
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)
	m.fail(ctx, env.Type, env.Payload, lastErr, attempts)
}

func (m *Manager) fail(ctx context.Context, jobType string, payload json.RawMessage, err error, attempts int) {
	f := FailedJob{
		JobType:  jobType,
		Payload:  payload,
		Raw:      string(payload),
		Error:    err.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.failed = append(m.failed, f)
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return
	}
	// The request or worker context may already be done; the record should
	// still land.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := store.Save(saveCtx, f); err != nil {
		logger.Error("queue: persist failed job", "type", jobType, "error", err)
	}
}

// FailedJobs returns the failures seen by this process.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

// sleep waits d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
