package bus

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/smallbodies/catch-api/pkg/models"
)

// JobClock is the reference time for a single job's elapsed-time
// reporting. Each submission or worker invocation owns its own clock, so
// concurrent jobs never interfere with each other's elapsed values.
type JobClock struct {
	t0 time.Time
}

// NewJobClock starts a clock at the current time.
func NewJobClock() JobClock {
	return JobClock{t0: time.Now()}
}

// Elapsed returns seconds since the reference time, rounded to 0.1 s.
func (c JobClock) Elapsed() float64 {
	return math.Round(time.Since(c.t0).Seconds()*10) / 10
}

// Monitor publishes task messages scoped to one job. It is handed to the
// search capability as an explicit progress callback; Close detaches it,
// after which further publishes are dropped. Close is idempotent and
// must run on every task path.
type Monitor struct {
	pub    Publisher
	prefix string
	clock  JobClock
	closed atomic.Bool
}

// NewMonitor creates a monitor for the job with a fresh reference clock.
func NewMonitor(pub Publisher, jobID uuid.UUID) *Monitor {
	return &Monitor{
		pub:    pub,
		prefix: models.JobPrefix(jobID),
		clock:  NewJobClock(),
	}
}

// Running publishes a running-status message.
func (m *Monitor) Running(ctx context.Context, text string) {
	m.publish(ctx, models.TaskRunning, text)
}

// Success publishes the success terminal message.
func (m *Monitor) Success(ctx context.Context, text string) {
	m.publish(ctx, models.TaskSuccess, text)
}

// Error publishes the error terminal message.
func (m *Monitor) Error(ctx context.Context, text string) {
	m.publish(ctx, models.TaskError, text)
}

// Progress returns a callback that publishes running-status messages; it
// is the hook handed to the external search capability.
func (m *Monitor) Progress(ctx context.Context) func(text string) {
	return func(text string) {
		m.Running(ctx, text)
	}
}

// Close detaches the monitor. Subsequent publishes are silently dropped.
func (m *Monitor) Close() {
	m.closed.Store(true)
}

func (m *Monitor) publish(ctx context.Context, status models.TaskStatus, text string) {
	if m.closed.Load() {
		return
	}
	msg := models.Message{
		JobPrefix: m.prefix,
		Text:      text,
		Elapsed:   m.clock.Elapsed(),
		Status:    status,
	}
	if err := m.pub.Publish(ctx, msg); err != nil {
		// Messages are advisory; the job itself must not fail because
		// the stream is unavailable.
		slog.Error("publish task message failed", "job_prefix", m.prefix, "error", err)
	}
}
