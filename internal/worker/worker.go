package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/smallbodies/catch-api/pkg/models"
)

// Dequeuer is the read side of the jobs queue.
type Dequeuer interface {
	Dequeue(ctx context.Context) (models.QueuedJob, error)
}

// Runner executes a single job.
type Runner interface {
	Run(ctx context.Context, job models.QueuedJob) error
}

// Worker drains the jobs queue one job at a time until its context is
// canceled. Job failures are logged and never stop the loop.
type Worker struct {
	queue  Dequeuer
	runner Runner
	logger *slog.Logger
}

// New creates a Worker.
func New(queue Dequeuer, runner Runner, logger *slog.Logger) *Worker {
	return &Worker{queue: queue, runner: runner, logger: logger}
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		w.logger.Info("job dequeued", "job_id", job.JobID, "target", job.Query.Target)
		started := time.Now()
		if err := w.runner.Run(ctx, job); err != nil {
			w.logger.Error("job failed", "job_id", job.JobID, "duration", time.Since(started), "error", err)
			continue
		}
		w.logger.Info("job finished", "job_id", job.JobID, "duration", time.Since(started))
	}
}
