// Package worker executes queued survey searches. A Task is one search
// invocation; a Worker is the long-running loop that drains the jobs
// queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smallbodies/catch-api/internal/bus"
	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/pkg/models"
)

const (
	startText      = "Starting moving target query."
	completeText   = "Task complete."
	unexpectedText = "An unexpected error occurred.  Contact us if this problem persists."
)

// Task runs one search job end to end, publishing progress and exactly
// one terminal message per invocation. Domain error messages are
// surfaced to users verbatim; anything else gets a generic text so
// internals never leak onto the stream.
type Task struct {
	searcher catch.Searcher
	pub      bus.Publisher
	logger   *slog.Logger
}

// NewTask creates a Task.
func NewTask(searcher catch.Searcher, pub bus.Publisher, logger *slog.Logger) *Task {
	return &Task{searcher: searcher, pub: pub, logger: logger}
}

// Run executes the job. The returned error is for operator logs; the
// user-facing outcome has already been published when Run returns.
func (t *Task) Run(ctx context.Context, job models.QueuedJob) (err error) {
	monitor := bus.NewMonitor(t.pub, job.JobID)
	defer monitor.Close()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("search task panic", "job_id", job.JobID, "panic", r)
			monitor.Error(ctx, unexpectedText)
			err = fmt.Errorf("search task panic: %v", r)
		}
	}()

	monitor.Running(ctx, startText)

	// The timeout bounds the search only; terminal messages publish on
	// the parent context so a timed-out job still reports its failure.
	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	params := catch.ParamsOf(job.Query)
	err = t.searcher.Search(runCtx, job.JobID, job.Query.Target, job.Query.Sources, params, job.Query.Cached, monitor.Progress(runCtx))
	if err != nil {
		var domainErr *catch.Error
		if errors.As(err, &domainErr) {
			t.logger.Error("search failed", "job_id", job.JobID, "error", err)
			monitor.Error(ctx, domainErr.Message)
		} else {
			t.logger.Error("unexpected search failure", "job_id", job.JobID, "error", err)
			monitor.Error(ctx, unexpectedText)
		}
		return err
	}

	monitor.Success(ctx, completeText)
	return nil
}
