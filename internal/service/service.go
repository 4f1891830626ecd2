// Package service orchestrates query submission and the read-side
// status endpoints. It owns the cache/queue/queue-full decision; it does
// not run searches itself.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smallbodies/catch-api/internal/bus"
	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/internal/config"
	"github.com/smallbodies/catch-api/pkg/models"
)

// JobQueue is the admission-controlled queue consumed by Submit.
type JobQueue interface {
	IsFull(ctx context.Context) (bool, error)
	Enqueue(ctx context.Context, job models.QueuedJob) (models.QueuedJob, error)
	Jobs(ctx context.Context) ([]models.QueuedJob, error)
	Len(ctx context.Context) (int, error)
	Max() int
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	Status models.QueryStatus
	// QueuePosition is set only for queued submissions.
	QueuePosition *int
}

// Service wires the search capability, jobs queue, and message bus.
type Service struct {
	searcher   catch.Searcher
	queue      JobQueue
	pub        bus.Publisher
	jobTimeout time.Duration
	logger     *slog.Logger
}

// New creates a Service. jobTimeout bounds each deferred search.
func New(searcher catch.Searcher, queue JobQueue, pub bus.Publisher, jobTimeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		searcher:   searcher,
		queue:      queue,
		pub:        pub,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Submit resolves a query to one of three outcomes: cached results are
// copied synchronously (success), otherwise the search is enqueued
// (queued), unless the queue is at capacity (queue full). A full queue
// rejects the whole query; no partial cache copy happens.
func (s *Service) Submit(ctx context.Context, jobID uuid.UUID, query models.TargetQuery) (SubmitResult, error) {
	status := models.QueryUndefined

	if query.Cached {
		allCached, err := s.allCached(ctx, query)
		if err != nil {
			return SubmitResult{}, err
		}
		if allCached {
			// copy cached results under the new job id, within the request
			monitor := bus.NewMonitor(s.pub, jobID)
			defer monitor.Close()
			err := s.searcher.Search(ctx, jobID, query.Target, query.Sources, catch.ParamsOf(query), true, monitor.Progress(ctx))
			if err != nil {
				return SubmitResult{}, fmt.Errorf("copy cached results: %w", err)
			}
			s.logger.Info("query served from cache", "job_id", jobID, "target", query.Target)
			status = models.QuerySuccess
		}
	}

	if status == models.QuerySuccess {
		return SubmitResult{Status: status}, nil
	}

	full, err := s.queue.IsFull(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("check queue capacity: %w", err)
	}
	if full {
		s.logger.Warn("query rejected, queue full", "target", query.Target)
		return SubmitResult{Status: models.QueryQueueFull}, nil
	}

	job := models.QueuedJob{JobID: jobID, Query: query, Timeout: s.jobTimeout}
	// the deferred search always runs fresh; the cache was already ruled
	// out or ruled incomplete above
	job.Query.Cached = false
	queued, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("enqueue query: %w", err)
	}
	s.logger.Info("query enqueued", "job_id", jobID, "target", query.Target, "position", queued.Position)

	position := queued.Position
	return SubmitResult{Status: models.QueryQueued, QueuePosition: &position}, nil
}

// allCached reports whether every requested source has reusable results.
func (s *Service) allCached(ctx context.Context, query models.TargetQuery) (bool, error) {
	if len(query.Sources) == 0 {
		return false, nil
	}
	params := catch.ParamsOf(query)
	for _, source := range query.Sources {
		cached, err := s.searcher.IsCached(ctx, query.Target, source, params)
		if err != nil {
			return false, fmt.Errorf("check cache for %s: %w", source, err)
		}
		if !cached {
			return false, nil
		}
	}
	return true, nil
}

// Caught returns the found observations of a completed job.
func (s *Service) Caught(ctx context.Context, jobID uuid.UUID) ([]models.CaughtObservation, error) {
	return s.searcher.Caught(ctx, jobID)
}

// Fixed runs a synchronous fixed-target cone search.
func (s *Service) Fixed(ctx context.Context, ra, dec float64, sources []string, params catch.FixedParams) ([]models.FixedObservation, error) {
	return s.searcher.SearchFixed(ctx, ra, dec, sources, params)
}

// Sources summarizes the user-searchable survey sources.
func (s *Service) Sources(ctx context.Context) ([]models.SourceSummary, error) {
	return s.searcher.Statistics(ctx, config.AllowedSources)
}

// Updates summarizes recent query activity across searchable sources.
func (s *Service) Updates(ctx context.Context) ([]models.QueryUpdate, error) {
	return s.searcher.Updates(ctx, config.AllowedSources)
}

// JobStatus returns the parameters and per-source progress of a past
// job. An unknown job id is not an error: found is false and the other
// results are empty.
func (s *Service) JobStatus(ctx context.Context, jobID uuid.UUID) (models.QueryParameters, []models.SourceStatus, bool, error) {
	params, statuses, err := s.searcher.Queries(ctx, jobID)
	if errors.Is(err, catch.ErrNotFound) {
		return models.QueryParameters{}, nil, false, nil
	}
	if err != nil {
		return models.QueryParameters{}, nil, false, err
	}
	return params, statuses, true, nil
}

// QueueStatus snapshots the jobs queue. Entries expose only the job
// prefix; full job ids never leave the submission response.
func (s *Service) QueueStatus(ctx context.Context) (models.QueueStatus, error) {
	jobs, err := s.queue.Jobs(ctx)
	if err != nil {
		return models.QueueStatus{}, err
	}

	summaries := make([]models.QueueJobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, models.QueueJobSummary{
			Prefix:     models.JobPrefix(job.JobID),
			Position:   job.Position,
			EnqueuedAt: job.EnqueuedAt.UTC().Format(time.RFC3339),
			Status:     models.TaskQueued,
		})
	}

	return models.QueueStatus{
		Depth: s.queue.Max(),
		Full:  len(jobs) >= s.queue.Max(),
		Jobs:  summaries,
	}, nil
}
