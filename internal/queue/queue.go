// Package queue is the bounded, durable jobs queue shared by the API
// and worker processes. Pending work lives in a Redis list; admission
// control is the caller's responsibility via IsFull.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbodies/catch-api/pkg/models"
)

// Queue is a FIFO work queue with a soft capacity bound.
type Queue struct {
	client *redis.Client
	key    string
	max    int
}

// New creates a queue on the named Redis list with the given soft
// capacity bound.
func New(client *redis.Client, key string, max int) *Queue {
	return &Queue{client: client, key: key, max: max}
}

// Max returns the configured capacity bound.
func (q *Queue) Max() int {
	return q.max
}

// Len returns the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return int(n), nil
}

// IsFull reports whether the queue is at or over capacity. Callers must
// check this before Enqueue; the check and the enqueue are deliberately
// not atomic, so concurrent submitters may overcommit the soft bound by
// a small amount.
func (q *Queue) IsFull(ctx context.Context) (bool, error) {
	n, err := q.Len(ctx)
	if err != nil {
		return false, err
	}
	return n >= q.max, nil
}

// Enqueue appends a job and returns it with its live queue position.
func (q *Queue) Enqueue(ctx context.Context, job models.QueuedJob) (models.QueuedJob, error) {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return models.QueuedJob{}, fmt.Errorf("marshal job: %w", err)
	}
	n, err := q.client.RPush(ctx, q.key, payload).Result()
	if err != nil {
		return models.QueuedJob{}, fmt.Errorf("enqueue job: %w", err)
	}
	job.Position = int(n) - 1
	return job, nil
}

// Jobs returns a snapshot of pending jobs in FIFO order with 0-based
// positions.
func (q *Queue) Jobs(ctx context.Context) ([]models.QueuedJob, error) {
	payloads, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]models.QueuedJob, 0, len(payloads))
	for i, payload := range payloads {
		var job models.QueuedJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, fmt.Errorf("decode job at position %d: %w", i, err)
		}
		job.Position = i
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Dequeue blocks until a job is available or the context ends. Jobs are
// delivered in FIFO enqueue order.
func (q *Queue) Dequeue(ctx context.Context) (models.QueuedJob, error) {
	res, err := q.client.BLPop(ctx, 0, q.key).Result()
	if err != nil {
		return models.QueuedJob{}, fmt.Errorf("dequeue job: %w", err)
	}
	// BLPOP returns [key, value]
	if len(res) != 2 {
		return models.QueuedJob{}, fmt.Errorf("dequeue job: unexpected reply of %d elements", len(res))
	}
	var job models.QueuedJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return models.QueuedJob{}, fmt.Errorf("decode dequeued job: %w", err)
	}
	return job, nil
}
