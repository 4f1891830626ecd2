package models

import (
	"time"

	"github.com/google/uuid"
)

// QueuedJob is one deferred search invocation held in the jobs queue.
// Position is derived from the queue contents at read time; it is not
// stored with the job.
type QueuedJob struct {
	JobID      uuid.UUID     `json:"job_id"`
	Query      TargetQuery   `json:"query"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	Timeout    time.Duration `json:"timeout"`
	Position   int           `json:"-"`
}

// QueueJobSummary is one entry of the live queue snapshot.
type QueueJobSummary struct {
	Prefix     string     `json:"prefix"`
	Position   int        `json:"position"`
	EnqueuedAt string     `json:"enqueued_at"`
	Status     TaskStatus `json:"status"`
}

// QueueStatus is a point-in-time summary of the jobs queue. Depth is
// the configured capacity, not the number of pending jobs.
type QueueStatus struct {
	Depth int               `json:"depth"`
	Full  bool              `json:"full"`
	Jobs  []QueueJobSummary `json:"jobs"`
}
