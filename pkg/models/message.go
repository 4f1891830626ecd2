package models

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle of a single worker execution. Transitions are
// monotonic: queued -> running -> success | error.
type TaskStatus string

const (
	TaskNone    TaskStatus = "none"
	TaskSuccess TaskStatus = "success"
	TaskError   TaskStatus = "error"
	TaskRunning TaskStatus = "running"
	TaskQueued  TaskStatus = "queued"
)

// Message is a single task progress message published to the shared task
// message stream. Messages are immutable once published; consumers filter
// by JobPrefix client-side.
type Message struct {
	JobPrefix string     `json:"job_prefix"`
	Text      string     `json:"text"`
	Elapsed   float64    `json:"elapsed"`
	Status    TaskStatus `json:"status,omitempty"`
}

// JobPrefix returns the first 8 hex characters of the job ID, used as the
// routing key on the message stream.
func JobPrefix(jobID uuid.UUID) string {
	return hex.EncodeToString(jobID[:4])
}
