package models

import (
	"time"
)

// TargetType classifies a small solar system body designation.
type TargetType string

const (
	TargetAsteroid           TargetType = "asteroid"
	TargetComet              TargetType = "comet"
	TargetInterstellarObject TargetType = "interstellar object"
	TargetUnknown            TargetType = "unknown"
)

// QueryStatus is the terminal outcome of a single submit call.
type QueryStatus string

const (
	QueryUndefined QueryStatus = "undefined"
	QuerySuccess   QueryStatus = "success"
	QueryQueued    QueryStatus = "queued"
	QueryQueueFull QueryStatus = "queue full"
)

// TargetQuery is the sanitized input to a survey search. It is built once
// by the catch handler and passed by value from there on.
type TargetQuery struct {
	Target             string     `json:"target"`
	Type               TargetType `json:"type"`
	Sources            []string   `json:"sources"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	StopDate           *time.Time `json:"stop_date,omitempty"`
	// Cached permits reuse of prior results with identical parameters.
	Cached             bool    `json:"cached"`
	UncertaintyEllipse bool    `json:"uncertainty_ellipse"`
	Padding            float64 `json:"padding"`
}
