package models

import "time"

// SourceSummary is one row of the survey statistics table exposed through
// the sources endpoint.
type SourceSummary struct {
	Source     string     `json:"source"`
	SourceName string     `json:"source_name"`
	Count      int64      `json:"count"`
	StartDate  *time.Time `json:"start_date"`
	StopDate   *time.Time `json:"stop_date"`
	Updated    *time.Time `json:"updated"`
}

// QueryParameters echoes the submitted parameters of a past query.
type QueryParameters struct {
	Target             string     `json:"target"`
	StartDate          *time.Time `json:"start_date"`
	StopDate           *time.Time `json:"stop_date"`
	UncertaintyEllipse bool       `json:"uncertainty_ellipse"`
	Padding            float64    `json:"padding"`
}

// SourceStatus is the per-source status of a past query. ExecutionTime is
// nil when the source was served from cache, since no search ran.
type SourceStatus struct {
	Source        string    `json:"source"`
	SourceName    string    `json:"source_name"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"`
	ExecutionTime *float64  `json:"execution_time"`
	Count         int64     `json:"count"`
}

// QueryUpdate is one row of the recent query activity summary.
type QueryUpdate struct {
	Source     string    `json:"source"`
	SourceName string    `json:"source_name"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Count      int64     `json:"count"`
}

// CaughtObservation is one found observation of a target, flattened for
// serialization: ephemeris position at the observation epoch plus the
// survey product that covers it.
type CaughtObservation struct {
	Source       string   `json:"source"`
	SourceName   string   `json:"source_name"`
	ProductID    string   `json:"product_id"`
	MJDStart     float64  `json:"mjd_start"`
	MJDStop      float64  `json:"mjd_stop"`
	FOV          string   `json:"fov"`
	FilterName   *string  `json:"filter,omitempty"`
	ExposureTime *float64 `json:"exposure,omitempty"`
	RA           float64  `json:"ra"`
	Dec          float64  `json:"dec"`
	DRA          float64  `json:"dra"`
	DDec         float64  `json:"ddec"`
	RH           float64  `json:"rh"`
	Delta        float64  `json:"delta"`
	Phase        float64  `json:"phase"`
	VMag         *float64 `json:"vmag,omitempty"`
	ArchiveURL   *string  `json:"archive_url,omitempty"`
	CutoutURL    *string  `json:"cutout_url,omitempty"`
}

// FixedObservation is one survey observation overlapping a fixed-target
// cone search.
type FixedObservation struct {
	Source       string   `json:"source"`
	SourceName   string   `json:"source_name"`
	ProductID    string   `json:"product_id"`
	MJDStart     float64  `json:"mjd_start"`
	MJDStop      float64  `json:"mjd_stop"`
	FOV          string   `json:"fov"`
	FilterName   *string  `json:"filter,omitempty"`
	ExposureTime *float64 `json:"exposure,omitempty"`
	RA           float64  `json:"ra"`
	Dec          float64  `json:"dec"`
	ArchiveURL   *string  `json:"archive_url,omitempty"`
}
