// Package catch is the boundary with the survey search capability: the
// ephemeris/footprint cross-match itself is delegated to a Matcher,
// while this package owns the persisted per-(job, source) query records,
// cache reuse, result retrieval, and survey statistics.
package catch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smallbodies/catch-api/pkg/models"
)

// ErrNotFound is returned when no query records exist for a job id.
var ErrNotFound = errors.New("no queries for job id")

// Error is a recognized domain failure of a search (bad ephemeris
// lookup, unsupported designation, ...). Its message is safe to surface
// to users verbatim; any other error kind must not be.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds a domain error with a user-safe message.
func Errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// SearchParams are the tunable parameters of a moving target search.
// Two searches are cache-equivalent only when all of them match.
type SearchParams struct {
	StartDate          *time.Time
	StopDate           *time.Time
	UncertaintyEllipse bool
	Padding            float64
}

// FixedParams are the parameters of a fixed-target cone search.
type FixedParams struct {
	StartDate *time.Time
	StopDate  *time.Time
	// Radius is the areal search around the coordinates, arcmin.
	Radius float64
}

// Progress receives human-readable search progress text.
type Progress func(text string)

// Searcher is the search capability consumed by the orchestrator,
// worker, and status services.
type Searcher interface {
	// IsCached reports whether a prior finished search for
	// (target, source) with identical parameters can be reused.
	IsCached(ctx context.Context, target, source string, params SearchParams) (bool, error)

	// Search runs (or, with cached true, copies) the search for each
	// source, persisting query and found-observation records under
	// jobID. Progress may be nil.
	Search(ctx context.Context, jobID uuid.UUID, target string, sources []string, params SearchParams, cached bool, progress Progress) error

	// Caught returns the found observations recorded under jobID.
	Caught(ctx context.Context, jobID uuid.UUID) ([]models.CaughtObservation, error)

	// Queries returns the submitted parameters and per-source status of
	// a past job, or ErrNotFound.
	Queries(ctx context.Context, jobID uuid.UUID) (models.QueryParameters, []models.SourceStatus, error)

	// Statistics returns per-source summary rows, restricted to the
	// given sources.
	Statistics(ctx context.Context, sources []string) ([]models.SourceSummary, error)

	// Updates summarizes recent query activity for the given sources.
	Updates(ctx context.Context, sources []string) ([]models.QueryUpdate, error)

	// SearchFixed runs a synchronous cone search; nothing is persisted.
	SearchFixed(ctx context.Context, ra, dec float64, sources []string, params FixedParams) ([]models.FixedObservation, error)
}

// Matcher is the external cross-match engine: given a target and a
// source archive it computes the ephemeris and intersects it with the
// survey footprints. Domain failures are reported as *Error.
type Matcher interface {
	FindObservations(ctx context.Context, target, source string, params SearchParams, progress Progress) ([]models.CaughtObservation, error)
	FindFixed(ctx context.Context, ra, dec float64, source string, params FixedParams) ([]models.FixedObservation, error)
}

var sourceNames = map[string]string{
	"neat_palomar_tricam":   "NEAT Palomar Tricam",
	"neat_maui_geodss":      "NEAT Maui GEODSS",
	"skymapper":             "SkyMapper",
	"ps1dr2":                "PanSTARRS 1 DR2",
	"catalina_bigelow":      "Catalina Sky Survey, Mt. Bigelow",
	"catalina_lemmon":       "Catalina Sky Survey, Mt. Lemmon",
	"catalina_bokneosurvey": "Catalina Sky Survey, Bok NEO Survey",
	"spacewatch":            "Spacewatch",
}

// ParamsOf extracts the search parameters of a target query.
func ParamsOf(q models.TargetQuery) SearchParams {
	return SearchParams{
		StartDate:          q.StartDate,
		StopDate:           q.StopDate,
		UncertaintyEllipse: q.UncertaintyEllipse,
		Padding:            q.Padding,
	}
}

// SourceName returns the display name of a source, falling back to the
// source key itself.
func SourceName(source string) string {
	if name, ok := sourceNames[source]; ok {
		return name
	}
	return source
}
