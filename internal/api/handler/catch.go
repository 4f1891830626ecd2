// Package handler implements the HTTP endpoints. Payload shapes follow
// the public API contract; validation failures on the submission
// endpoints are 200 responses with an explanatory message, not HTTP
// errors.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smallbodies/catch-api/internal/api/response"
	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/internal/config"
	"github.com/smallbodies/catch-api/internal/service"
	"github.com/smallbodies/catch-api/internal/target"
	"github.com/smallbodies/catch-api/pkg/models"
)

// Version is reported in every payload.
const Version = "1.0.0"

const (
	queuedMessage    = "Enqueued search.  Listen to task messaging stream until job completed, then retrieve data from results URL."
	queueFullMessage = "Queue is full, please try again later."
	cachedMessage    = "Found cached data.  Retrieve from results URL."
)

// Submitter resolves a submitted query to cached, queued, or queue-full.
type Submitter interface {
	Submit(ctx context.Context, jobID uuid.UUID, query models.TargetQuery) (service.SubmitResult, error)
}

type queryEcho struct {
	Target             string            `json:"target"`
	Type               models.TargetType `json:"type"`
	Sources            []string          `json:"sources"`
	StartDate          *string           `json:"start_date"`
	StopDate           *string           `json:"stop_date"`
	Cached             bool              `json:"cached"`
	UncertaintyEllipse bool              `json:"uncertainty_ellipse"`
	Padding            float64           `json:"padding"`
}

type catchPayload struct {
	Query         *queryEcho `json:"query,omitempty"`
	JobID         string     `json:"job_id,omitempty"`
	Queued        bool       `json:"queued"`
	QueueFull     bool       `json:"queue_full"`
	QueuePosition *int       `json:"queue_position"`
	Message       string     `json:"message"`
	Results       string     `json:"results,omitempty"`
	MessageStream string     `json:"message_stream,omitempty"`
	Version       string     `json:"version"`
}

// NewCatchHandler returns the handler for GET /catch.
func NewCatchHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var messages []string

		targetType, sanitized, err := target.Classify(q.Get("target"))
		if err != nil {
			messages = append(messages, err.Error())
		}

		sources, srcMessages := parseSources(q["sources"])
		messages = append(messages, srcMessages...)

		startDate, stopDate, dateMessages := parseDates(q.Get("start_date"), q.Get("stop_date"))
		messages = append(messages, dateMessages...)

		padding, err := parseFloatParam(q.Get("padding"), 0)
		if err != nil || padding < 0 {
			messages = append(messages, "Invalid padding: "+q.Get("padding"))
		}

		if len(messages) > 0 {
			response.JSON(w, http.StatusOK, catchPayload{
				Queued:  false,
				Message: strings.Join(messages, "  "),
				Version: Version,
			})
			return
		}

		query := models.TargetQuery{
			Target:             sanitized,
			Type:               targetType,
			Sources:            sources,
			StartDate:          startDate,
			StopDate:           stopDate,
			Cached:             parseBoolParam(q.Get("cached"), true),
			UncertaintyEllipse: parseBoolParam(q.Get("uncertainty_ellipse"), false),
			Padding:            padding,
		}

		jobID := uuid.New()
		result, err := svc.Submit(r.Context(), jobID, query)
		if err != nil {
			var domainErr *catch.Error
			if errors.As(err, &domainErr) {
				response.Error(w, http.StatusBadRequest, domainErr.Message)
				return
			}
			response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}

		payload := catchPayload{
			Query: &queryEcho{
				Target:             query.Target,
				Type:               query.Type,
				Sources:            query.Sources,
				StartDate:          formatDate(query.StartDate),
				StopDate:           formatDate(query.StopDate),
				Cached:             query.Cached,
				UncertaintyEllipse: query.UncertaintyEllipse,
				Padding:            query.Padding,
			},
			JobID:   hexID(jobID),
			Version: Version,
		}

		switch result.Status {
		case models.QueryQueued:
			payload.Queued = true
			payload.QueuePosition = result.QueuePosition
			payload.Results = baseURL(r) + "/caught/" + hexID(jobID)
			payload.MessageStream = baseURL(r) + "/stream"
			payload.Message = queuedMessage
		case models.QueryQueueFull:
			payload.QueueFull = true
			payload.Message = queueFullMessage
		default:
			payload.Results = baseURL(r) + "/caught/" + hexID(jobID)
			payload.Message = cachedMessage
		}

		response.JSON(w, http.StatusOK, payload)
	}
}

// hexID is the job id without dashes, the form used in URLs and
// payloads.
func hexID(jobID uuid.UUID) string {
	return strings.ReplaceAll(jobID.String(), "-", "")
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// parseSources validates requested sources, defaulting to the full
// allowed list.
func parseSources(requested []string) ([]string, []string) {
	if len(requested) == 0 {
		return append([]string(nil), config.AllowedSources...), nil
	}
	var messages []string
	sources := make([]string, 0, len(requested))
	for _, source := range requested {
		if !config.SourceAllowed(source) {
			messages = append(messages, "Unknown source: "+source)
			continue
		}
		sources = append(sources, source)
	}
	return sources, messages
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized date")
}

func parseDates(start, stop string) (*time.Time, *time.Time, []string) {
	var messages []string
	startDate, err := parseDate(start)
	if err != nil {
		messages = append(messages, "Invalid start_date: "+start)
	}
	stopDate, err := parseDate(stop)
	if err != nil {
		messages = append(messages, "Invalid stop_date: "+stop)
	}
	return startDate, stopDate, messages
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02 15:04:05")
	return &s
}

func parseBoolParam(value string, defaultVal bool) bool {
	if value == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseFloatParam(value string, defaultVal float64) (float64, error) {
	if value == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(value, 64)
}
