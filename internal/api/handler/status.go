package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smallbodies/catch-api/internal/api/response"
	"github.com/smallbodies/catch-api/pkg/models"
)

// StatusService serves the read-side status endpoints.
type StatusService interface {
	Sources(ctx context.Context) ([]models.SourceSummary, error)
	Updates(ctx context.Context) ([]models.QueryUpdate, error)
	JobStatus(ctx context.Context, jobID uuid.UUID) (models.QueryParameters, []models.SourceStatus, bool, error)
	QueueStatus(ctx context.Context) (models.QueueStatus, error)
}

// NewSourcesHandler returns the handler for GET /status/sources.
func NewSourcesHandler(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Sources(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}
		if data == nil {
			data = []models.SourceSummary{}
		}
		response.JSON(w, http.StatusOK, struct {
			Data    []models.SourceSummary `json:"data"`
			Version string                 `json:"version"`
		}{data, Version})
	}
}

// NewUpdatesHandler returns the handler for GET /status/updates.
func NewUpdatesHandler(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Updates(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}
		if data == nil {
			data = []models.QueryUpdate{}
		}
		response.JSON(w, http.StatusOK, struct {
			Data    []models.QueryUpdate `json:"data"`
			Version string               `json:"version"`
		}{data, Version})
	}
}

// NewQueueStatusHandler returns the handler for GET /status/queue.
func NewQueueStatusHandler(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.QueueStatus(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}
		if status.Jobs == nil {
			status.Jobs = []models.QueueJobSummary{}
		}
		response.JSON(w, http.StatusOK, struct {
			models.QueueStatus
			Version string `json:"version"`
		}{status, Version})
	}
}

type jobStatusPayload struct {
	JobID      string                  `json:"job_id"`
	Parameters *models.QueryParameters `json:"parameters"`
	Status     []models.SourceStatus   `json:"status"`
	Message    string                  `json:"message,omitempty"`
	Version    string                  `json:"version"`
}

// NewJobStatusHandler returns the handler for GET /status/{jobID}. An
// unknown job id is a 200 with an empty status list, not a 404.
func NewJobStatusHandler(svc StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid job ID")
			return
		}

		params, statuses, found, err := svc.JobStatus(r.Context(), jobID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}

		payload := jobStatusPayload{
			JobID:   hexID(jobID),
			Status:  []models.SourceStatus{},
			Version: Version,
		}
		if found {
			payload.Parameters = &params
			payload.Status = statuses
		} else {
			payload.Message = "Job ID not found."
		}
		response.JSON(w, http.StatusOK, payload)
	}
}
