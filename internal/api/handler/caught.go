package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smallbodies/catch-api/internal/api/response"
	"github.com/smallbodies/catch-api/pkg/models"
)

// ResultsProvider returns the observations found by a past job.
type ResultsProvider interface {
	Caught(ctx context.Context, jobID uuid.UUID) ([]models.CaughtObservation, error)
}

type caughtPayload struct {
	JobID   string                     `json:"job_id"`
	Count   int                        `json:"count"`
	Version string                     `json:"version"`
	Data    []models.CaughtObservation `json:"data"`
}

// NewCaughtHandler returns the handler for GET /caught/{jobID}.
func NewCaughtHandler(svc ResultsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid job ID")
			return
		}

		data, err := svc.Caught(r.Context(), jobID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			return
		}
		if data == nil {
			data = []models.CaughtObservation{}
		}

		response.JSON(w, http.StatusOK, caughtPayload{
			JobID:   hexID(jobID),
			Count:   len(data),
			Version: Version,
			Data:    data,
		})
	}
}
