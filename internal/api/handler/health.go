package handler

import (
	"context"
	"net/http"

	"github.com/smallbodies/catch-api/internal/api/response"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the handler for GET /health.
func NewHealthHandler(db, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		payload := map[string]string{
			"status":   "ok",
			"database": "ok",
			"redis":    "ok",
			"version":  Version,
		}

		if err := db.Ping(r.Context()); err != nil {
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
		if err := redis.Ping(r.Context()); err != nil {
			payload["status"] = "degraded"
			payload["redis"] = "unreachable"
			status = http.StatusServiceUnavailable
		}

		response.JSON(w, status, payload)
	}
}
