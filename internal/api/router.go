// Package api assembles the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/smallbodies/catch-api/internal/api/middleware"
	"github.com/smallbodies/catch-api/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the
// router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	CatchHandler       http.HandlerFunc
	FixedHandler       http.HandlerFunc
	CaughtHandler      http.HandlerFunc
	StreamHandler      http.HandlerFunc
	SourcesHandler     http.HandlerFunc
	QueueStatusHandler http.HandlerFunc
	UpdatesHandler     http.HandlerFunc
	JobStatusHandler   http.HandlerFunc
}

// NewRouter builds the chi router with the middleware stack and all
// routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/health", orNotImplemented(deps.HealthHandler))

	// The stream endpoint is long-lived and stays outside the rate
	// limiter.
	r.Get("/stream", orNotImplemented(deps.StreamHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/catch", orNotImplemented(deps.CatchHandler))
		r.Get("/fixed", orNotImplemented(deps.FixedHandler))
		r.Get("/caught/{jobID}", orNotImplemented(deps.CaughtHandler))

		r.Get("/status/sources", orNotImplemented(deps.SourcesHandler))
		r.Get("/status/queue", orNotImplemented(deps.QueueStatusHandler))
		r.Get("/status/updates", orNotImplemented(deps.UpdatesHandler))
		r.Get("/status/{jobID}", orNotImplemented(deps.JobStatusHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "Endpoint not yet implemented")
	}
}
