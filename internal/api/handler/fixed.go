package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/smallbodies/catch-api/internal/api/response"
	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/pkg/models"
)

// FixedSearcher runs synchronous cone searches.
type FixedSearcher interface {
	Fixed(ctx context.Context, ra, dec float64, sources []string, params catch.FixedParams) ([]models.FixedObservation, error)
}

type fixedQueryEcho struct {
	RA        float64  `json:"ra"`
	Dec       float64  `json:"dec"`
	Sources   []string `json:"sources"`
	StartDate *string  `json:"start_date"`
	StopDate  *string  `json:"stop_date"`
	Radius    float64  `json:"radius"`
}

type fixedPayload struct {
	Message string                   `json:"message"`
	Version string                   `json:"version"`
	Query   fixedQueryEcho           `json:"query"`
	Count   int                      `json:"count"`
	Data    []models.FixedObservation `json:"data"`
}

// NewFixedHandler returns the handler for GET /fixed. Coordinates are
// decimal degrees.
func NewFixedHandler(svc FixedSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var messages []string

		ra, err := strconv.ParseFloat(q.Get("ra"), 64)
		if err != nil || ra < 0 || ra >= 360 {
			messages = append(messages, "Invalid ra: "+q.Get("ra"))
		}
		dec, err := strconv.ParseFloat(q.Get("dec"), 64)
		if err != nil || dec < -90 || dec > 90 {
			messages = append(messages, "Invalid dec: "+q.Get("dec"))
		}

		sources, srcMessages := parseSources(q["sources"])
		messages = append(messages, srcMessages...)

		startDate, stopDate, dateMessages := parseDates(q.Get("start_date"), q.Get("stop_date"))
		messages = append(messages, dateMessages...)

		radius, err := parseFloatParam(q.Get("radius"), 0)
		if err != nil || radius < 0 {
			messages = append(messages, "Invalid radius: "+q.Get("radius"))
		}

		if len(messages) > 0 {
			response.Error(w, http.StatusOK, strings.Join(messages, "  "))
			return
		}

		params := catch.FixedParams{StartDate: startDate, StopDate: stopDate, Radius: radius}
		data, err := svc.Fixed(r.Context(), ra, dec, sources, params)
		if err != nil {
			var domainErr *catch.Error
			if errors.As(err, &domainErr) {
				response.Error(w, http.StatusOK, domainErr.Message)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"Unexpected error.  Please contact us with the details of your query.")
			return
		}
		if data == nil {
			data = []models.FixedObservation{}
		}

		response.JSON(w, http.StatusOK, fixedPayload{
			Message: "",
			Version: Version,
			Query: fixedQueryEcho{
				RA:        ra,
				Dec:       dec,
				Sources:   sources,
				StartDate: formatDate(startDate),
				StopDate:  formatDate(stopDate),
				Radius:    radius,
			},
			Count: len(data),
			Data:  data,
		})
	}
}
