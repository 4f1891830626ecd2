package catch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smallbodies/catch-api/pkg/models"
)

// Sentinel errors for cross-match engine failures. These are transport
// problems, never user-facing.
var (
	ErrEngineUnreachable = errors.New("cross-match engine unreachable")
	ErrEngineTimeout     = errors.New("cross-match engine timeout")
)

// RemoteMatcher implements Matcher against the cross-match engine's
// HTTP API. The engine computes the target ephemeris and intersects it
// with survey footprints; a 400 response carries a user-safe message
// and is surfaced as *Error.
type RemoteMatcher struct {
	baseURL string
	client  *http.Client
}

// NewRemoteMatcher creates a RemoteMatcher.
func NewRemoteMatcher(baseURL string, timeout time.Duration) *RemoteMatcher {
	return &RemoteMatcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type engineError struct {
	Message string `json:"message"`
}

func (m *RemoteMatcher) FindObservations(ctx context.Context, target, source string, params SearchParams, _ Progress) ([]models.CaughtObservation, error) {
	values := url.Values{
		"target":              {target},
		"source":              {source},
		"uncertainty_ellipse": {strconv.FormatBool(params.UncertaintyEllipse)},
		"padding":             {strconv.FormatFloat(params.Padding, 'f', -1, 64)},
	}
	setDates(values, params.StartDate, params.StopDate)

	var data struct {
		Data []models.CaughtObservation `json:"data"`
	}
	if err := m.get(ctx, "/moving", values, &data); err != nil {
		return nil, err
	}
	return data.Data, nil
}

func (m *RemoteMatcher) FindFixed(ctx context.Context, ra, dec float64, source string, params FixedParams) ([]models.FixedObservation, error) {
	values := url.Values{
		"ra":     {strconv.FormatFloat(ra, 'f', -1, 64)},
		"dec":    {strconv.FormatFloat(dec, 'f', -1, 64)},
		"source": {source},
		"radius": {strconv.FormatFloat(params.Radius, 'f', -1, 64)},
	}
	setDates(values, params.StartDate, params.StopDate)

	var data struct {
		Data []models.FixedObservation `json:"data"`
	}
	if err := m.get(ctx, "/fixed", values, &data); err != nil {
		return nil, err
	}
	return data.Data, nil
}

func (m *RemoteMatcher) get(ctx context.Context, path string, values url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", m.baseURL, path, values.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		// the engine rejected the query for a reason users can act on
		var body engineError
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Message == "" {
			return fmt.Errorf("cross-match engine rejected query (status %d)", resp.StatusCode)
		}
		return &Error{Message: body.Message}
	default:
		return fmt.Errorf("cross-match engine: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding engine response: %w", err)
	}
	return nil
}

func setDates(values url.Values, start, stop *time.Time) {
	if start != nil {
		values.Set("start_date", start.UTC().Format(time.RFC3339))
	}
	if stop != nil {
		values.Set("stop_date", stop.UTC().Format(time.RFC3339))
	}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrEngineTimeout, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrEngineUnreachable, err)
}
