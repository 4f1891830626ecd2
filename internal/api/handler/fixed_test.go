package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/pkg/models"
)

type fakeFixed struct {
	data   []models.FixedObservation
	err    error
	ra     float64
	dec    float64
	params catch.FixedParams
	calls  int
}

func (f *fakeFixed) Fixed(_ context.Context, ra, dec float64, _ []string, params catch.FixedParams) ([]models.FixedObservation, error) {
	f.calls++
	f.ra = ra
	f.dec = dec
	f.params = params
	return f.data, f.err
}

func TestFixed_Payload(t *testing.T) {
	svc := &fakeFixed{data: []models.FixedObservation{
		{Source: "ps1dr2", SourceName: "PanSTARRS 1 DR2", ProductID: "fx_1"},
	}}
	code, body := get(t, NewFixedHandler(svc), "/fixed?ra=120.5&dec=-15.25&radius=5")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, 120.5, svc.ra)
	assert.Equal(t, -15.25, svc.dec)
	assert.Equal(t, 5.0, svc.params.Radius)

	query := body["query"].(map[string]any)
	assert.Equal(t, 120.5, query["ra"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
}

func TestFixed_InvalidCoordinates(t *testing.T) {
	for _, url := range []string{
		"/fixed?dec=0",
		"/fixed?ra=0",
		"/fixed?ra=400&dec=0",
		"/fixed?ra=0&dec=91",
		"/fixed?ra=ten&dec=0",
	} {
		svc := &fakeFixed{}
		code, body := get(t, NewFixedHandler(svc), url)

		assert.Equal(t, http.StatusOK, code, url)
		assert.Equal(t, true, body["error"], url)
		assert.NotEmpty(t, body["message"], url)
		assert.Zero(t, svc.calls, url)
	}
}

func TestFixed_DomainErrorSurfaced(t *testing.T) {
	svc := &fakeFixed{err: catch.Errorf("radius too large for ps1dr2")}
	code, body := get(t, NewFixedHandler(svc), "/fixed?ra=10&dec=10")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "radius too large for ps1dr2", body["message"])
}
