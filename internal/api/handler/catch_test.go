package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/internal/service"
	"github.com/smallbodies/catch-api/pkg/models"
)

type fakeSubmitter struct {
	result service.SubmitResult
	err    error
	query  models.TargetQuery
	jobID  uuid.UUID
	calls  int
}

func (f *fakeSubmitter) Submit(_ context.Context, jobID uuid.UUID, query models.TargetQuery) (service.SubmitResult, error) {
	f.calls++
	f.jobID = jobID
	f.query = query
	return f.result, f.err
}

func doCatch(t *testing.T, svc Submitter, url string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	NewCatchHandler(svc)(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestCatch_EmptyTargetIsInvalid(t *testing.T) {
	svc := &fakeSubmitter{}
	code, body := doCatch(t, svc, "/catch")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["queued"])
	assert.Contains(t, body["message"], "Invalid target: empty string")
	assert.Zero(t, svc.calls, "invalid query must not reach the service")
}

func TestCatch_UnparsableTargetIsInvalid(t *testing.T) {
	svc := &fakeSubmitter{}
	code, body := doCatch(t, svc, "/catch?target=not-a-designation")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["queued"])
	assert.NotEmpty(t, body["message"])
	assert.Zero(t, svc.calls)
}

func TestCatch_UnknownSourceIsInvalid(t *testing.T) {
	svc := &fakeSubmitter{}
	_, body := doCatch(t, svc, "/catch?target=65P&sources=hubble")

	assert.Contains(t, body["message"], "Unknown source: hubble")
	assert.Zero(t, svc.calls)
}

func TestCatch_BadDateIsInvalid(t *testing.T) {
	svc := &fakeSubmitter{}
	_, body := doCatch(t, svc, "/catch?target=65P&start_date=yesterday")

	assert.Contains(t, body["message"], "Invalid start_date: yesterday")
	assert.Zero(t, svc.calls)
}

func TestCatch_QueuedPayload(t *testing.T) {
	position := 2
	svc := &fakeSubmitter{result: service.SubmitResult{
		Status:        models.QueryQueued,
		QueuePosition: &position,
	}}
	code, body := doCatch(t, svc, "/catch?target=65P")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["queued"])
	assert.Equal(t, false, body["queue_full"])
	assert.Equal(t, float64(2), body["queue_position"])
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), body["job_id"])
	assert.Contains(t, body["results"], "/caught/"+body["job_id"].(string))
	assert.Contains(t, body["message_stream"], "/stream")
	assert.Contains(t, body["message"], "Enqueued search.")

	// defaults applied and target sanitized before submission
	assert.Equal(t, "65P", svc.query.Target)
	assert.Equal(t, models.TargetComet, svc.query.Type)
	assert.True(t, svc.query.Cached)
	assert.Len(t, svc.query.Sources, 8)
}

func TestCatch_QueueFullPayload(t *testing.T) {
	svc := &fakeSubmitter{result: service.SubmitResult{Status: models.QueryQueueFull}}
	code, body := doCatch(t, svc, "/catch?target=65P")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["queued"])
	assert.Equal(t, true, body["queue_full"])
	assert.Contains(t, body["message"], "Queue is full")
	_, hasResults := body["results"]
	assert.False(t, hasResults)
}

func TestCatch_CachedSuccessPayload(t *testing.T) {
	svc := &fakeSubmitter{result: service.SubmitResult{Status: models.QuerySuccess}}
	code, body := doCatch(t, svc, "/catch?target=65P&cached=true")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["queued"])
	assert.Contains(t, body["message"], "Found cached data.")
	assert.Contains(t, body["results"], "/caught/")
}

func TestCatch_CachedFalseForwarded(t *testing.T) {
	position := 0
	svc := &fakeSubmitter{result: service.SubmitResult{
		Status:        models.QueryQueued,
		QueuePosition: &position,
	}}
	_, _ = doCatch(t, svc, "/catch?target=65P&cached=false")

	assert.False(t, svc.query.Cached)
}

func TestCatch_DomainErrorIsBadRequest(t *testing.T) {
	svc := &fakeSubmitter{err: catch.Errorf("ephemeris unavailable for 65P")}
	code, body := doCatch(t, svc, "/catch?target=65P")

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ephemeris unavailable for 65P", body["message"])
}

func TestCatch_UnexpectedErrorIsOpaque(t *testing.T) {
	svc := &fakeSubmitter{err: errors.New("pgx: connection refused")}
	code, body := doCatch(t, svc, "/catch?target=65P")

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, body["message"], "pgx")
}
