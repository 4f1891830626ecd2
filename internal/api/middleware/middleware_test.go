package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Ping(context.Context) error { return nil }

func (f *fakeCounter) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimit(&fakeCounter{}, 2)
	h := rl.Limit(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/catch", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	rl := NewRateLimit(&fakeCounter{}, 1)
	h := rl.Limit(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/catch", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	assert.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodGet, "/catch", nil)
	second.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimit_KeyedByClientIP(t *testing.T) {
	counter := &fakeCounter{}
	rl := NewRateLimit(counter, 1)
	h := rl.Limit(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/catch", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, counter.counts, 2)
}

func TestRateLimit_ForwardedForWins(t *testing.T) {
	counter := &fakeCounter{}
	rl := NewRateLimit(counter, 10)
	h := rl.Limit(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/catch", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Contains(t, counter.counts, "ratelimit:203.0.113.7")
}

func TestRateLimit_FailsOpenOnRedisError(t *testing.T) {
	rl := NewRateLimit(&fakeCounter{err: errors.New("redis down")}, 1)
	h := rl.Limit(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/catch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/catch", nil)
	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() { h.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestLogger_PassesThrough(t *testing.T) {
	h := Logger(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/catch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
