package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbodies/catch-api/internal/api/response"
	"github.com/smallbodies/catch-api/internal/cache"
)

const defaultRequestsPerMinute = 60

// RateLimit provides per-client-IP rate limiting via Redis. The API is
// unauthenticated, so the client address is the only identity we have.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates a new RateLimit middleware.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// Limit applies rate limiting keyed by client IP.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := cache.RateLimitKey(clientIP(r))
		count, err := rl.cache.IncrWithExpiry(r.Context(), key, 60*time.Second)
		if err != nil {
			// On Redis error, allow the request (fail open)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(60*time.Second).Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
