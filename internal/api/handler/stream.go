package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/smallbodies/catch-api/internal/api/response"
	"github.com/smallbodies/catch-api/internal/bus"
)

// keepAliveInterval is the block time of each stream read; a comment
// line goes out whenever a read comes back empty.
const keepAliveInterval = 3 * time.Second

// NewStreamHandler returns the handler for GET /stream: all task
// messages as server-sent events, starting at "now". The connection
// closes with a timeout comment after streamTimeout of continuous
// silence. An optional timeout query parameter (seconds) caps the total
// connection time regardless of activity.
func NewStreamHandler(reader bus.Reader, streamTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "Streaming unsupported")
			return
		}

		var deadline time.Time
		if v := r.URL.Query().Get("timeout"); v != "" {
			if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
				deadline = time.Now().Add(time.Duration(secs * float64(time.Second)))
			}
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		maxQuiet := int(streamTimeout / keepAliveInterval)
		cursor := bus.StartCursor
		quiet := 0
		ctx := r.Context()

		for {
			entries, err := reader.Read(ctx, cursor, 1, keepAliveInterval)
			if err != nil {
				return
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				return
			}

			if len(entries) == 0 {
				quiet++
				if quiet > maxQuiet {
					io.WriteString(w, ": timeout\n\n")
					flusher.Flush()
					return
				}
				io.WriteString(w, ": stayin' alive\n\n")
				flusher.Flush()
				continue
			}

			for _, entry := range entries {
				cursor = entry.Cursor
				if entry.Data == "" {
					continue
				}
				quiet = 0
				fmt.Fprintf(w, "data: %s\n\n", entry.Data)
			}
			flusher.Flush()
		}
	}
}
