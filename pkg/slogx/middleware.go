package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/noteloom/noteloom/pkg/idx"
)

const requestIDHeader = "X-Request-ID"

// HTTPMiddleware tags every request with a request ID, places a scoped
// logger into the request context, and emits one summary line per request.
// The ID is taken from the inbound X-Request-ID header when the caller
// supplies one and minted otherwise; either way it is echoed back on the
// response so clients can quote it when reporting problems.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = idx.New().String()
			}
			w.Header().Set(requestIDHeader, reqID)

			scoped := base.With(
				slog.String("req_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(WithContext(r.Context(), scoped)))

			scoped.Info("http_request",
				slog.Int("status", sw.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("user_agent", r.UserAgent()),
			)
		})
	}
}

// statusWriter remembers the first status code written so the summary line
// can report it. A handler that never calls WriteHeader implies 200.
type statusWriter struct {
	http.ResponseWriter

	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}
