package filter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/noteloom/noteloom/pkg/httpx"
	"github.com/noteloom/noteloom/pkg/principal"
)

// AccessLog is the final stage: one line per forwarded request with the
// verified identity attached. Observes only; never blocks or mutates.
func AccessLog(logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", clientIP(r),
			}
			if p, ok := principal.FromHeader(r.Header); ok {
				attrs = append(attrs, "user_id", p.UserID, "username", p.Username)
			}
			logger.Info("access", attrs...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
