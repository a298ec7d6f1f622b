package http

import (
	"net/http"
	"time"

	"github.com/noteloom/noteloom/internal/identity/store"
	"github.com/noteloom/noteloom/pkg/httpx"
	"github.com/noteloom/noteloom/pkg/sessionx"
)

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// LivezHandler always answers 200 while the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler answers 200 only when both backing stores respond.
func ReadyzHandler(startTime time.Time, version string, st store.Store, cache *sessionx.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		if err := st.Ping(r.Context()); err != nil {
			resp.Status = "store unavailable"
			httpx.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		if err := cache.Ping(r.Context()); err != nil {
			resp.Status = "cache unavailable"
			httpx.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
