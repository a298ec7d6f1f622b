package http

import (
	"net/http"

	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/pkg/httpx"
)

// LogoutHandler serves POST /v1/auth/logout. Always 200: logout with a
// stale or garbage token has already achieved what the caller wanted.
type LogoutHandler struct {
	AuthService *service.AuthService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), httpx.BearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
