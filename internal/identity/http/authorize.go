package http

import (
	"net/http"

	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/pkg/httpx"
)

// AuthorizeURLHandler serves GET /v1/oauth/{provider}/authorize: records
// a fresh state and hands the client the provider's authorize URL.
type AuthorizeURLHandler struct {
	AuthService *service.AuthService
}

func (h *AuthorizeURLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")
	if providerName == "" {
		writeBadRequest(w, "provider required")
		return
	}

	raw, err := h.AuthService.AuthorizeURL(r.Context(), providerName)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"authorizeUrl": raw})
}
