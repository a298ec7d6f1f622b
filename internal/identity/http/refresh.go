package http

import (
	"encoding/json"
	"net/http"

	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/pkg/httpx"
)

// RefreshHandler serves POST /v1/auth/refresh. The refresh token is
// single-use: success invalidates it and the response carries its
// replacement.
type RefreshHandler struct {
	AuthService *service.AuthService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if in.RefreshToken == "" {
		writeBadRequest(w, "refreshToken required")
		return
	}

	res, err := h.AuthService.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
