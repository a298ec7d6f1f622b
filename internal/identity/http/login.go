package http

import (
	"encoding/json"
	"net/http"

	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/pkg/httpx"
	"github.com/noteloom/noteloom/pkg/slogx"
)

// LoginHandler serves POST /v1/auth/login. The body is the login request
// JSON; loginType picks the credential path.
type LoginHandler struct {
	AuthService *service.AuthService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var in service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if in.LoginType == "" {
		writeBadRequest(w, "loginType required")
		return
	}

	res, err := h.AuthService.Login(ctx, in)
	if err != nil {
		log.InfoContext(ctx, "login rejected",
			"login_type", in.LoginType,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	log.InfoContext(ctx, "login succeeded",
		"login_type", in.LoginType,
		"user_id", res.UserID,
	)
	httpx.WriteJSON(w, http.StatusOK, res)
}
