package http

import (
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/pkg/httpx"
)

// EmailCodeHandler serves POST /v1/auth/email-code. The response never
// says whether an account exists for the address.
type EmailCodeHandler struct {
	EmailCodeService *service.EmailCodeService
}

func (h *EmailCodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		writeBadRequest(w, "valid email required")
		return
	}

	if err := h.EmailCodeService.Send(r.Context(), in.Email); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
