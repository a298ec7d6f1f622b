package http

import (
	"errors"
	"net/http"

	"github.com/noteloom/noteloom/internal/identity/provider"
	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/pkg/httpx"
)

// ErrorBody is the wire shape for every failed request.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Stable wire codes. Clients key off these, not HTTP statuses or message
// text, so they never get renumbered.
const (
	CodeInvalidCredentials = 1001
	CodeAccountDisabled    = 1002
	CodeEmailCodeExpired   = 1003
	CodeEmailCodeMismatch  = 1004
	CodeThirdPartyAuth     = 1005
	CodeTokenInvalid       = 1006
	CodeRefreshInvalid     = 1007
	CodeIdentityNotFound   = 1008
	CodeUnsupportedLogin   = 1009
	CodeCaptchaInvalid     = 1010

	CodeBadRequest = 1400
	CodeInternal   = 1500
)

type mapping struct {
	status  int
	code    int
	message string
}

var errorMappings = []struct {
	sentinel error
	mapping
}{
	{service.ErrInvalidCredentials, mapping{http.StatusUnauthorized, CodeInvalidCredentials, "invalid username or password"}},
	{service.ErrAccountDisabled, mapping{http.StatusForbidden, CodeAccountDisabled, "account disabled"}},
	{service.ErrCodeExpired, mapping{http.StatusUnauthorized, CodeEmailCodeExpired, "email code expired or missing"}},
	{service.ErrCodeMismatch, mapping{http.StatusUnauthorized, CodeEmailCodeMismatch, "email code mismatch"}},
	{provider.ErrAuthFailed, mapping{http.StatusUnauthorized, CodeThirdPartyAuth, "third-party authentication failed"}},
	{service.ErrRefreshInvalid, mapping{http.StatusUnauthorized, CodeRefreshInvalid, "refresh token invalid"}},
	{service.ErrIdentityNotFound, mapping{http.StatusUnauthorized, CodeIdentityNotFound, "identity not found"}},
	{service.ErrUnsupportedLoginType, mapping{http.StatusBadRequest, CodeUnsupportedLogin, "unsupported login type"}},
	{service.ErrCaptchaInvalid, mapping{http.StatusUnauthorized, CodeCaptchaInvalid, "captcha invalid"}},
}

// writeError maps a service error onto the stable wire code table.
// Anything unmapped is an internal error and deliberately carries no
// detail.
func writeError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			httpx.WriteJSON(w, m.status, ErrorBody{Code: m.code, Message: m.message})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: "internal error"})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	httpx.WriteJSON(w, http.StatusBadRequest, ErrorBody{Code: CodeBadRequest, Message: message})
}
