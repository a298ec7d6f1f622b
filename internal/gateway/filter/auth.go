package filter

import (
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/noteloom/noteloom/pkg/httpx"
	"github.com/noteloom/noteloom/pkg/principal"
	"github.com/noteloom/noteloom/pkg/sessionx"
	"github.com/noteloom/noteloom/pkg/tokenx"
)

// tokenRejected is the one body every verification failure gets. Callers
// must not be able to tell a forged token from a revoked one.
var tokenRejected = struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}{Code: 1006, Message: "token expired or invalid"}

// Auth is the verification stage: decode the bearer token, require a live
// session, slide its TTL, and replace any client-supplied identity headers
// with verified ones.
type Auth struct {
	Codec  tokenx.Codec
	Cache  *sessionx.Store
	Logger *slog.Logger

	// Allowlist holds path.Match globs that bypass verification
	// entirely (login, public assets).
	Allowlist []string

	// SessionTTL is the sliding window applied on each touch. Matches
	// the identity service's access-token lifetime.
	SessionTTL time.Duration
}

func (a *Auth) allowlisted(reqPath string) bool {
	for _, pattern := range a.Allowlist {
		if ok, err := path.Match(pattern, reqPath); err == nil && ok {
			return true
		}
	}
	return false
}

func (a *Auth) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Verified identity is the only identity: whatever the
			// client sent in these headers goes away first.
			principal.Strip(r.Header)

			if a.allowlisted(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := httpx.BearerToken(r)
			if token == "" {
				// Anonymous pass-through; per-endpoint authorization
				// is the downstream's call.
				next.ServeHTTP(w, r)
				return
			}

			claims, err := a.Codec.Decode(token)
			if err != nil {
				a.reject(w, r, "decode failed")
				return
			}

			// The session store is the source of truth for liveness; a
			// valid signature alone admits nothing. Touch slides the
			// TTL and reports existence in one call.
			alive, err := a.Cache.TouchSession(r.Context(), claims.SessionID(), a.SessionTTL)
			if err != nil || !alive {
				a.reject(w, r, "no live session")
				return
			}

			principal.Set(r.Header, principal.Principal{
				UserID:    claims.UserID(),
				Username:  claims.Username,
				Nickname:  claims.Nickname,
				SessionID: claims.SessionID(),
				Roles:     claims.Roles,
				Perms:     claims.Perms,
			})
			next.ServeHTTP(w, r)
		})
	}
}

// reject logs the real reason and answers with the uniform body.
func (a *Auth) reject(w http.ResponseWriter, r *http.Request, reason string) {
	a.Logger.InfoContext(r.Context(), "token rejected",
		"path", r.URL.Path,
		"reason", reason,
	)
	httpx.WriteJSON(w, http.StatusUnauthorized, tokenRejected)
}
