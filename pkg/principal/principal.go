// Package principal defines the identity propagation contract between the
// gateway and downstream services. The gateway writes these headers after
// verifying a token; downstream services read them and must never receive
// client-supplied values, so the gateway strips any inbound copies first.
package principal

import (
	"net/http"
	"strings"
)

// Propagated header names. Keep these stable: every downstream service
// reads them.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUsername  = "X-Username"
	HeaderNickname  = "X-Nickname"
	HeaderSessionID = "X-Session-Id"
	HeaderRoles     = "X-User-Roles"
	HeaderPerms     = "X-User-Perms"
)

var allHeaders = []string{
	HeaderUserID,
	HeaderUsername,
	HeaderNickname,
	HeaderSessionID,
	HeaderRoles,
	HeaderPerms,
}

// Principal is the verified identity snapshot attached to a request.
type Principal struct {
	UserID    string
	Username  string
	Nickname  string
	SessionID string
	Roles     []string
	Perms     []string
}

// Strip removes every identity header from h. Called on all inbound
// requests before the gateway decides whether to set fresh values.
func Strip(h http.Header) {
	for _, name := range allHeaders {
		h.Del(name)
	}
}

// Set writes the principal into h, replacing any existing values.
// Roles and permissions are comma-joined.
func Set(h http.Header, p Principal) {
	h.Set(HeaderUserID, p.UserID)
	h.Set(HeaderUsername, p.Username)
	h.Set(HeaderNickname, p.Nickname)
	h.Set(HeaderSessionID, p.SessionID)
	h.Set(HeaderRoles, strings.Join(p.Roles, ","))
	h.Set(HeaderPerms, strings.Join(p.Perms, ","))
}

// FromHeader reconstructs the principal a gateway injected upstream.
// ok is false when no identity headers are present (anonymous request).
func FromHeader(h http.Header) (p Principal, ok bool) {
	p.UserID = h.Get(HeaderUserID)
	if p.UserID == "" {
		return Principal{}, false
	}

	p.Username = h.Get(HeaderUsername)
	p.Nickname = h.Get(HeaderNickname)
	p.SessionID = h.Get(HeaderSessionID)
	p.Roles = splitList(h.Get(HeaderRoles))
	p.Perms = splitList(h.Get(HeaderPerms))
	return p, true
}

// HasRole reports whether the principal carries the named role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
