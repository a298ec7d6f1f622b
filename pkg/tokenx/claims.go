package tokenx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims shared between the identity service
// (which signs them) and the gateway (which only verifies). The "jti"
// registered claim doubles as the session id the session store is keyed by.
type Claims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user
	Username string `json:"username,omitempty"`

	// Nickname is the display name for the user
	Nickname string `json:"nickname,omitempty"`

	// Roles granted to the user at issuance time
	Roles []string `json:"roles,omitempty"`

	// Perms are the permission codes resolved at issuance time.
	// They are NOT re-resolved per request; a fresh login or refresh
	// picks up changes.
	Perms []string `json:"perms,omitempty"`
}

// SessionID returns the token identifier the session store is keyed by.
func (c *Claims) SessionID() string { return c.ID }

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// NewClaims builds minimally-correct claims for an access token.
func NewClaims(
	userID, sessionID string,
	username, nickname string,
	roles, perms []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        sessionID,
		},
		Username: username,
		Nickname: nickname,
		Roles:    roles,
		Perms:    perms,
	}
}
