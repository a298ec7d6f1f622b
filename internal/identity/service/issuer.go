package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noteloom/noteloom/internal/identity/domain"
	"github.com/noteloom/noteloom/internal/identity/store"
	"github.com/noteloom/noteloom/pkg/cryptox"
	"github.com/noteloom/noteloom/pkg/idx"
	"github.com/noteloom/noteloom/pkg/sessionx"
	"github.com/noteloom/noteloom/pkg/tokenx"
)

// Default token lifetimes, overridable via config.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// TokenIssuer mints the access/refresh pair for an authenticated user.
// The session record is written before the token is handed out: if the
// cache write fails, no token exists that the gateway would have to
// honor without being able to revoke.
type TokenIssuer struct {
	Codec tokenx.Codec
	Cache *sessionx.Store
	Users store.Users

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (ti *TokenIssuer) accessTTL() time.Duration {
	if ti.AccessTTL > 0 {
		return ti.AccessTTL
	}
	return DefaultAccessTTL
}

func (ti *TokenIssuer) refreshTTL() time.Duration {
	if ti.RefreshTTL > 0 {
		return ti.RefreshTTL
	}
	return DefaultRefreshTTL
}

// Issue resolves the user's authorization snapshot, records a fresh
// session, and returns the token pair plus profile data.
func (ti *TokenIssuer) Issue(ctx context.Context, user domain.User) (domain.LoginResult, error) {
	roles, err := ti.Users.ListRoles(ctx, user.ID)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("list roles: %w", err)
	}
	perms, err := ti.Users.ListPermissions(ctx, user.ID)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("list permissions: %w", err)
	}

	sid := idx.New().String()
	ttl := ti.accessTTL()

	claims := tokenx.NewClaims(user.ID, sid, user.Username, user.Nickname, roles, perms, ttl, ti.Issuer, time.Now())
	access, err := ti.Codec.Encode(claims)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("encode access token: %w", err)
	}

	// Session first. A token without a session record is rejected by the
	// gateway, never the other way around.
	if err := ti.Cache.PutSession(ctx, sid, user.ID, ttl); err != nil {
		return domain.LoginResult{}, fmt.Errorf("record session: %w", err)
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("generate refresh token: %w", err)
	}
	rec := sessionx.RefreshRecord{UserID: user.ID, Username: user.Username}
	if err := ti.Cache.PutRefresh(ctx, refresh, rec, ti.refreshTTL()); err != nil {
		return domain.LoginResult{}, fmt.Errorf("record refresh token: %w", err)
	}

	return domain.LoginResult{
		TokenPair: domain.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    int64(ttl.Seconds()),
		},
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
	}, nil
}
