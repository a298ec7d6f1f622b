// Package sessionx is the shared TTL-keyed cache behind the token
// subsystem. Signed tokens are self-contained, but revocation and sliding
// expiration need a mutable side-store: a session record here is the single
// source of truth for "is this token still alive", regardless of what the
// signature says.
package sessionx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noteloom/noteloom/pkg/cryptox"
)

// Key namespaces. Every key is prefixed by purpose so the spaces can't
// collide and can be bulk-invalidated with a prefix scan.
const (
	keySession   = "session:"
	keyRefresh   = "refresh:"
	keyState     = "oauthstate:"
	keyEmailCode = "emailcode:"
	keyCaptcha   = "captcha:"
)

// ErrNotFound reports a missing or already-consumed record.
var ErrNotFound = errors.New("sessionx: record not found")

// DefaultOpTimeout bounds every cache round trip. A hung Redis must fail
// the security check, never stall the request.
const DefaultOpTimeout = 3 * time.Second

// RefreshRecord is the identity bound to an opaque refresh token.
type RefreshRecord struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Store wraps a Redis client with the namespaced operations the identity
// service and gateway share. Safe for concurrent use.
type Store struct {
	rdb       redis.UniversalClient
	opTimeout time.Duration
}

func NewStore(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb, opTimeout: DefaultOpTimeout}
}

// NewStoreWithTimeout overrides the per-operation timeout, mainly for tests.
func NewStoreWithTimeout(rdb redis.UniversalClient, timeout time.Duration) *Store {
	return &Store{rdb: rdb, opTimeout: timeout}
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

/* Session records */

// PutSession records a live session under session:<sid> for the access
// token lifetime. Issuance must not return a token unless this succeeded.
func (s *Store) PutSession(ctx context.Context, sid, userID string, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Set(ctx, keySession+sid, userID, ttl).Err(); err != nil {
		return fmt.Errorf("sessionx: put session: %w", err)
	}
	return nil
}

// SessionExists reports whether the session is still alive.
func (s *Store) SessionExists(ctx context.Context, sid string) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	n, err := s.rdb.Exists(ctx, keySession+sid).Result()
	if err != nil {
		return false, fmt.Errorf("sessionx: session exists: %w", err)
	}
	return n > 0, nil
}

// TouchSession resets the session TTL to the full lifetime (sliding
// expiration) and reports whether the key was present. A single EXPIRE is
// as atomic as Redis makes it, but a logout racing a touch can still
// resurrect the TTL for one request cycle; that bounded staleness is
// accepted.
func (s *Store) TouchSession(ctx context.Context, sid string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ok, err := s.rdb.Expire(ctx, keySession+sid, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("sessionx: touch session: %w", err)
	}
	return ok, nil
}

// DeleteSession revokes the session. Deleting an absent session is a no-op.
func (s *Store) DeleteSession(ctx context.Context, sid string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Del(ctx, keySession+sid).Err(); err != nil {
		return fmt.Errorf("sessionx: delete session: %w", err)
	}
	return nil
}

/* Refresh records */

// refreshKey fingerprints the token so the raw credential is never stored
// at rest; a cache dump cannot be replayed as a refresh token.
func refreshKey(token string) string {
	return keyRefresh + cryptox.FingerprintToken(token)
}

// PutRefresh records the identity behind an opaque refresh token.
func (s *Store) PutRefresh(ctx context.Context, token string, rec RefreshRecord, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sessionx: marshal refresh record: %w", err)
	}
	if err := s.rdb.Set(ctx, refreshKey(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("sessionx: put refresh: %w", err)
	}
	return nil
}

// ConsumeRefresh atomically fetches and deletes a refresh record (GETDEL),
// so a concurrently replayed refresh token loses the race and gets
// ErrNotFound. Strict single-use.
func (s *Store) ConsumeRefresh(ctx context.Context, token string) (RefreshRecord, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	raw, err := s.rdb.GetDel(ctx, refreshKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return RefreshRecord{}, ErrNotFound
	}
	if err != nil {
		return RefreshRecord{}, fmt.Errorf("sessionx: consume refresh: %w", err)
	}

	var rec RefreshRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return RefreshRecord{}, fmt.Errorf("sessionx: decode refresh record: %w", err)
	}
	return rec, nil
}

// DeleteRefresh drops a refresh record without reading it (logout-all paths).
func (s *Store) DeleteRefresh(ctx context.Context, token string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Del(ctx, refreshKey(token)).Err(); err != nil {
		return fmt.Errorf("sessionx: delete refresh: %w", err)
	}
	return nil
}

/* Third-party authorize state */

// PutState binds a freshly generated state value to the provider that
// issued the redirect, so the callback can be correlated.
func (s *Store) PutState(ctx context.Context, state, provider string, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Set(ctx, keyState+state, provider, ttl).Err(); err != nil {
		return fmt.Errorf("sessionx: put state: %w", err)
	}
	return nil
}

// ConsumeState fetches and deletes the provider bound to a state value.
func (s *Store) ConsumeState(ctx context.Context, state string) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	provider, err := s.rdb.GetDel(ctx, keyState+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sessionx: consume state: %w", err)
	}
	return provider, nil
}

/* Email one-time codes */

// PutEmailCode stores the login code sent to an address.
func (s *Store) PutEmailCode(ctx context.Context, email, code string, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Set(ctx, keyEmailCode+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("sessionx: put email code: %w", err)
	}
	return nil
}

// GetEmailCode reads the stored code without consuming it; a mismatching
// attempt must not burn the code.
func (s *Store) GetEmailCode(ctx context.Context, email string) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	code, err := s.rdb.Get(ctx, keyEmailCode+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sessionx: get email code: %w", err)
	}
	return code, nil
}

// DeleteEmailCode consumes the code after a successful match.
func (s *Store) DeleteEmailCode(ctx context.Context, email string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Del(ctx, keyEmailCode+email).Err(); err != nil {
		return fmt.Errorf("sessionx: delete email code: %w", err)
	}
	return nil
}

/* CAPTCHA consume contract (generation is an external collaborator) */

// ConsumeCaptcha fetches and deletes the expected answer for a CAPTCHA
// ticket. One attempt per ticket, right or wrong.
func (s *Store) ConsumeCaptcha(ctx context.Context, ticket string) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	answer, err := s.rdb.GetDel(ctx, keyCaptcha+ticket).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sessionx: consume captcha: %w", err)
	}
	return answer, nil
}

// PutCaptcha records the expected answer for a ticket. The image side of
// the CAPTCHA lives elsewhere; only the validate/consume contract is here.
func (s *Store) PutCaptcha(ctx context.Context, ticket, answer string, ttl time.Duration) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.rdb.Set(ctx, keyCaptcha+ticket, answer, ttl).Err(); err != nil {
		return fmt.Errorf("sessionx: put captcha: %w", err)
	}
	return nil
}
