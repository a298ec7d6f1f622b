package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/noteloom/noteloom/internal/identity/domain"
	"github.com/noteloom/noteloom/internal/identity/store"
	"github.com/noteloom/noteloom/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "identity.db")
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store, username string) domain.User {
	t.Helper()

	u := domain.User{
		ID:       idx.New().String(),
		Username: username,
		Nickname: "Test " + username,
		Status:   domain.StatusActive,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Nickname:     "Alice",
		Email:        "alice@example.com",
		Avatar:       "https://cdn.example.com/a.png",
		PasswordHash: "$argon2id$...",
		Status:       domain.StatusActive,
	}
	require.NoError(t, s.Users().CreateUser(ctx, u))

	byName, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)
	require.Equal(t, u.Email, byName.Email)
	require.False(t, byName.CreatedAt.IsZero())

	byEmail, err := s.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
}

func TestUsers_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateUsername(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "bob")

	err := s.Users().CreateUser(ctx, domain.User{
		ID:       idx.New().String(),
		Username: "bob",
		Status:   domain.StatusActive,
	})
	require.Error(t, err)
}

func TestRolesAndPermissions(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "carol")

	// No roles yet.
	roles, err := s.Users().ListRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, roles)

	require.NoError(t, s.Users().AssignRole(ctx, u.ID, "user"))

	roles, err = s.Users().ListRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"user"}, roles)

	perms, err := s.Users().ListPermissions(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"note:read", "note:write"}, perms)

	// Assigning twice is idempotent.
	require.NoError(t, s.Users().AssignRole(ctx, u.ID, "user"))

	// Unknown role names error.
	err = s.Users().AssignRole(ctx, u.ID, "superuser")
	require.ErrorIs(t, err, store.ErrNotFound)
}
