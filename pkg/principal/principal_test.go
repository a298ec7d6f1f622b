package principal

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndFromHeader(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	Set(h, Principal{
		UserID:    "01J0000000000000000000USER",
		Username:  "alice",
		Nickname:  "Alice",
		SessionID: "sid-1",
		Roles:     []string{"user", "editor"},
		Perms:     []string{"note:read", "note:write"},
	})

	require.Equal(t, "user,editor", h.Get(HeaderRoles))

	p, ok := FromHeader(h)
	require.True(t, ok)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, []string{"user", "editor"}, p.Roles)
	require.Equal(t, []string{"note:read", "note:write"}, p.Perms)
	require.True(t, p.HasRole("editor"))
	require.False(t, p.HasRole("admin"))
}

func TestFromHeader_Anonymous(t *testing.T) {
	t.Parallel()

	_, ok := FromHeader(http.Header{})
	require.False(t, ok)
}

func TestStrip(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set(HeaderUserID, "spoofed")
	h.Set(HeaderRoles, "admin")
	h.Set("X-Other", "kept")

	Strip(h)

	require.Empty(t, h.Get(HeaderUserID))
	require.Empty(t, h.Get(HeaderRoles))
	require.Equal(t, "kept", h.Get("X-Other"))
}
