package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noteloom/noteloom/internal/identity/domain"
	"github.com/noteloom/noteloom/internal/identity/provider"
	"github.com/noteloom/noteloom/internal/identity/service"
	"github.com/noteloom/noteloom/internal/identity/store/drivers/sqlite"
	"github.com/noteloom/noteloom/pkg/cryptox"
	"github.com/noteloom/noteloom/pkg/idx"
	"github.com/noteloom/noteloom/pkg/sessionx"
	"github.com/noteloom/noteloom/pkg/tokenx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "identity-http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*httptest.Server, *sessionx.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cache := sessionx.NewStore(rdb)

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := tokenx.NewHS256("0123456789abcdef0123456789abcdef", "noteloom-test")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := &service.TokenIssuer{Codec: codec, Cache: cache, Users: st.Users(), Issuer: "noteloom-test"}
	auth := &service.AuthService{
		Issuer:    issuer,
		Users:     st.Users(),
		Cache:     cache,
		Providers: provider.NewSet(),
		Logger:    logger,
	}

	hash, err := cryptox.HashPassword("hunter2secret")
	require.NoError(t, err)
	require.NoError(t, st.Users().CreateUser(context.Background(), domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Nickname:     "Alice",
		PasswordHash: hash,
		Status:       domain.StatusActive,
	}))

	router := NewRouter("test", st, cache, logger)
	router.AuthService = auth
	router.EmailCodeService = &service.EmailCodeService{Cache: cache, Mailer: service.LogMailer{Logger: logger}, TTL: time.Minute}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, cache
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("password login returns a token pair", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/v1/auth/login", map[string]string{
			"loginType": "password", "username": "alice", "password": "hunter2secret",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

		var out domain.LoginResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.NotEmpty(t, out.AccessToken)
		require.NotEmpty(t, out.RefreshToken)
		require.Equal(t, "alice", out.Username)
	})

	t.Run("bad credentials map to code 1001", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/v1/auth/login", map[string]string{
			"loginType": "password", "username": "alice", "password": "wrong",
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body ErrorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, CodeInvalidCredentials, body.Code)
	})

	t.Run("unknown login type maps to code 1009", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/v1/auth/login", map[string]string{"loginType": "ldap"})
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body ErrorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, CodeUnsupportedLogin, body.Code)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t)

		resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json", bytes.NewReader([]byte("{nope")))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	t.Parallel()
	srv, cache := newTestServer(t)

	login := postJSON(t, srv.URL+"/v1/auth/login", map[string]string{
		"loginType": "password", "username": "alice", "password": "hunter2secret",
	})
	defer login.Body.Close()
	var first domain.LoginResult
	require.NoError(t, json.NewDecoder(login.Body).Decode(&first))

	// Rotate once.
	refresh := postJSON(t, srv.URL+"/v1/auth/refresh", map[string]string{"refreshToken": first.RefreshToken})
	defer refresh.Body.Close()
	require.Equal(t, http.StatusOK, refresh.StatusCode)
	var second domain.LoginResult
	require.NoError(t, json.NewDecoder(refresh.Body).Decode(&second))
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replay is rejected with the refresh code.
	replay := postJSON(t, srv.URL+"/v1/auth/refresh", map[string]string{"refreshToken": first.RefreshToken})
	defer replay.Body.Close()
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(replay.Body).Decode(&body))
	require.Equal(t, CodeRefreshInvalid, body.Code)

	// Logout revokes the session behind the access token.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+second.AccessToken)
	logout, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer logout.Body.Close()
	require.Equal(t, http.StatusOK, logout.StatusCode)

	codec, err := tokenx.NewHS256("0123456789abcdef0123456789abcdef", "noteloom-test")
	require.NoError(t, err)
	claims, err := codec.Decode(second.AccessToken)
	require.NoError(t, err)
	exists, err := cache.SessionExists(context.Background(), claims.SessionID())
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEmailCodeEndpoint(t *testing.T) {
	t.Parallel()
	srv, cache := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/auth/email-code", map[string]string{"email": "carol@example.com"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := cache.GetEmailCode(context.Background(), "carol@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	bad := postJSON(t, srv.URL+"/v1/auth/email-code", map[string]string{"email": "not-an-email"})
	defer bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		var body HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "ok", body.Status)
	}
}
