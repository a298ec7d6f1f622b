package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSet(t *testing.T) {
	t.Parallel()

	set := NewSet(NewGitHub(GitHubConfig{}), NewQQ(QQConfig{}), NewWeChat(WeChatConfig{}))

	t.Run("known providers resolve", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"github", "qq", "wechat"} {
			r, err := set.Get(name)
			require.NoError(t, err)
			require.Equal(t, name, r.Name())
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, err := set.Get("gitlab")
		require.ErrorIs(t, err, ErrAuthFailed)
	})
}

func TestGitHubResolve(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			require.NoError(t, r.ParseForm())
			require.Equal(t, "code-1", r.FormValue("code"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
		case "/user":
			require.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":42,"login":"octo","name":"Octo Cat","avatar_url":"https://img.example/octo"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gh := NewGitHub(GitHubConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/authorize",
			TokenURL: srv.URL + "/token",
		},
		APIBaseURL: srv.URL,
	})

	profile, err := gh.Resolve(context.Background(), "code-1", nil)
	require.NoError(t, err)
	require.Equal(t, Profile{
		ProviderUserID: "42",
		DisplayName:    "Octo Cat",
		AvatarURL:      "https://img.example/octo",
	}, profile)
}

func TestGitHubResolveLoginFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
		case "/user":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":7,"login":"octo","name":"","avatar_url":""}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gh := NewGitHub(GitHubConfig{
		Endpoint:   oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
		APIBaseURL: srv.URL,
	})

	profile, err := gh.Resolve(context.Background(), "code-1", nil)
	require.NoError(t, err)
	require.Equal(t, "octo", profile.DisplayName)
}

func TestGitHubResolveExchangeRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	gh := NewGitHub(GitHubConfig{
		Endpoint:   oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
		APIBaseURL: srv.URL,
	})

	_, err := gh.Resolve(context.Background(), "stale-code", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestQQResolve(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2.0/token":
			require.Equal(t, "code-qq", r.URL.Query().Get("code"))
			w.Write([]byte("access_token=qq-token&expires_in=7776000&refresh_token=r1"))
		case "/oauth2.0/me":
			require.Equal(t, "qq-token", r.URL.Query().Get("access_token"))
			w.Write([]byte(`callback( {"client_id":"cid","openid":"OPENID-1"} );`))
		case "/user/get_user_info":
			require.Equal(t, "OPENID-1", r.URL.Query().Get("openid"))
			require.Equal(t, "cid", r.URL.Query().Get("oauth_consumer_key"))
			w.Write([]byte(`{"ret":0,"nickname":"penguin","figureurl_qq_1":"https://img.example/qq"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	qq := NewQQ(QQConfig{ClientID: "cid", ClientSecret: "secret", GraphBaseURL: srv.URL})

	profile, err := qq.Resolve(context.Background(), "code-qq", nil)
	require.NoError(t, err)
	require.Equal(t, Profile{
		ProviderUserID: "OPENID-1",
		DisplayName:    "penguin",
		AvatarURL:      "https://img.example/qq",
	}, profile)
}

func TestQQResolveProfileError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2.0/token":
			w.Write([]byte("access_token=qq-token"))
		case "/oauth2.0/me":
			w.Write([]byte(`callback({"openid":"OPENID-1"});`))
		case "/user/get_user_info":
			w.Write([]byte(`{"ret":100030,"msg":"auth denied"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	qq := NewQQ(QQConfig{GraphBaseURL: srv.URL})

	_, err := qq.Resolve(context.Background(), "code-qq", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
	require.ErrorContains(t, err, "auth denied")
}

func TestQQResolveMissingToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("error=100019&error_description=code_reused"))
	}))
	defer srv.Close()

	qq := NewQQ(QQConfig{GraphBaseURL: srv.URL})

	_, err := qq.Resolve(context.Background(), "code-qq", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestWeChatResolve(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sns/oauth2/access_token":
			require.Equal(t, "code-wx", r.URL.Query().Get("code"))
			require.Equal(t, "authorization_code", r.URL.Query().Get("grant_type"))
			w.Write([]byte(`{"access_token":"wx-token","openid":"WX-OPENID","expires_in":7200}`))
		case "/sns/userinfo":
			require.Equal(t, "wx-token", r.URL.Query().Get("access_token"))
			require.Equal(t, "WX-OPENID", r.URL.Query().Get("openid"))
			w.Write([]byte(`{"openid":"WX-OPENID","nickname":"wanderer","headimgurl":"https://img.example/wx"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	wx := NewWeChat(WeChatConfig{AppID: "appid", AppSecret: "secret", APIBaseURL: srv.URL})

	profile, err := wx.Resolve(context.Background(), "code-wx", nil)
	require.NoError(t, err)
	require.Equal(t, Profile{
		ProviderUserID: "WX-OPENID",
		DisplayName:    "wanderer",
		AvatarURL:      "https://img.example/wx",
	}, profile)
}

func TestWeChatResolveErrCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":40029,"errmsg":"invalid code"}`))
	}))
	defer srv.Close()

	wx := NewWeChat(WeChatConfig{APIBaseURL: srv.URL})

	_, err := wx.Resolve(context.Background(), "bad-code", nil)
	require.ErrorIs(t, err, ErrAuthFailed)
	require.ErrorContains(t, err, "invalid code")
}

func TestAuthorizeURLs(t *testing.T) {
	t.Parallel()

	t.Run("qq carries state and client id", func(t *testing.T) {
		t.Parallel()
		qq := NewQQ(QQConfig{ClientID: "cid", RedirectURL: "https://app.example/cb"})
		u, err := url.Parse(qq.AuthorizeURL("state-1"))
		require.NoError(t, err)
		require.Equal(t, "state-1", u.Query().Get("state"))
		require.Equal(t, "cid", u.Query().Get("client_id"))
	})

	t.Run("wechat keeps documented fragment", func(t *testing.T) {
		t.Parallel()
		wx := NewWeChat(WeChatConfig{AppID: "appid", RedirectURL: "https://app.example/cb"})
		raw := wx.AuthorizeURL("state-2")
		require.Contains(t, raw, "#wechat_redirect")
		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, "state-2", u.Query().Get("state"))
		require.Equal(t, "snsapi_login", u.Query().Get("scope"))
	})

	t.Run("github uses oauth2 authorize endpoint", func(t *testing.T) {
		t.Parallel()
		gh := NewGitHub(GitHubConfig{ClientID: "cid"})
		u, err := url.Parse(gh.AuthorizeURL("state-3"))
		require.NoError(t, err)
		require.Equal(t, "state-3", u.Query().Get("state"))
	})
}
