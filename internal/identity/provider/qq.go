package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// QQConfig configures the QQ resolver. GraphBaseURL defaults to the real
// endpoint and exists so tests can point at a stub.
type QQConfig struct {
	ClientID     string // "APP ID" in QQ console terms
	ClientSecret string
	RedirectURL  string
	GraphBaseURL string // zero value means https://graph.qq.com
}

// QQ is the three-step provider: code -> access token (form-encoded
// response), access token -> openid (JSONP-wrapped), then the profile
// call. The openid step is QQ-specific and stays inside this type.
type QQ struct {
	cfg    QQConfig
	base   string
	client *http.Client
}

func NewQQ(cfg QQConfig) *QQ {
	base := cfg.GraphBaseURL
	if base == "" {
		base = "https://graph.qq.com"
	}
	return &QQ{cfg: cfg, base: base, client: newHTTPClient()}
}

func (q *QQ) Name() string { return "qq" }

func (q *QQ) AuthorizeURL(state string) string {
	v := url.Values{}
	v.Set("response_type", "code")
	v.Set("client_id", q.cfg.ClientID)
	v.Set("redirect_uri", q.cfg.RedirectURL)
	v.Set("state", state)
	return q.base + "/oauth2.0/authorize?" + v.Encode()
}

func (q *QQ) Resolve(ctx context.Context, authCode string, _ url.Values) (Profile, error) {
	accessToken, err := q.exchangeCode(ctx, authCode)
	if err != nil {
		return Profile{}, err
	}

	openID, err := q.fetchOpenID(ctx, accessToken)
	if err != nil {
		return Profile{}, err
	}

	return q.fetchProfile(ctx, accessToken, openID)
}

// exchangeCode trades the authorization code for an access token. QQ
// answers with a form-encoded body, not JSON.
func (q *QQ) exchangeCode(ctx context.Context, authCode string) (string, error) {
	v := url.Values{}
	v.Set("grant_type", "authorization_code")
	v.Set("client_id", q.cfg.ClientID)
	v.Set("client_secret", q.cfg.ClientSecret)
	v.Set("code", authCode)
	v.Set("redirect_uri", q.cfg.RedirectURL)

	body, err := q.get(ctx, q.base+"/oauth2.0/token?"+v.Encode())
	if err != nil {
		return "", failf(q.Name(), "code exchange: %v", err)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", failf(q.Name(), "parse token response: %v", err)
	}
	token := values.Get("access_token")
	if token == "" {
		return "", failf(q.Name(), "token response missing access_token")
	}
	return token, nil
}

// fetchOpenID resolves the opaque per-app user identifier. The endpoint
// wraps its JSON in a callback(...) JSONP shim that has to be peeled off.
func (q *QQ) fetchOpenID(ctx context.Context, accessToken string) (string, error) {
	body, err := q.get(ctx, q.base+"/oauth2.0/me?access_token="+url.QueryEscape(accessToken))
	if err != nil {
		return "", failf(q.Name(), "fetch openid: %v", err)
	}

	payload := string(body)
	if start := strings.Index(payload, "{"); start >= 0 {
		if end := strings.LastIndex(payload, "}"); end > start {
			payload = payload[start : end+1]
		}
	}

	var me struct {
		OpenID string `json:"openid"`
	}
	if err := json.Unmarshal([]byte(payload), &me); err != nil {
		return "", failf(q.Name(), "decode openid response: %v", err)
	}
	if me.OpenID == "" {
		return "", failf(q.Name(), "openid response missing openid")
	}
	return me.OpenID, nil
}

func (q *QQ) fetchProfile(ctx context.Context, accessToken, openID string) (Profile, error) {
	v := url.Values{}
	v.Set("access_token", accessToken)
	v.Set("oauth_consumer_key", q.cfg.ClientID)
	v.Set("openid", openID)

	body, err := q.get(ctx, q.base+"/user/get_user_info?"+v.Encode())
	if err != nil {
		return Profile{}, failf(q.Name(), "fetch profile: %v", err)
	}

	var info struct {
		Ret      int    `json:"ret"`
		Msg      string `json:"msg"`
		Nickname string `json:"nickname"`
		Figure   string `json:"figureurl_qq_1"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Profile{}, failf(q.Name(), "decode profile: %v", err)
	}
	if info.Ret != 0 {
		return Profile{}, failf(q.Name(), "profile endpoint ret=%d msg=%q", info.Ret, info.Msg)
	}

	return Profile{
		ProviderUserID: openID,
		DisplayName:    info.Nickname,
		AvatarURL:      info.Figure,
	}, nil
}

func (q *QQ) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failf(q.Name(), "endpoint returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
