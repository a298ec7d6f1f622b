package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// WeChatConfig configures the WeChat resolver. APIBaseURL defaults to the
// real endpoint and exists so tests can point at a stub.
type WeChatConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	APIBaseURL  string // zero value means https://api.weixin.qq.com
}

// WeChat is the two-step provider: the token exchange already returns the
// openid alongside the access token, then one userinfo call. Errors come
// back as errcode/errmsg inside an HTTP 200.
type WeChat struct {
	cfg    WeChatConfig
	base   string
	client *http.Client
}

func NewWeChat(cfg WeChatConfig) *WeChat {
	base := cfg.APIBaseURL
	if base == "" {
		base = "https://api.weixin.qq.com"
	}
	return &WeChat{cfg: cfg, base: base, client: newHTTPClient()}
}

func (w *WeChat) Name() string { return "wechat" }

func (w *WeChat) AuthorizeURL(state string) string {
	v := url.Values{}
	v.Set("appid", w.cfg.AppID)
	v.Set("redirect_uri", w.cfg.RedirectURL)
	v.Set("response_type", "code")
	v.Set("scope", "snsapi_login")
	v.Set("state", state)
	// The fragment is part of WeChat's documented URL shape.
	return "https://open.weixin.qq.com/connect/qrconnect?" + v.Encode() + "#wechat_redirect"
}

func (w *WeChat) Resolve(ctx context.Context, authCode string, _ url.Values) (Profile, error) {
	accessToken, openID, err := w.exchangeCode(ctx, authCode)
	if err != nil {
		return Profile{}, err
	}
	return w.fetchProfile(ctx, accessToken, openID)
}

func (w *WeChat) exchangeCode(ctx context.Context, authCode string) (token, openID string, err error) {
	v := url.Values{}
	v.Set("appid", w.cfg.AppID)
	v.Set("secret", w.cfg.AppSecret)
	v.Set("code", authCode)
	v.Set("grant_type", "authorization_code")

	body, err := w.get(ctx, w.base+"/sns/oauth2/access_token?"+v.Encode())
	if err != nil {
		return "", "", failf(w.Name(), "code exchange: %v", err)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		OpenID      string `json:"openid"`
		ErrCode     int    `json:"errcode"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", "", failf(w.Name(), "decode token response: %v", err)
	}
	if tok.ErrCode != 0 {
		return "", "", failf(w.Name(), "code exchange errcode=%d errmsg=%q", tok.ErrCode, tok.ErrMsg)
	}
	if tok.AccessToken == "" || tok.OpenID == "" {
		return "", "", failf(w.Name(), "token response missing access_token or openid")
	}
	return tok.AccessToken, tok.OpenID, nil
}

func (w *WeChat) fetchProfile(ctx context.Context, accessToken, openID string) (Profile, error) {
	v := url.Values{}
	v.Set("access_token", accessToken)
	v.Set("openid", openID)

	body, err := w.get(ctx, w.base+"/sns/userinfo?"+v.Encode())
	if err != nil {
		return Profile{}, failf(w.Name(), "fetch profile: %v", err)
	}

	var info struct {
		OpenID   string `json:"openid"`
		Nickname string `json:"nickname"`
		HeadImg  string `json:"headimgurl"`
		ErrCode  int    `json:"errcode"`
		ErrMsg   string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Profile{}, failf(w.Name(), "decode profile: %v", err)
	}
	if info.ErrCode != 0 {
		return Profile{}, failf(w.Name(), "profile errcode=%d errmsg=%q", info.ErrCode, info.ErrMsg)
	}

	return Profile{
		ProviderUserID: openID,
		DisplayName:    info.Nickname,
		AvatarURL:      info.HeadImg,
	}, nil
}

func (w *WeChat) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failf(w.Name(), "endpoint returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
