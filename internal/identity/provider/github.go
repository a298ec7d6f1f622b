package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubConfig configures the GitHub resolver. Endpoint and APIBaseURL
// default to the real GitHub and exist so tests can point at a stub.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint // zero value means github.Endpoint
	APIBaseURL   string          // zero value means https://api.github.com
}

// GitHub is the plain OAuth2 provider: one code exchange, one profile call.
type GitHub struct {
	oauth   oauth2.Config
	apiBase string
	client  *http.Client
}

func NewGitHub(cfg GitHubConfig) *GitHub {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = github.Endpoint
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}

	return &GitHub{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user"},
		},
		apiBase: apiBase,
		client:  newHTTPClient(),
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) AuthorizeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *GitHub) Resolve(ctx context.Context, authCode string, _ url.Values) (Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	tok, err := g.oauth.Exchange(ctx, authCode)
	if err != nil {
		return Profile{}, failf(g.Name(), "code exchange: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+"/user", nil)
	if err != nil {
		return Profile{}, failf(g.Name(), "build profile request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Profile{}, failf(g.Name(), "fetch profile: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, failf(g.Name(), "profile endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Profile{}, failf(g.Name(), "decode profile: %v", err)
	}
	if body.ID == 0 {
		return Profile{}, failf(g.Name(), "profile missing id")
	}

	display := body.Name
	if display == "" {
		display = body.Login
	}

	return Profile{
		ProviderUserID: fmt.Sprintf("%d", body.ID),
		DisplayName:    display,
		AvatarURL:      body.AvatarURL,
	}, nil
}
