// Package provider resolves third-party authorization codes into profiles.
// Each provider is its own concrete type: the flows genuinely differ (QQ
// needs a separate openid fetch, WeChat returns the openid with the token,
// GitHub is a plain OAuth2 exchange) and forcing them through one shape
// has historically been how bugs got in.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrAuthFailed covers every failure between the authorization code and a
// usable profile: exchange rejection, network trouble, provider error
// payloads. The authorization code is single-use upstream, so nothing here
// retries.
var ErrAuthFailed = errors.New("provider: third-party auth failed")

// Profile is the provider-side identity mapped onto the local convention
// username = {provider}_{providerUserId}.
type Profile struct {
	ProviderUserID string
	DisplayName    string
	AvatarURL      string
}

// Resolver turns a callback's authorization code into a profile. Extras
// carry provider-specific callback parameters (e.g. an openid) without
// widening the interface per provider.
type Resolver interface {
	Name() string
	AuthorizeURL(state string) string
	Resolve(ctx context.Context, authCode string, extras url.Values) (Profile, error)
}

// Set indexes resolvers by provider name.
type Set map[string]Resolver

func NewSet(resolvers ...Resolver) Set {
	s := make(Set, len(resolvers))
	for _, r := range resolvers {
		s[r.Name()] = r
	}
	return s
}

// Get returns the named resolver or an ErrAuthFailed-kind error for
// unknown providers.
func (s Set) Get(name string) (Resolver, error) {
	r, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrAuthFailed, name)
	}
	return r, nil
}

// httpTimeout bounds every provider HTTP call. Fail closed on a slow
// provider rather than holding the login request open.
const httpTimeout = 5 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// failf wraps a provider failure with the provider name for diagnostics.
func failf(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrAuthFailed, name, fmt.Sprintf(format, args...))
}
