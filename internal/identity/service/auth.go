package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noteloom/noteloom/internal/identity/domain"
	"github.com/noteloom/noteloom/internal/identity/provider"
	"github.com/noteloom/noteloom/internal/identity/store"
	"github.com/noteloom/noteloom/pkg/cryptox"
	"github.com/noteloom/noteloom/pkg/idx"
	"github.com/noteloom/noteloom/pkg/sessionx"
)

// Login types accepted on the login endpoint.
const (
	LoginPassword = "password"
	LoginEmail    = "email"
	LoginQQ       = "qq"
	LoginWeChat   = "wechat"
	LoginGitHub   = "github"
)

// stateTTL bounds how long a third-party authorize redirect may take to
// come back.
const stateTTL = 10 * time.Minute

// LoginInput is the decoded login request. Which fields matter depends on
// LoginType; the rest stay empty.
type LoginInput struct {
	LoginType string `json:"loginType"`

	// password login
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Code     string `json:"code,omitempty"` // captcha answer
	UUID     string `json:"uuid,omitempty"` // captcha ticket

	// email one-time-code login
	Email     string `json:"email,omitempty"`
	EmailCode string `json:"emailCode,omitempty"`

	// third-party login
	AuthCode string `json:"authCode,omitempty"`
	State    string `json:"state,omitempty"`
}

// AuthService orchestrates the login methods, refresh rotation, and
// logout over the issuer, the user store, the session cache, and the
// provider set.
type AuthService struct {
	Issuer    *TokenIssuer
	Users     store.Users
	Cache     *sessionx.Store
	Providers provider.Set
	Logger    *slog.Logger

	// RequireCaptcha makes password logins demand a valid captcha
	// ticket. Off by default so dev environments work without the
	// captcha collaborator running.
	RequireCaptcha bool
}

// Login dispatches on the login type and returns the issued token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (domain.LoginResult, error) {
	switch in.LoginType {
	case LoginPassword:
		return s.loginPassword(ctx, in)
	case LoginEmail:
		return s.loginEmail(ctx, in)
	case LoginQQ, LoginWeChat, LoginGitHub:
		return s.loginThirdParty(ctx, in)
	default:
		return domain.LoginResult{}, fmt.Errorf("%w: %q", ErrUnsupportedLoginType, in.LoginType)
	}
}

func (s *AuthService) loginPassword(ctx context.Context, in LoginInput) (domain.LoginResult, error) {
	if s.RequireCaptcha || in.UUID != "" {
		if err := s.checkCaptcha(ctx, in.UUID, in.Code); err != nil {
			return domain.LoginResult{}, err
		}
	}

	user, err := s.Users.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrInvalidCredentials
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := cryptox.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		return domain.LoginResult{}, ErrInvalidCredentials
	}
	if user.Disabled() {
		return domain.LoginResult{}, ErrAccountDisabled
	}

	return s.Issuer.Issue(ctx, user)
}

// checkCaptcha consumes the ticket whatever the outcome: a wrong answer
// burns the challenge.
func (s *AuthService) checkCaptcha(ctx context.Context, ticket, answer string) error {
	if ticket == "" || answer == "" {
		return ErrCaptchaInvalid
	}
	want, err := s.Cache.ConsumeCaptcha(ctx, ticket)
	if err != nil {
		if errors.Is(err, sessionx.ErrNotFound) {
			return ErrCaptchaInvalid
		}
		return fmt.Errorf("consume captcha: %w", err)
	}
	if !strings.EqualFold(want, answer) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *AuthService) loginEmail(ctx context.Context, in LoginInput) (domain.LoginResult, error) {
	stored, err := s.Cache.GetEmailCode(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sessionx.ErrNotFound) {
			return domain.LoginResult{}, ErrCodeExpired
		}
		return domain.LoginResult{}, fmt.Errorf("read email code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(in.EmailCode)) != 1 {
		// The stored code stays; a typo does not force a resend.
		return domain.LoginResult{}, ErrCodeMismatch
	}

	user, err := s.Users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The code is left redeemable: it was valid, the account
			// just does not exist yet.
			return domain.LoginResult{}, ErrIdentityNotFound
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Disabled() {
		return domain.LoginResult{}, ErrAccountDisabled
	}

	// Consume only once the login is going to succeed.
	if err := s.Cache.DeleteEmailCode(ctx, in.Email); err != nil {
		return domain.LoginResult{}, fmt.Errorf("consume email code: %w", err)
	}

	return s.Issuer.Issue(ctx, user)
}

func (s *AuthService) loginThirdParty(ctx context.Context, in LoginInput) (domain.LoginResult, error) {
	// A known login type with no configured resolver is an unsupported
	// method on this deployment, not a provider-side failure.
	resolver, err := s.Providers.Get(in.LoginType)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("%w: no %q provider configured", ErrUnsupportedLoginType, in.LoginType)
	}

	// The callback must present the state recorded when the authorize
	// URL was built. A missing state is as forged as an unknown one;
	// without this check the anti-forgery correlation is advisory.
	if in.State == "" {
		return domain.LoginResult{}, fmt.Errorf("%w: %s: missing state", provider.ErrAuthFailed, in.LoginType)
	}
	wantProvider, err := s.Cache.ConsumeState(ctx, in.State)
	if err != nil {
		if errors.Is(err, sessionx.ErrNotFound) {
			return domain.LoginResult{}, fmt.Errorf("%w: %s: unknown state", provider.ErrAuthFailed, in.LoginType)
		}
		return domain.LoginResult{}, fmt.Errorf("consume state: %w", err)
	}
	if wantProvider != in.LoginType {
		return domain.LoginResult{}, fmt.Errorf("%w: %s: state issued for %q", provider.ErrAuthFailed, in.LoginType, wantProvider)
	}

	profile, err := resolver.Resolve(ctx, in.AuthCode, nil)
	if err != nil {
		return domain.LoginResult{}, err
	}

	user, err := s.findOrProvision(ctx, in.LoginType, profile)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if user.Disabled() {
		return domain.LoginResult{}, ErrAccountDisabled
	}

	return s.Issuer.Issue(ctx, user)
}

// findOrProvision maps a provider profile onto the local account naming
// convention and creates the account on first login.
func (s *AuthService) findOrProvision(ctx context.Context, providerName string, p provider.Profile) (domain.User, error) {
	username := providerName + "_" + p.ProviderUserID

	user, err := s.Users.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	nickname := p.DisplayName
	if nickname == "" {
		nickname = username
	}
	user = domain.User{
		ID:       idx.New().String(),
		Username: username,
		Nickname: nickname,
		Avatar:   p.AvatarURL,
		Status:   domain.StatusActive,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		// Lost a provisioning race: the row now exists, use it.
		if existing, lookupErr := s.Users.GetUserByUsername(ctx, username); lookupErr == nil {
			return existing, nil
		}
		return domain.User{}, fmt.Errorf("provision user: %w", err)
	}
	if err := s.Users.AssignRole(ctx, user.ID, "user"); err != nil {
		return domain.User{}, fmt.Errorf("assign default role: %w", err)
	}

	s.Logger.InfoContext(ctx, "provisioned third-party account",
		slog.String("provider", providerName),
		slog.String("username", username),
	)
	return user, nil
}

// AuthorizeURL records a fresh state value and returns the provider's
// authorize URL carrying it.
func (s *AuthService) AuthorizeURL(ctx context.Context, providerName string) (string, error) {
	resolver, err := s.Providers.Get(providerName)
	if err != nil {
		return "", err
	}
	state := uuid.NewString()
	if err := s.Cache.PutState(ctx, state, providerName, stateTTL); err != nil {
		return "", fmt.Errorf("record state: %w", err)
	}
	return resolver.AuthorizeURL(state), nil
}

// Refresh rotates a refresh token: consume, re-resolve the account, and
// issue a fresh pair. Strictly single-use; the old access token's session
// is left to expire on its own.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.LoginResult, error) {
	if refreshToken == "" {
		return domain.LoginResult{}, ErrRefreshInvalid
	}
	rec, err := s.Cache.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sessionx.ErrNotFound) {
			return domain.LoginResult{}, ErrRefreshInvalid
		}
		return domain.LoginResult{}, fmt.Errorf("consume refresh token: %w", err)
	}

	user, err := s.Users.GetUserByUsername(ctx, rec.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResult{}, ErrIdentityNotFound
		}
		return domain.LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.Disabled() {
		return domain.LoginResult{}, ErrAccountDisabled
	}

	return s.Issuer.Issue(ctx, user)
}

// Logout revokes the session behind the presented access token. Invalid
// or absent tokens are not an error: logout is idempotent and always
// succeeds from the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	claims, err := s.Issuer.Codec.Decode(accessToken)
	if err != nil {
		return nil
	}
	if err := s.Cache.DeleteSession(ctx, claims.SessionID()); err != nil {
		// Best effort: the session will still die with its TTL.
		s.Logger.WarnContext(ctx, "session delete failed on logout",
			slog.String("sid", claims.SessionID()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
