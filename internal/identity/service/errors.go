package service

import "errors"

// Sentinel errors for the login and token flows. Handlers map each one to
// a stable numeric code in the response body; anything not in this list is
// an internal error.
var (
	// ErrInvalidCredentials covers both a missing account and a wrong
	// password so the response cannot be used to probe for usernames.
	ErrInvalidCredentials = errors.New("service: invalid credentials")

	// ErrAccountDisabled means the credentials were fine but the account
	// is administratively blocked.
	ErrAccountDisabled = errors.New("service: account disabled")

	// ErrCodeExpired means no stored one-time code exists for the email,
	// either never sent or already expired.
	ErrCodeExpired = errors.New("service: email code expired or missing")

	// ErrCodeMismatch means a code exists but the submitted one does not
	// match. The stored code stays usable.
	ErrCodeMismatch = errors.New("service: email code mismatch")

	// ErrRefreshInvalid covers unknown, expired, and already-consumed
	// refresh tokens alike.
	ErrRefreshInvalid = errors.New("service: refresh token invalid")

	// ErrIdentityNotFound means the account behind a previously issued
	// token no longer exists.
	ErrIdentityNotFound = errors.New("service: identity not found")

	// ErrUnsupportedLoginType rejects login requests with a type this
	// deployment does not handle.
	ErrUnsupportedLoginType = errors.New("service: unsupported login type")

	// ErrCaptchaInvalid means the captcha ticket was missing, expired,
	// or answered wrong. The ticket is consumed either way.
	ErrCaptchaInvalid = errors.New("service: captcha invalid")
)
