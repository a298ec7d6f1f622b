// Package tokenx encodes and decodes the signed access tokens shared
// between the identity service and the gateway. Two schemes are supported:
// HS256 with a shared secret (both sides hold it) and RS256 where only the
// identity service holds the private key and verifiers get the public half.
package tokenx

import (
	"errors"
	"fmt"
)

var (
	// ErrVerification is the single error kind decode failures collapse
	// into: malformed structure, signature mismatch, wrong algorithm
	// family, embedded expiry. Callers must not learn which.
	ErrVerification = errors.New("tokenx: token invalid")

	// ErrNoSigningKey is returned by Encode on a verify-only codec.
	ErrNoSigningKey = errors.New("tokenx: codec has no signing key")

	// ErrConfig reports an unusable codec configuration at startup.
	ErrConfig = errors.New("tokenx: invalid codec config")
)

// Codec turns claims into a signed compact token and back. A codec is
// immutable once constructed; build it at startup and inject it wherever
// tokens are produced or checked.
type Codec interface {
	Alg() string
	Encode(Claims) (string, error)
	Decode(token string) (Claims, error)
}

// Config selects the signing scheme once at process start.
type Config struct {
	// Issuer is enforced on decode when non-empty.
	Issuer string

	// Secret enables HS256 when no RSA key material is given.
	Secret string

	// PrivateKeyPEM enables RS256 signing+verification.
	PrivateKeyPEM []byte

	// PublicKeyPEM enables RS256 verify-only (gateway side).
	PublicKeyPEM []byte
}

// FromConfig builds the codec the configuration calls for. An asymmetric
// key pair wins over the shared secret; a configuration with neither fails
// fast rather than falling back to some built-in default key.
func FromConfig(cfg Config) (Codec, error) {
	switch {
	case len(cfg.PrivateKeyPEM) > 0:
		return NewRS256(cfg.PrivateKeyPEM, cfg.Issuer)
	case len(cfg.PublicKeyPEM) > 0:
		return NewRS256Verifier(cfg.PublicKeyPEM, cfg.Issuer)
	case cfg.Secret != "":
		return NewHS256(cfg.Secret, cfg.Issuer)
	default:
		return nil, fmt.Errorf("%w: no signing secret or key configured", ErrConfig)
	}
}
