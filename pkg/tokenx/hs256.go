package tokenx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Refuse secrets that would be trivially brute-forceable.
const minSecretLen = 32

// HS256Codec signs and verifies with a shared symmetric secret.
type HS256Codec struct {
	secret []byte
	issuer string
}

// NewHS256 builds a symmetric codec. The secret is mandatory and must
// carry at least 256 bits; there is no default key to fall back to.
func NewHS256(secret, issuer string) (*HS256Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty HS256 secret", ErrConfig)
	}
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("%w: HS256 secret shorter than %d bytes", ErrConfig, minSecretLen)
	}
	return &HS256Codec{secret: []byte(secret), issuer: issuer}, nil
}

func (c *HS256Codec) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (c *HS256Codec) Encode(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

func (c *HS256Codec) Decode(token string) (Claims, error) {
	return decode(token, jwt.SigningMethodHS256.Alg(), c.issuer, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
}

// decode is the shared verification path for both codecs. Any failure,
// from a garbled string to a token signed under the other scheme, comes
// back as ErrVerification and never with partial claims.
func decode(token, alg, issuer string, keyFn jwt.Keyfunc) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	parsed, err := parser.ParseWithClaims(token, &claims, keyFn)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrVerification
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, fmt.Errorf("%w: issuer mismatch", ErrVerification)
	}
	if claims.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing jti", ErrVerification)
	}

	return claims, nil
}
