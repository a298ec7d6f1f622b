package tokenx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Codec signs with an RSA private key and verifies with the public
// half. A verify-only instance (gateway side) has a nil private key.
type RS256Codec struct {
	key    *rsa.PrivateKey // nil on verify-only codecs
	pub    *rsa.PublicKey
	issuer string
}

// NewRS256 loads an RSA private key from PEM bytes and returns a codec
// that can both sign and verify. Handles PKCS1 and PKCS8 because key
// tooling never agrees on one.
func NewRS256(pemKey []byte, issuer string) (*RS256Codec, error) {
	key, err := parsePrivatePEM(pemKey)
	if err != nil {
		return nil, err
	}
	return &RS256Codec{key: key, pub: &key.PublicKey, issuer: issuer}, nil
}

// NewRS256Verifier builds a verify-only codec from a public key PEM.
// This is what the gateway runs with: it can check tokens but can never
// mint one.
func NewRS256Verifier(pemKey []byte, issuer string) (*RS256Codec, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid public key PEM", ErrConfig)
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrConfig, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrConfig)
	}

	return &RS256Codec{pub: rsaPub, issuer: issuer}, nil
}

func (c *RS256Codec) Alg() string { return jwt.SigningMethodRS256.Alg() }

func (c *RS256Codec) Encode(claims Claims) (string, error) {
	if c.key == nil {
		return "", ErrNoSigningKey
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return t.SignedString(c.key)
}

func (c *RS256Codec) Decode(token string) (Claims, error) {
	return decode(token, jwt.SigningMethodRS256.Alg(), c.issuer, func(*jwt.Token) (any, error) {
		return c.pub, nil
	})
}

func parsePrivatePEM(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: invalid private key PEM", ErrConfig)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS1: %v", ErrConfig, err)
		}
		return key, nil
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrConfig, err)
		}
		key, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA private key", ErrConfig)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrConfig, block.Type)
	}
}
