package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/noteloom/noteloom/pkg/sessionx"
)

// DefaultEmailCodeTTL is how long a sent login code stays redeemable.
const DefaultEmailCodeTTL = 5 * time.Minute

// Mailer delivers the one-time login code. Outbound email is an external
// collaborator; implementations adapt to whatever transport the
// deployment uses.
type Mailer interface {
	SendLoginCode(ctx context.Context, email, code string) error
}

// LogMailer writes the code to the log instead of sending it. Dev only.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendLoginCode(ctx context.Context, email, code string) error {
	m.Logger.InfoContext(ctx, "login code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}

// EmailCodeService issues the one-time codes the email login consumes.
type EmailCodeService struct {
	Cache  *sessionx.Store
	Mailer Mailer
	TTL    time.Duration
}

func (s *EmailCodeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultEmailCodeTTL
}

// Send stores a fresh 6-digit code for the address and hands it to the
// mailer. A resend overwrites any earlier unconsumed code.
func (s *EmailCodeService) Send(ctx context.Context, email string) error {
	code, err := sixDigitCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.Cache.PutEmailCode(ctx, email, code, s.ttl()); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := s.Mailer.SendLoginCode(ctx, email, code); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
