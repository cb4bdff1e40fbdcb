package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

const DefaultResetTokenTTL = 2 * time.Hour

type TokenStore interface {
	SetTokenDigest(ctx context.Context, accountID string, kind domain.TokenKind, digest string, issuedAt time.Time) error
	ClearTokenDigest(ctx context.Context, accountID string, kind domain.TokenKind) error
	// ForceClearResetDigest is the one account write allowed to skip field
	// validation.
	ForceClearResetDigest(ctx context.Context, accountID string) error
}

// TokenService issues, verifies and retires the one-time tokens attached to an
// account. Only digests reach the store; raw tokens go to the caller or mailer.
// Methods taking *domain.Account update it in place once the store accepts the
// change.
type TokenService struct {
	Store    TokenStore
	Mailer   Mailer
	ResetTTL time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *TokenService) IssueResetToken(ctx context.Context, account *domain.Account) (string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	raw, digest, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	now := s.Now()
	if err := s.Store.SetTokenDigest(ctx, account.ID, domain.TokenReset, digest, now); err != nil {
		return "", fmt.Errorf("store reset digest: %w", err)
	}
	account.ResetDigest = digest
	account.ResetSentAt = &now

	if s.Mailer != nil {
		if err := s.Mailer.SendPasswordReset(ctx, *account, raw); err != nil {
			s.logger().ErrorContext(ctx, "send password reset failed", "account_id", account.ID, "err", err)
		}
	}
	return raw, nil
}

func (s *TokenService) IssueActivationToken(ctx context.Context, account *domain.Account) (string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	raw, digest, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	if err := s.Store.SetTokenDigest(ctx, account.ID, domain.TokenActivation, digest, s.Now()); err != nil {
		return "", fmt.Errorf("store activation digest: %w", err)
	}
	account.ActivationDigest = digest

	if s.Mailer != nil {
		if err := s.Mailer.SendActivation(ctx, *account, raw); err != nil {
			s.logger().ErrorContext(ctx, "send activation failed", "account_id", account.ID, "err", err)
		}
	}
	return raw, nil
}

func (s *TokenService) IssueRememberToken(ctx context.Context, account *domain.Account) (string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	raw, digest, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	if err := s.Store.SetTokenDigest(ctx, account.ID, domain.TokenRemember, digest, s.Now()); err != nil {
		return "", fmt.Errorf("store remember digest: %w", err)
	}
	account.RememberDigest = digest
	return raw, nil
}

// Forget drops the remember digest so every outstanding remember cookie stops
// authenticating.
func (s *TokenService) Forget(ctx context.Context, account *domain.Account) error {
	if err := s.Store.ClearTokenDigest(ctx, account.ID, domain.TokenRemember); err != nil {
		return err
	}
	account.RememberDigest = ""
	return nil
}

// VerifyToken reports whether raw matches the digest of kind stored on the
// account. A missing digest never matches.
func (s *TokenService) VerifyToken(account domain.Account, kind domain.TokenKind, raw string) bool {
	return auth.TokenMatches(account.Digest(kind), raw)
}

// IsExpired is true once more than the reset TTL has passed since the reset
// token was issued, or when none was ever issued.
func (s *TokenService) IsExpired(account domain.Account) bool {
	if s.Now == nil {
		s.Now = time.Now
	}
	if account.ResetSentAt == nil {
		return true
	}
	return s.Now().Sub(*account.ResetSentAt) > s.resetTTL()
}

// ConsumeResetToken clears the reset digest so the same raw token cannot be
// reused.
func (s *TokenService) ConsumeResetToken(ctx context.Context, account *domain.Account) error {
	if err := s.Store.ForceClearResetDigest(ctx, account.ID); err != nil {
		return err
	}
	account.ResetDigest = ""
	return nil
}

func (s *TokenService) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return s.ResetTTL
}

func (s *TokenService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
