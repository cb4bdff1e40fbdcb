package service

import (
	"context"
	"errors"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

type ResetAccountsStore interface {
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	SetPasswordHash(ctx context.Context, accountID, passwordHash string) error
}

// ErrPasswordEmpty is returned by Update before any other check; its message is
// shown to the user verbatim.
var ErrPasswordEmpty = domain.NewValidationError(map[string]string{"password": "Password cannot be empty!"})

type ResetParams struct {
	Email                string
	Token                string
	Password             string
	PasswordConfirmation string
	IP                   string
	UserAgent            string
}

type PasswordResetService struct {
	Accounts ResetAccountsStore
	Tokens   *TokenService
	Auth     *AuthService
	Events   EventRecorder
}

// Request issues a reset token for the account behind email and mails it. An
// unknown email is reported as domain.ErrNotFound.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	account, err := s.Accounts.GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if _, err := s.Tokens.IssueResetToken(ctx, &account); err != nil {
		return err
	}
	record(s.Events, "reset_requested")
	return nil
}

// CheckEdit gates both showing and submitting the reset form. The account must
// exist, be activated and hold a reset digest matching token, and the token
// must not have expired.
func (s *PasswordResetService) CheckEdit(ctx context.Context, email, token string) (domain.Account, error) {
	account, err := s.Accounts.GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrResetTokenInvalid
		}
		return domain.Account{}, err
	}
	if !account.Activated || !s.Tokens.VerifyToken(account, domain.TokenReset, token) {
		return domain.Account{}, domain.ErrResetTokenInvalid
	}
	if s.Tokens.IsExpired(account) {
		return domain.Account{}, domain.ErrResetTokenExpired
	}
	return account, nil
}

// Update sets a new password through a valid reset token, logs the account in
// and consumes the token.
func (s *PasswordResetService) Update(ctx context.Context, p ResetParams) (domain.LoginResult, error) {
	account, err := s.CheckEdit(ctx, p.Email, p.Token)
	if err != nil {
		return domain.LoginResult{}, err
	}

	if p.Password == "" {
		return domain.LoginResult{}, ErrPasswordEmpty
	}
	fields := map[string]string{}
	if msg := domain.ValidatePassword(p.Password); msg != "" {
		fields["password"] = msg
	}
	if msg := domain.ValidatePasswordConfirmation(p.Password, p.PasswordConfirmation); msg != "" {
		fields["password_confirmation"] = msg
	}
	if len(fields) > 0 {
		return domain.LoginResult{}, domain.NewValidationError(fields)
	}

	hash, err := auth.SetPassword(p.Password)
	if err != nil {
		return domain.LoginResult{}, err
	}
	if err := s.Accounts.SetPasswordHash(ctx, account.ID, hash); err != nil {
		return domain.LoginResult{}, err
	}
	account.PasswordHash = hash
	// The token is spent before any session exists.
	if err := s.Tokens.ConsumeResetToken(ctx, &account); err != nil {
		return domain.LoginResult{}, err
	}

	sessID, err := s.Auth.LogIn(ctx, account, p.IP, p.UserAgent)
	if err != nil {
		return domain.LoginResult{}, err
	}
	record(s.Events, "reset_completed")
	return domain.LoginResult{Account: account, SessionID: sessID}, nil
}
