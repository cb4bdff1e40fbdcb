package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

type AccountReader interface {
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
}

type SessionsStore interface {
	CreateSession(ctx context.Context, accountID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

var ErrProviderNotConfigured = errors.New("external sign-in not configured")

type AuthService struct {
	Accounts   AccountReader
	Sessions   SessionsStore
	Tokens     *TokenService
	SessionTTL time.Duration
	Events     EventRecorder
	Now        func() time.Time

	GoogleClientID      string
	AppleServiceID      string
	VerifyGoogleIDToken auth.IDTokenVerifier
	VerifyAppleIDToken  auth.IDTokenVerifier
}

// Login checks credentials and opens a session. When remember is set a fresh
// remember token is issued and returned alongside the session id.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool, ip, userAgent string) (domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)

	account, err := s.Accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			record(s.Events, "login_failed")
			return domain.LoginResult{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResult{}, err
	}
	if !auth.PasswordMatches(account.PasswordHash, password) {
		record(s.Events, "login_failed")
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}
	if !account.Activated {
		record(s.Events, "login_not_activated")
		return domain.LoginResult{}, domain.ErrAccountNotActivated
	}

	return s.open(ctx, account, remember, ip, userAgent)
}

// LogIn opens a session for an account that has already been authenticated by
// other means, such as a completed password reset.
func (s *AuthService) LogIn(ctx context.Context, account domain.Account, ip, userAgent string) (string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}
	sessID, err := s.Sessions.CreateSession(ctx, account.ID, s.Now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return "", err
	}
	record(s.Events, "login")
	return sessID, nil
}

func (s *AuthService) open(ctx context.Context, account domain.Account, remember bool, ip, userAgent string) (domain.LoginResult, error) {
	sessID, err := s.LogIn(ctx, account, ip, userAgent)
	if err != nil {
		return domain.LoginResult{}, err
	}

	res := domain.LoginResult{Account: account, SessionID: sessID}
	if remember {
		raw, err := s.Remember(ctx, &res.Account)
		if err != nil {
			return domain.LoginResult{}, err
		}
		res.RememberToken = raw
	} else if account.RememberDigest != "" {
		if err := s.Forget(ctx, &res.Account); err != nil {
			return domain.LoginResult{}, err
		}
	}
	return res, nil
}

func (s *AuthService) Remember(ctx context.Context, account *domain.Account) (string, error) {
	return s.Tokens.IssueRememberToken(ctx, account)
}

func (s *AuthService) Forget(ctx context.Context, account *domain.Account) error {
	return s.Tokens.Forget(ctx, account)
}

// LogOut revokes the session and forgets the account's remember token. Either
// part may be absent.
func (s *AuthService) LogOut(ctx context.Context, sessionID string, account *domain.Account) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	if sessionID != "" {
		if err := s.Sessions.RevokeSession(ctx, sessionID, s.Now()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	if account != nil && account.ID != "" {
		if err := s.Forget(ctx, account); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	record(s.Events, "logout")
	return nil
}

func (s *AuthService) AccountForSession(ctx context.Context, sessionID string) (domain.Account, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrUnauthorized
		}
		return domain.Account{}, err
	}

	account, err := s.Accounts.GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrUnauthorized
		}
		return domain.Account{}, err
	}
	return account, nil
}

// AccountForRememberToken resolves a remember cookie. The caller opens a new
// session on success.
func (s *AuthService) AccountForRememberToken(ctx context.Context, accountID, raw string) (domain.Account, error) {
	if accountID == "" || raw == "" {
		return domain.Account{}, domain.ErrUnauthorized
	}
	account, err := s.Accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrUnauthorized
		}
		return domain.Account{}, err
	}
	if !s.Tokens.VerifyToken(account, domain.TokenRemember, raw) {
		return domain.Account{}, domain.ErrUnauthorized
	}
	if !account.Activated {
		return domain.Account{}, domain.ErrUnauthorized
	}
	return account, nil
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken, ip, userAgent string) (domain.LoginResult, error) {
	return s.loginWithExternal(ctx, "google", s.VerifyGoogleIDToken, s.GoogleClientID, idToken, ip, userAgent)
}

func (s *AuthService) LoginWithApple(ctx context.Context, idToken, ip, userAgent string) (domain.LoginResult, error) {
	return s.loginWithExternal(ctx, "apple", s.VerifyAppleIDToken, s.AppleServiceID, idToken, ip, userAgent)
}

func (s *AuthService) loginWithExternal(ctx context.Context, provider string, verify auth.IDTokenVerifier, audience, idToken, ip, userAgent string) (domain.LoginResult, error) {
	if verify == nil || strings.TrimSpace(audience) == "" {
		return domain.LoginResult{}, fmt.Errorf("%s: %w", provider, ErrProviderNotConfigured)
	}
	identity, err := verify(ctx, idToken, audience)
	if err != nil {
		record(s.Events, "login_failed")
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}
	if identity == nil || !identity.EmailVerified || identity.Email == "" {
		record(s.Events, "login_failed")
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	account, err := s.Accounts.GetAccountByEmail(ctx, domain.NormalizeEmail(identity.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			record(s.Events, "login_failed")
			return domain.LoginResult{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResult{}, err
	}
	if !account.Activated {
		return domain.LoginResult{}, domain.ErrAccountNotActivated
	}
	return s.open(ctx, account, false, ip, userAgent)
}
