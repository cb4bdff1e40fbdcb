package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

type stubAccountReader struct {
	t *testing.T

	getByIDFunc    func(context.Context, string) (domain.Account, error)
	getByEmailFunc func(context.Context, string) (domain.Account, error)
}

func (s *stubAccountReader) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, id)
	}
	s.t.Fatalf("GetAccountByID called unexpectedly")
	return domain.Account{}, errors.New("unexpected call")
}

func (s *stubAccountReader) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	if s.getByEmailFunc != nil {
		return s.getByEmailFunc(ctx, email)
	}
	s.t.Fatalf("GetAccountByEmail called unexpectedly")
	return domain.Account{}, errors.New("unexpected call")
}

type stubSessionsStore struct {
	t *testing.T

	createFunc func(context.Context, string, time.Time, string, string) (string, error)
	getFunc    func(context.Context, string) (domain.Session, error)
	revokeFunc func(context.Context, string, time.Time) error
}

func (s *stubSessionsStore) CreateSession(ctx context.Context, accountID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, accountID, expiresAt, ip, userAgent)
	}
	s.t.Fatalf("CreateSession called unexpectedly")
	return "", errors.New("unexpected call")
}

func (s *stubSessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, sessionID)
	}
	s.t.Fatalf("GetSession called unexpectedly")
	return domain.Session{}, errors.New("unexpected call")
}

func (s *stubSessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	if s.revokeFunc != nil {
		return s.revokeFunc(ctx, sessionID, when)
	}
	s.t.Fatalf("RevokeSession called unexpectedly")
	return errors.New("unexpected call")
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hash := mustHash(t, "foobar")
	accounts := &stubAccountReader{
		t: t,
		getByEmailFunc: func(_ context.Context, email string) (domain.Account, error) {
			if email != "ann@example.com" {
				t.Fatalf("email not normalized: %q", email)
			}
			return domain.Account{ID: "a1", Email: email, PasswordHash: hash, Activated: true}, nil
		},
	}
	sessions := &stubSessionsStore{
		t: t,
		createFunc: func(_ context.Context, accountID string, expiresAt time.Time, ip, ua string) (string, error) {
			if accountID != "a1" || !expiresAt.Equal(now.Add(time.Hour)) || ip != "1.2.3.4" || ua != "unit-test" {
				t.Fatalf("unexpected session args: %s %v %s %s", accountID, expiresAt, ip, ua)
			}
			return "sess-1", nil
		},
	}
	var remembered string
	tokens := &TokenService{Store: &stubTokenStore{
		t: t,
		setFunc: func(_ context.Context, _ string, kind domain.TokenKind, digest string, _ time.Time) error {
			if kind != domain.TokenRemember {
				t.Fatalf("kind = %s", kind)
			}
			remembered = digest
			return nil
		},
	}}
	events := counter{}
	svc := &AuthService{Accounts: accounts, Sessions: sessions, Tokens: tokens, SessionTTL: time.Hour, Events: events, Now: func() time.Time { return now }}

	res, err := svc.Login(context.Background(), "  Ann@Example.com ", "foobar", true, "1.2.3.4", "unit-test")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.SessionID != "sess-1" || res.RememberToken == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if auth.TokenDigest(res.RememberToken) != remembered {
		t.Fatalf("remember token does not match stored digest")
	}
	if events["login"] != 1 {
		t.Fatalf("login event not recorded: %v", events)
	}
}

func TestAuthServiceLoginInvalidCredentials(t *testing.T) {
	hash := mustHash(t, "foobar")
	accounts := &stubAccountReader{
		t: t,
		getByEmailFunc: func(_ context.Context, email string) (domain.Account, error) {
			if email == "ann@example.com" {
				return domain.Account{ID: "a1", PasswordHash: hash, Activated: true}, nil
			}
			return domain.Account{}, domain.ErrNotFound
		},
	}
	svc := &AuthService{Accounts: accounts, Sessions: &stubSessionsStore{t: t}}

	if _, err := svc.Login(context.Background(), "ann@example.com", "wrong!", false, "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "foobar", false, "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
}

func TestAuthServiceLoginNotActivated(t *testing.T) {
	hash := mustHash(t, "foobar")
	svc := &AuthService{
		Accounts: &stubAccountReader{t: t, getByEmailFunc: func(context.Context, string) (domain.Account, error) {
			return domain.Account{ID: "a1", PasswordHash: hash}, nil
		}},
		Sessions: &stubSessionsStore{t: t},
	}
	if _, err := svc.Login(context.Background(), "ann@example.com", "foobar", false, "", ""); !errors.Is(err, domain.ErrAccountNotActivated) {
		t.Fatalf("expected not activated, got %v", err)
	}
}

func TestAuthServiceAccountForSessionMissing(t *testing.T) {
	svc := &AuthService{
		Sessions: &stubSessionsStore{t: t, getFunc: func(context.Context, string) (domain.Session, error) {
			return domain.Session{}, domain.ErrNotFound
		}},
	}
	if _, err := svc.AccountForSession(context.Background(), "gone"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthServiceAccountForRememberToken(t *testing.T) {
	raw, digest, err := auth.NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	accounts := &stubAccountReader{t: t, getByIDFunc: func(_ context.Context, id string) (domain.Account, error) {
		if id != "a1" {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{ID: "a1", RememberDigest: digest, Activated: true}, nil
	}}
	svc := &AuthService{Accounts: accounts, Tokens: &TokenService{}}

	acct, err := svc.AccountForRememberToken(context.Background(), "a1", raw)
	if err != nil || acct.ID != "a1" {
		t.Fatalf("expected a1, got %+v %v", acct, err)
	}
	if _, err := svc.AccountForRememberToken(context.Background(), "a1", "forged"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("forged token: got %v", err)
	}
	if _, err := svc.AccountForRememberToken(context.Background(), "zz", raw); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown account: got %v", err)
	}
}

func TestAuthServiceLogOutRevokesAndForgets(t *testing.T) {
	revoked, forgot := false, false
	svc := &AuthService{
		Sessions: &stubSessionsStore{t: t, revokeFunc: func(_ context.Context, id string, _ time.Time) error {
			revoked = id == "sess-1"
			return nil
		}},
		Tokens: &TokenService{Store: &stubTokenStore{t: t, clearFunc: func(_ context.Context, id string, kind domain.TokenKind) error {
			forgot = id == "a1" && kind == domain.TokenRemember
			return nil
		}}},
	}
	acct := domain.Account{ID: "a1", RememberDigest: "d"}
	if err := svc.LogOut(context.Background(), "sess-1", &acct); err != nil {
		t.Fatalf("LogOut: %v", err)
	}
	if !revoked || !forgot || acct.RememberDigest != "" {
		t.Fatalf("revoked=%v forgot=%v digest=%q", revoked, forgot, acct.RememberDigest)
	}
}

func TestAuthServiceLoginWithGoogleExistingAccount(t *testing.T) {
	accounts := &stubAccountReader{t: t, getByEmailFunc: func(_ context.Context, email string) (domain.Account, error) {
		if email != "ann@example.com" {
			t.Fatalf("unexpected email %q", email)
		}
		return domain.Account{ID: "a1", Email: email, Activated: true}, nil
	}}
	sessions := &stubSessionsStore{t: t, createFunc: func(context.Context, string, time.Time, string, string) (string, error) {
		return "sess-g", nil
	}}
	svc := &AuthService{
		Accounts:       accounts,
		Sessions:       sessions,
		Tokens:         &TokenService{},
		SessionTTL:     time.Hour,
		GoogleClientID: "client-id",
		VerifyGoogleIDToken: func(_ context.Context, token, aud string) (*auth.ExternalIdentity, error) {
			if token != "token-123" || aud != "client-id" {
				t.Fatalf("unexpected verify args %q %q", token, aud)
			}
			return &auth.ExternalIdentity{Provider: "google", Subject: "g-1", Email: "Ann@example.com", EmailVerified: true}, nil
		},
	}

	res, err := svc.LoginWithGoogle(context.Background(), "token-123", "1.2.3.4", "unit-test")
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if res.Account.ID != "a1" || res.SessionID != "sess-g" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAuthServiceLoginWithGoogleInvalidToken(t *testing.T) {
	svc := &AuthService{
		GoogleClientID: "client-id",
		VerifyGoogleIDToken: func(context.Context, string, string) (*auth.ExternalIdentity, error) {
			return nil, errors.New("bad token")
		},
	}
	if _, err := svc.LoginWithGoogle(context.Background(), "bad", "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthServiceLoginWithAppleUnverifiedEmail(t *testing.T) {
	svc := &AuthService{
		AppleServiceID: "svc-id",
		VerifyAppleIDToken: func(context.Context, string, string) (*auth.ExternalIdentity, error) {
			return &auth.ExternalIdentity{Provider: "apple", Subject: "x", Email: "ann@example.com"}, nil
		},
	}
	if _, err := svc.LoginWithApple(context.Background(), "token", "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthServiceExternalLoginNotConfigured(t *testing.T) {
	svc := &AuthService{}
	if _, err := svc.LoginWithApple(context.Background(), "token", "", ""); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}
