package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

type AccountsStore interface {
	CreateAccount(ctx context.Context, a domain.NewAccount) (domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	ListActivatedAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, id string, upd domain.AccountUpdate) (domain.Account, error)
	MarkActivated(ctx context.Context, id string, when time.Time) error
	DeleteAccount(ctx context.Context, id string) error
}

type RegisterParams struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// UpdateParams leaves the password unchanged when Password is empty.
type UpdateParams struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

type AccountService struct {
	Accounts AccountsStore
	Tokens   *TokenService
	Events   EventRecorder
	Now      func() time.Time
}

// Register creates an unactivated account and mails its activation token.
func (s *AccountService) Register(ctx context.Context, p RegisterParams) (domain.Account, error) {
	name := domain.NormalizeName(p.Name)
	email := domain.NormalizeEmail(p.Email)
	if err := domain.ValidateAccountFields(name, email, p.Password, p.PasswordConfirmation, false); err != nil {
		return domain.Account{}, err
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account, err := s.Accounts.CreateAccount(ctx, domain.NewAccount{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return domain.Account{}, err
	}
	if _, err := s.Tokens.IssueActivationToken(ctx, &account); err != nil {
		return domain.Account{}, err
	}
	record(s.Events, "account_registered")
	return account, nil
}

func (s *AccountService) Activate(ctx context.Context, email, raw string) (domain.Account, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	account, err := s.Accounts.GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Account{}, domain.ErrActivationInvalid
		}
		return domain.Account{}, err
	}
	if account.Activated || !s.Tokens.VerifyToken(account, domain.TokenActivation, raw) {
		return domain.Account{}, domain.ErrActivationInvalid
	}

	now := s.Now()
	if err := s.Accounts.MarkActivated(ctx, account.ID, now); err != nil {
		return domain.Account{}, err
	}
	account.Activated = true
	account.ActivatedAt = &now
	account.ActivationDigest = ""
	record(s.Events, "account_activated")
	return account, nil
}

// Bootstrap makes sure an activated admin account exists for email. An existing
// account is returned unchanged.
func (s *AccountService) Bootstrap(ctx context.Context, name, email, password string) (domain.Account, bool, error) {
	email = domain.NormalizeEmail(email)
	existing, err := s.Accounts.GetAccountByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, false, err
	}

	name = domain.NormalizeName(name)
	if err := domain.ValidateAccountFields(name, email, password, "", false); err != nil {
		return domain.Account{}, false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("hash password: %w", err)
	}
	account, err := s.Accounts.CreateAccount(ctx, domain.NewAccount{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Activated:    true,
		Admin:        true,
	})
	if err != nil {
		return domain.Account{}, false, err
	}
	return account, true, nil
}

func (s *AccountService) List(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}
	return s.Accounts.ListActivatedAccounts(ctx, limit, offset)
}

// Show returns a public profile. Unactivated accounts are not visible.
func (s *AccountService) Show(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.Accounts.GetAccountByID(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if !account.Activated {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

// Get loads the account for editing; only its owner may.
func (s *AccountService) Get(ctx context.Context, actor domain.Account, targetID string) (domain.Account, error) {
	if err := requireSelf(actor, targetID); err != nil {
		return domain.Account{}, err
	}
	return s.Accounts.GetAccountByID(ctx, targetID)
}

func (s *AccountService) Update(ctx context.Context, actor domain.Account, targetID string, p UpdateParams) (domain.Account, error) {
	if err := requireSelf(actor, targetID); err != nil {
		return domain.Account{}, err
	}

	name := domain.NormalizeName(p.Name)
	email := domain.NormalizeEmail(p.Email)
	if err := domain.ValidateAccountFields(name, email, p.Password, p.PasswordConfirmation, true); err != nil {
		return domain.Account{}, err
	}

	upd := domain.AccountUpdate{Name: name, Email: email}
	if p.Password != "" {
		hash, err := auth.SetPassword(p.Password)
		if err != nil {
			return domain.Account{}, err
		}
		upd.PasswordHash = hash
	}
	return s.Accounts.UpdateAccount(ctx, targetID, upd)
}

// Destroy removes the account along with its posts, relationships and
// sessions. Admins may destroy any account.
func (s *AccountService) Destroy(ctx context.Context, actor domain.Account, targetID string) error {
	if actor.ID == "" {
		return domain.ErrUnauthorized
	}
	if actor.ID != targetID && !actor.Admin {
		return domain.ErrForbidden
	}
	if err := s.Accounts.DeleteAccount(ctx, targetID); err != nil {
		return err
	}
	record(s.Events, "account_destroyed")
	return nil
}

func requireSelf(actor domain.Account, targetID string) error {
	if actor.ID == "" {
		return domain.ErrUnauthorized
	}
	if actor.ID != targetID {
		return domain.ErrForbidden
	}
	return nil
}
