package domain

import "time"

type Account struct {
	ID          string
	Name        string
	Email       string
	Activated   bool
	ActivatedAt *time.Time
	Admin       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	PasswordHash     string
	RememberDigest   string
	ResetDigest      string
	ResetSentAt      *time.Time
	ActivationDigest string
}

func (a Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name}
}

// NewAccount carries already-normalized, validated and hashed registration data.
type NewAccount struct {
	Name             string
	Email            string
	PasswordHash     string
	ActivationDigest string
	Activated        bool
	Admin            bool
}

type AccountSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Session struct {
	ID        string
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// LoginResult is what the session collaborator needs to persist after a login.
// RememberToken is empty unless the caller asked to be remembered.
type LoginResult struct {
	Account       Account
	SessionID     string
	RememberToken string
}

// AccountUpdate holds normalized profile changes. An empty PasswordHash leaves
// the stored hash untouched.
type AccountUpdate struct {
	Name         string
	Email        string
	PasswordHash string
}
