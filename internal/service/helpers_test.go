package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/store/memory"
)

type sentMail struct {
	Kind    string
	Account domain.Account
	Token   string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, account domain.Account, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: "reset", Account: account, Token: raw})
	return m.err
}

func (m *recordingMailer) SendActivation(_ context.Context, account domain.Account, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: "activation", Account: account, Token: raw})
	return m.err
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type counter map[string]int

func (c counter) RecordEvent(name string) { c[name]++ }

// world wires every service onto one memory store, the way cmd/server does.
type world struct {
	store    *memory.Store
	clock    *fakeClock
	mailer   *recordingMailer
	events   counter
	tokens   *TokenService
	auth     *AuthService
	accounts *AccountService
	resets   *PasswordResetService
	graph    *GraphService
	feed     *FeedService
}

func newWorld(t *testing.T) *world {
	t.Helper()
	clock := newFakeClock()
	store := memory.New().WithClock(clock.Now)
	mailer := &recordingMailer{}
	events := counter{}

	tokens := &TokenService{Store: store, Mailer: mailer, ResetTTL: DefaultResetTokenTTL, Now: clock.Now}
	authSvc := &AuthService{Accounts: store, Sessions: store, Tokens: tokens, SessionTTL: time.Hour, Events: events, Now: clock.Now}
	return &world{
		store:    store,
		clock:    clock,
		mailer:   mailer,
		events:   events,
		tokens:   tokens,
		auth:     authSvc,
		accounts: &AccountService{Accounts: store, Tokens: tokens, Events: events, Now: clock.Now},
		resets:   &PasswordResetService{Accounts: store, Tokens: tokens, Auth: authSvc, Events: events},
		graph:    &GraphService{Accounts: store, Relationships: store},
		feed:     &FeedService{Posts: store, Accounts: store, PageSize: 2, Events: events, Now: clock.Now},
	}
}

// activeAccount creates an activated account with the given password.
func (w *world) activeAccount(t *testing.T, name, email, password string) domain.Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	acct, err := w.store.CreateAccount(context.Background(), domain.NewAccount{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Activated:    true,
	})
	require.NoError(t, err)
	return acct
}

func (w *world) reload(t *testing.T, id string) domain.Account {
	t.Helper()
	acct, err := w.store.GetAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acct
}
