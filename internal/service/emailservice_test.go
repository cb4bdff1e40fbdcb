package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/email"
)

type ctxKey struct{}

func TestEmailServiceLinksAndContext(t *testing.T) {
	public, err := url.Parse("https://micro.example.com/app/")
	require.NoError(t, err)

	var sent []email.Message
	var sawCtx []any
	svc := &EmailService{
		SMTP:      email.SMTPSettings{Host: "smtp.example.com", Port: 587},
		FromEmail: "noreply@example.com",
		PublicURL: public,
		AppName:   "Micro",
		Send: func(ctx context.Context, _ email.SMTPSettings, msg email.Message) error {
			sawCtx = append(sawCtx, ctx.Value(ctxKey{}))
			sent = append(sent, msg)
			return nil
		},
	}
	acct := domain.Account{Name: "Ann", Email: "ann+x@example.com"}
	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")

	require.NoError(t, svc.SendPasswordReset(ctx, acct, "tok/en"))
	require.NoError(t, svc.SendActivation(ctx, acct, "act"))
	require.Len(t, sent, 2)
	require.Equal(t, []any{"req-1", "req-1"}, sawCtx)

	require.Equal(t, "Micro: Password reset", sent[0].Subject)
	require.Contains(t, sent[0].TextBody, "https://micro.example.com/app/password-resets/tok%2Fen/edit?email=ann%2Bx%40example.com")
	require.Contains(t, sent[1].TextBody, "https://micro.example.com/app/account-activations/act/edit?email=ann%2Bx%40example.com")
	require.Equal(t, "ann+x@example.com", sent[1].ToEmail)
}

func TestEmailServiceHonoursCancelledContext(t *testing.T) {
	called := false
	svc := &EmailService{
		SMTP:      email.SMTPSettings{Host: "smtp.example.com", Port: 587},
		FromEmail: "noreply@example.com",
		Send: func(context.Context, email.SMTPSettings, email.Message) error {
			called = true
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SendActivation(ctx, domain.Account{Email: "a@example.com"}, "x")
	require.True(t, errors.Is(err, context.Canceled))
	require.False(t, called)
}

func TestEmailServiceDefaultsToLocalhostLinks(t *testing.T) {
	var body string
	svc := &EmailService{
		SMTP:      email.SMTPSettings{Host: "smtp.example.com"},
		FromEmail: "noreply@example.com",
		Send: func(_ context.Context, _ email.SMTPSettings, msg email.Message) error {
			body = msg.TextBody
			return nil
		},
	}
	require.NoError(t, svc.SendActivation(context.Background(), domain.Account{Name: "Bo", Email: "bo@example.com"}, "abc"))
	require.True(t, strings.Contains(body, "http://localhost:8080/account-activations/abc/edit?email=bo%40example.com"), body)
	require.Contains(t, body, "Welcome to Microblog!")
}
