package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/email"
)

// Mailer delivers one-time tokens. Callers treat delivery as best effort.
type Mailer interface {
	SendPasswordReset(ctx context.Context, account domain.Account, rawToken string) error
	SendActivation(ctx context.Context, account domain.Account, rawToken string) error
}

type EmailService struct {
	SMTP      email.SMTPSettings
	FromEmail string
	FromName  string
	// PublicURL is the front end base for mailed links. See link.
	PublicURL *url.URL
	AppName   string

	// Send defaults to email.SendSMTP.
	Send func(ctx context.Context, settings email.SMTPSettings, msg email.Message) error
}

func (s *EmailService) SendPasswordReset(ctx context.Context, account domain.Account, rawToken string) error {
	link := s.link(account.Email, "password-resets", rawToken, "edit")
	body := strings.Join([]string{
		"Hi " + account.Name + ",",
		"",
		"To reset your password click the link below:",
		link,
		"",
		"This link will expire in two hours.",
		"",
		"If you did not request your password to be reset, please ignore this email and your password will stay as it is.",
	}, "\n")
	return s.deliver(ctx, account.Email, "Password reset", body)
}

func (s *EmailService) SendActivation(ctx context.Context, account domain.Account, rawToken string) error {
	link := s.link(account.Email, "account-activations", rawToken, "edit")
	body := strings.Join([]string{
		"Hi " + account.Name + ",",
		"",
		"Welcome to " + s.appName() + "! Click on the link below to activate your account:",
		link,
	}, "\n")
	return s.deliver(ctx, account.Email, "Account activation", body)
}

func (s *EmailService) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.SMTP.Host == "" || s.FromEmail == "" {
		return fmt.Errorf("smtp not configured")
	}
	send := s.Send
	if send == nil {
		send = email.SendSMTP
	}
	return send(ctx, s.SMTP, email.Message{
		FromName:  s.FromName,
		FromEmail: s.FromEmail,
		ToEmail:   to,
		Subject:   s.appName() + ": " + subject,
		TextBody:  body,
	})
}

// link builds a front end URL under PublicURL. The API serves none of these
// paths: APP_PUBLIC_URL must name a front end that owns
// /password-resets/{token}/edit and /account-activations/{token}/edit and
// relays the token and email to /v1/password-resets/{token} and
// POST /v1/accounts/activate.
func (s *EmailService) link(accountEmail string, segments ...string) string {
	base := &url.URL{Scheme: "http", Host: "localhost:8080"}
	if s.PublicURL != nil {
		base = s.PublicURL
	}
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	u := base.JoinPath(escaped...)
	u.RawQuery = url.Values{"email": {accountEmail}}.Encode()
	return u.String()
}

func (s *EmailService) appName() string {
	if s.AppName != "" {
		return s.AppName
	}
	return "Microblog"
}

// LogMailer stands in when SMTP is not configured. It records that a message
// would have been sent and never logs the token.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendPasswordReset(ctx context.Context, account domain.Account, _ string) error {
	m.logger().InfoContext(ctx, "mail skipped: smtp not configured", "kind", "password_reset", "account_id", account.ID)
	return nil
}

func (m LogMailer) SendActivation(ctx context.Context, account domain.Account, _ string) error {
	m.logger().InfoContext(ctx, "mail skipped: smtp not configured", "kind", "activation", "account_id", account.ID)
	return nil
}

func (m LogMailer) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
