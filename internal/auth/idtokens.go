package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

// ExternalIdentity is what a third-party sign-in vouches for. Only a verified
// email is used to find the local account.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
}

// IDTokenVerifier checks a provider-issued ID token against the expected audience.
type IDTokenVerifier func(ctx context.Context, token, audience string) (*ExternalIdentity, error)

var errMissingIDToken = errors.New("missing id token")

func VerifyGoogleIDToken(ctx context.Context, token, audience string) (*ExternalIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errMissingIDToken
	}
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("missing google client id")
	}

	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	id := &ExternalIdentity{Provider: "google", Subject: payload.Subject}
	if v, ok := payload.Claims["email"].(string); ok {
		id.Email = strings.TrimSpace(strings.ToLower(v))
	}
	if v, ok := payload.Claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	return id, nil
}

func VerifyAppleIDToken(ctx context.Context, token, audience string) (*ExternalIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errMissingIDToken
	}
	if strings.TrimSpace(audience) == "" {
		return nil, errors.New("missing apple service id")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := validator.NewClient()
	idToken, err := client.VerifyIdToken(audience, token)
	if err != nil {
		return nil, err
	}
	if idToken.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idToken.Iss)
	}

	// Apple only returns emails it has verified.
	return &ExternalIdentity{
		Provider:      "apple",
		Subject:       idToken.Sub,
		Email:         strings.TrimSpace(strings.ToLower(idToken.Email)),
		EmailVerified: idToken.Email != "",
	}, nil
}
