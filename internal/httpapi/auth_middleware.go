package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
)

type authCtxKey int

const (
	authAccountKey authCtxKey = iota
	authSessionKey
)

// requireAuth resolves the caller from the session cookie, falling back to the
// remember cookie. A remembered caller gets a fresh session.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, sessID, err := a.authenticate(w, r)
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), authAccountKey, account)
		ctx = context.WithValue(ctx, authSessionKey, sessID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (a *api) authenticate(w http.ResponseWriter, r *http.Request) (domain.Account, string, error) {
	if c, err := r.Cookie(auth.SessionCookieName); err == nil && c.Value != "" {
		if sessID, ok := a.cookieCodec.DecodeSessionID(c.Value); ok {
			account, err := a.authSvc.AccountForSession(r.Context(), sessID)
			if err == nil {
				return account, sessID, nil
			}
			if !errors.Is(err, domain.ErrUnauthorized) {
				return domain.Account{}, "", err
			}
		}
	}

	c, err := r.Cookie(auth.RememberCookieName)
	if err != nil || c.Value == "" {
		return domain.Account{}, "", domain.ErrUnauthorized
	}
	accountID, raw, ok := a.cookieCodec.DecodeRemember(c.Value)
	if !ok {
		auth.ClearRememberCookie(w, a.cookieSecure)
		return domain.Account{}, "", domain.ErrUnauthorized
	}
	account, err := a.authSvc.AccountForRememberToken(r.Context(), accountID, raw)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			auth.ClearRememberCookie(w, a.cookieSecure)
		}
		return domain.Account{}, "", err
	}

	sessID, err := a.authSvc.LogIn(r.Context(), account, clientIP(r), r.UserAgent())
	if err != nil {
		return domain.Account{}, "", err
	}
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	return account, sessID, nil
}

func CurrentAccount(ctx context.Context) (domain.Account, bool) {
	u, ok := ctx.Value(authAccountKey).(domain.Account)
	return u, ok
}

func CurrentSessionID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(authSessionKey).(string)
	return s, ok
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// optionalAccount resolves the session cookie without the remember fallback
// and without writing cookies.
func (a *api) optionalAccount(r *http.Request) (domain.Account, string, error) {
	c, err := r.Cookie(auth.SessionCookieName)
	if err != nil || c.Value == "" {
		return domain.Account{}, "", domain.ErrUnauthorized
	}
	sessID, ok := a.cookieCodec.DecodeSessionID(c.Value)
	if !ok {
		return domain.Account{}, "", domain.ErrUnauthorized
	}
	account, err := a.authSvc.AccountForSession(r.Context(), sessID)
	if err != nil {
		return domain.Account{}, "", err
	}
	return account, sessID, nil
}
