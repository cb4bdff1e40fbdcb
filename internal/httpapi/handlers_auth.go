package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/service"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	email := domain.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, now) || !a.loginLimiter.Allow("login:"+email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	res, err := a.authSvc.Login(r.Context(), email, req.Password, req.RememberMe, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	a.setLoginCookies(w, res)
	writeAccount(w, http.StatusOK, res.Account, true)
}

type idTokenRequest struct {
	IDToken string `json:"id_token"`
}

func (a *api) handleAuthLoginGoogle(w http.ResponseWriter, r *http.Request) {
	a.handleExternalLogin(w, r, a.authSvc.LoginWithGoogle)
}

func (a *api) handleAuthLoginApple(w http.ResponseWriter, r *http.Request) {
	a.handleExternalLogin(w, r, a.authSvc.LoginWithApple)
}

type externalLogin func(ctx context.Context, idToken, ip, userAgent string) (domain.LoginResult, error)

func (a *api) handleExternalLogin(w http.ResponseWriter, r *http.Request, login externalLogin) {
	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	token := strings.TrimSpace(req.IDToken)
	if token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id_token": "required"}))
		return
	}

	ip := clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, time.Now()) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	res, err := login(r.Context(), token, ip, r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrProviderNotConfigured) {
			WriteError(w, http.StatusServiceUnavailable, "provider_unavailable", "sign-in provider not configured")
			return
		}
		WriteDomainError(w, err)
		return
	}
	a.setLoginCookies(w, res)
	writeAccount(w, http.StatusOK, res.Account, true)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	sessID, _ := CurrentSessionID(r.Context())
	account, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.authSvc.LogOut(r.Context(), sessID, &account); err != nil {
		a.logger.Error("logout failed", "err", err, "account_id", account.ID)
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	auth.ClearRememberCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	account, ok := CurrentAccount(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeAccount(w, http.StatusOK, account, true)
}

func (a *api) setLoginCookies(w http.ResponseWriter, res domain.LoginResult) {
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(res.SessionID), a.sessionTTL, a.cookieSecure)
	if res.RememberToken != "" {
		auth.SetRememberCookie(w, a.cookieCodec.EncodeRemember(res.Account.ID, res.RememberToken), a.rememberTTL, a.cookieSecure)
	} else {
		auth.ClearRememberCookie(w, a.cookieSecure)
	}
}
