package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/service"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (a *api) handlePasswordResetCreate(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.loginLimiter.Allow("forgot:ip:"+ip, now) || !a.loginLimiter.Allow("forgot:email:"+email, now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	if err := a.resetSvc.Request(r.Context(), email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "email_not_found", "Email address not found")
			return
		}
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "Email sent with password reset instructions",
	})
}

func (a *api) handlePasswordResetCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := a.resetSvc.CheckEdit(r.Context(), r.URL.Query().Get("email"), r.PathValue("token")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (a *api) handlePasswordResetUpdate(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	res, err := a.resetSvc.Update(r.Context(), service.ResetParams{
		Email:                req.Email,
		Token:                strings.TrimSpace(r.PathValue("token")),
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		IP:                   clientIP(r),
		UserAgent:            r.UserAgent(),
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(res.SessionID), a.sessionTTL, a.cookieSecure)
	writeAccount(w, http.StatusOK, res.Account, true)
}
