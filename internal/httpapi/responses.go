package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"MicroblogServer/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteJSON(w, http.StatusUnprocessableEntity, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: "invalid request",
			Fields:  domain.ValidationFields(err),
		}})
	case errors.Is(err, domain.ErrEmailTaken):
		WriteJSON(w, http.StatusConflict, errorEnvelope{Error: apiError{
			Code:    "email_taken",
			Message: "email already taken",
			Fields:  map[string]string{"email": "has already been taken"},
		}})
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email/password combination")
	case errors.Is(err, domain.ErrAccountNotActivated):
		WriteError(w, http.StatusForbidden, "account_not_activated", "Account not activated. Check your email for the activation link.")
	case errors.Is(err, domain.ErrResetTokenExpired):
		WriteError(w, http.StatusGone, "reset_expired", "Password reset has expired.")
	case errors.Is(err, domain.ErrResetTokenInvalid):
		WriteError(w, http.StatusNotFound, "reset_invalid", "invalid password reset link")
	case errors.Is(err, domain.ErrActivationInvalid):
		WriteError(w, http.StatusBadRequest, "activation_invalid", "Invalid activation link")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
