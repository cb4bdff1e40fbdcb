package service

import (
	"errors"

	"MicroblogServer/internal/domain"
)

// Outcome is the named result handed to the view layer; it decides how to
// render or redirect.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeUnauthorized     Outcome = "unauthorized"
	OutcomeExpired          Outcome = "expired"
	OutcomeError            Outcome = "error"
)

func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrEmailTaken):
		return OutcomeValidationFailed
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrResetTokenExpired):
		return OutcomeExpired
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountNotActivated),
		errors.Is(err, domain.ErrResetTokenInvalid),
		errors.Is(err, domain.ErrActivationInvalid):
		return OutcomeUnauthorized
	default:
		return OutcomeError
	}
}

// EventRecorder counts security-relevant events. It may be nil.
type EventRecorder interface {
	RecordEvent(name string)
}

func record(r EventRecorder, name string) {
	if r != nil {
		r.RecordEvent(name)
	}
}
