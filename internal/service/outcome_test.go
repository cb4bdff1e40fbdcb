package service

import (
	"errors"
	"fmt"
	"testing"

	"MicroblogServer/internal/domain"
)

func TestOutcomeOf(t *testing.T) {
	cases := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeSuccess},
		{domain.NewValidationError(map[string]string{"name": "can't be blank"}), OutcomeValidationFailed},
		{domain.ErrEmailTaken, OutcomeValidationFailed},
		{fmt.Errorf("lookup: %w", domain.ErrNotFound), OutcomeNotFound},
		{domain.ErrResetTokenExpired, OutcomeExpired},
		{domain.ErrResetTokenInvalid, OutcomeUnauthorized},
		{domain.ErrForbidden, OutcomeUnauthorized},
		{domain.ErrUnauthorized, OutcomeUnauthorized},
		{domain.ErrInvalidCredentials, OutcomeUnauthorized},
		{errors.New("connection reset"), OutcomeError},
	}
	for _, tc := range cases {
		if got := OutcomeOf(tc.err); got != tc.want {
			t.Fatalf("OutcomeOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
