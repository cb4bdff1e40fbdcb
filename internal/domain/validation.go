package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLen        = 50
	MaxEmailLen       = 255
	MinPasswordLen    = 6
	MaxPostContentLen = 140
)

var emailPattern = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-]+(\.[a-z\d\-]+)*\.[a-z]+$`)

// NormalizeEmail is applied before every email write and lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}

// ValidateName returns "" when the name is acceptable, otherwise a field message.
func ValidateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "can't be blank"
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "is too long (maximum is 50 characters)"
	}
	return ""
}

func ValidateEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return "can't be blank"
	}
	if len(email) > MaxEmailLen {
		return "is too long (maximum is 255 characters)"
	}
	if !emailPattern.MatchString(email) {
		return "is invalid"
	}
	return ""
}

func ValidatePassword(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "can't be blank"
	}
	if utf8.RuneCountInString(raw) < MinPasswordLen {
		return "is too short (minimum is 6 characters)"
	}
	return ""
}

// ValidatePasswordConfirmation only checks when a confirmation was supplied.
func ValidatePasswordConfirmation(raw, confirmation string) string {
	if confirmation != "" && confirmation != raw {
		return "doesn't match password"
	}
	return ""
}

// ValidateAccountFields runs the account pipeline in order and collects every
// failing field. An empty password is skipped when passwordOptional is set, so
// profile edits can leave the password unchanged.
func ValidateAccountFields(name, email, password, confirmation string, passwordOptional bool) error {
	fields := map[string]string{}
	if msg := ValidateName(name); msg != "" {
		fields["name"] = msg
	}
	if msg := ValidateEmail(email); msg != "" {
		fields["email"] = msg
	}
	if !(passwordOptional && password == "") {
		if msg := ValidatePassword(password); msg != "" {
			fields["password"] = msg
		}
		if msg := ValidatePasswordConfirmation(password, confirmation); msg != "" {
			fields["password_confirmation"] = msg
		}
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func ValidatePostContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return "can't be blank"
	}
	if utf8.RuneCountInString(content) > MaxPostContentLen {
		return "is too long (maximum is 140 characters)"
	}
	return ""
}
