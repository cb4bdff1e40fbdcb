// Package content cleans user-submitted post text before it is stored.
package content

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips every HTML element from post text. A bluemonday policy is
// safe for concurrent use, so one Sanitizer serves all requests.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns plain text: tags are removed, entities the policy escaped
// are decoded again, and surrounding whitespace is trimmed. Output is escaped
// by whoever renders it.
func (s *Sanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
