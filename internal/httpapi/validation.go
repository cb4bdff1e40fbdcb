package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"MicroblogServer/internal/domain"
)

// pageParams reads ?limit= and ?after= for keyset listings. A zero limit means
// the service default.
func pageParams(r *http.Request) (domain.Cursor, int, error) {
	q := r.URL.Query()

	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return domain.Cursor{}, 0, domain.NewValidationError(map[string]string{"limit": "must be a positive integer"})
		}
		limit = n
	}

	after, err := domain.DecodeCursor(strings.TrimSpace(q.Get("after")))
	if err != nil {
		return domain.Cursor{}, 0, domain.NewValidationError(map[string]string{"after": "invalid cursor"})
	}
	return after, limit, nil
}

func offsetParams(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, domain.NewValidationError(map[string]string{"limit": "must be a positive integer"})
		}
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, domain.NewValidationError(map[string]string{"offset": "must be zero or more"})
		}
	}
	return limit, offset, nil
}
