package domain

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

type Post struct {
	ID        string         `json:"id"`
	Author    AccountSummary `json:"author"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

type FollowStats struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// Cursor is a keyset position in a newest-first post listing. The zero value
// means "start from the newest post".
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func (c Cursor) IsZero() bool { return c.ID == "" && c.CreatedAt.IsZero() }

func CursorAfter(p Post) Cursor {
	return Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

var errBadCursor = errors.New("invalid cursor")

func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, errBadCursor
	}
	ts, id, ok := strings.Cut(string(b), ":")
	if !ok || id == "" {
		return Cursor{}, errBadCursor
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, errBadCursor
	}
	return Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
