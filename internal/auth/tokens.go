package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// NewToken returns a random URL-safe token and the digest to persist for it.
// Only the digest may be stored; the raw value leaves the process exactly once.
func NewToken() (raw, digest string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, TokenDigest(raw), nil
}

func TokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenMatches is false for an empty digest or an empty raw token.
func TokenMatches(digest, raw string) bool {
	if digest == "" || raw == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(TokenDigest(raw))) == 1
}
