package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName  = "mb_session"
	RememberCookieName = "mb_remember"
)

// CookieCodec signs cookie payloads with HMAC-SHA256. With an empty secret it
// passes values through unsigned, which is only accepted outside prod.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return CookieCodec{secret: secretCopy}
}

func (c CookieCodec) EncodeSessionID(sessionID string) string {
	return c.sign(sessionID)
}

func (c CookieCodec) DecodeSessionID(cookieValue string) (string, bool) {
	return c.verify(cookieValue)
}

// EncodeRemember packs the account id and the raw remember token into one
// signed value. The token itself is still checked against the stored digest.
func (c CookieCodec) EncodeRemember(accountID, rawToken string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(accountID)) + "~" + rawToken
	return c.sign(payload)
}

func (c CookieCodec) DecodeRemember(cookieValue string) (accountID, rawToken string, ok bool) {
	payload, ok := c.verify(cookieValue)
	if !ok {
		return "", "", false
	}
	idB64, raw, ok := strings.Cut(payload, "~")
	if !ok || idB64 == "" || raw == "" {
		return "", "", false
	}
	id, err := base64.RawURLEncoding.DecodeString(idB64)
	if err != nil || len(id) == 0 {
		return "", "", false
	}
	return string(id), raw, true
}

func (c CookieCodec) sign(value string) string {
	if len(c.secret) == 0 {
		return value
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	sig := mac.Sum(nil)

	return value + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (c CookieCodec) verify(cookieValue string) (string, bool) {
	if len(c.secret) == 0 {
		return cookieValue, cookieValue != ""
	}

	i := strings.LastIndexByte(cookieValue, '.')
	if i <= 0 || i == len(cookieValue)-1 {
		return "", false
	}
	value, sigB64 := cookieValue[:i], cookieValue[i+1:]

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != sha256.Size {
		return "", false
	}

	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}

	return value, true
}

func SetSessionCookie(w http.ResponseWriter, cookieValue string, ttl time.Duration, secure bool) {
	setCookie(w, SessionCookieName, cookieValue, ttl, secure)
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, SessionCookieName, secure)
}

func SetRememberCookie(w http.ResponseWriter, cookieValue string, ttl time.Duration, secure bool) {
	setCookie(w, RememberCookieName, cookieValue, ttl, secure)
}

func ClearRememberCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, RememberCookieName, secure)
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
