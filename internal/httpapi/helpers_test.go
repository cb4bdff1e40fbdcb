package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"MicroblogServer/internal/auth"
	"MicroblogServer/internal/content"
	"MicroblogServer/internal/domain"
	"MicroblogServer/internal/metrics"
	"MicroblogServer/internal/service"
	"MicroblogServer/internal/store/memory"
)

type capturedMail struct {
	kind  string
	email string
	token string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

func (m *captureMailer) SendPasswordReset(_ context.Context, account domain.Account, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{kind: "reset", email: account.Email, token: raw})
	return nil
}

func (m *captureMailer) SendActivation(_ context.Context, account domain.Account, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{kind: "activation", email: account.Email, token: raw})
	return nil
}

func (m *captureMailer) lastToken(t *testing.T, kind string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i].token
		}
	}
	t.Fatalf("no %s mail sent", kind)
	return ""
}

type testServer struct {
	*httptest.Server
	store  *memory.Store
	mailer *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.New()
	mailer := &captureMailer{}
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	tokens := &service.TokenService{Store: store, Mailer: mailer, ResetTTL: service.DefaultResetTokenTTL}
	authSvc := &service.AuthService{Accounts: store, Sessions: store, Tokens: tokens, SessionTTL: time.Hour, Events: collector}

	h := NewRouter(RouterOpts{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Auth:           authSvc,
		Accounts:       &service.AccountService{Accounts: store, Tokens: tokens, Events: collector},
		Resets:         &service.PasswordResetService{Accounts: store, Tokens: tokens, Auth: authSvc, Events: collector},
		Graph:          &service.GraphService{Accounts: store, Relationships: store},
		Feed:           &service.FeedService{Posts: store, Accounts: store, Sanitizer: content.NewSanitizer(), Events: collector},
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		CookieCodec:    auth.NewCookieCodec([]byte("test-secret")),
		SessionTTL:     time.Hour,
		RememberTTL:    24 * time.Hour,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store, mailer: mailer}
}

func (s *testServer) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *testServer) activeAccount(t *testing.T, name, email, password string) domain.Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	acct, err := s.store.CreateAccount(context.Background(), domain.NewAccount{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Activated:    true,
	})
	require.NoError(t, err)
	return acct
}

// login returns a client holding a session for email.
func (s *testServer) login(t *testing.T, email, password string) *http.Client {
	t.Helper()
	c := s.newClient(t)
	res, _ := s.do(t, c, http.MethodPost, "/v1/auth/login", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.StatusCode)
	return c
}

// do sends body as JSON (when non-nil) and decodes a JSON response into a map.
func (s *testServer) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return res, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}
