package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestRecordEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEvent("login")
	c.RecordEvent("login")
	c.RecordEvent("logout")

	body := scrape(t, reg)
	for _, want := range []string{
		`microblog_events_total{event="login"} 2`,
		`microblog_events_total{event="logout"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestRecordHTTPRequestUnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("", http.MethodGet, http.StatusNotFound, 5*time.Millisecond)

	body := scrape(t, reg)
	want := `microblog_http_requests_total{method="GET",route="unmatched",status_code="404"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("missing %q in:\n%s", want, body)
	}
	if !strings.Contains(body, "microblog_http_request_duration_seconds_count") {
		t.Fatalf("latency histogram missing")
	}
}
