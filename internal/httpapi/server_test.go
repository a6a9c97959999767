package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsgate/slb-mcp-gateway/internal/audit"
	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
)

func TestHealthzAndReadyz(t *testing.T) {
	p := audit.New(false)
	s := New(Config{}, p)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpointServesPrometheusText(t *testing.T) {
	p := audit.New(false)
	p.Attempt("run-powershell", "", classifier.SecurityAssessment{Level: patterns.TierSafe})
	s := New(Config{}, p)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !containsMetricName(rec.Body.String(), "slb_mcp_gateway_attempts_total") {
		t.Fatalf("expected attempts_total metric in output, got: %s", rec.Body.String())
	}
}

func TestAPIMetricsRequiresAuthWhenTokenSet(t *testing.T) {
	p := audit.New(false)
	s := New(Config{AuthToken: "secret"}, p)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct token, got %d", rec.Code)
	}
}

func TestEventsReplayEndpoint(t *testing.T) {
	p := audit.New(false)
	p.Attempt("run-powershell", "", classifier.SecurityAssessment{Level: patterns.TierSafe})
	s := New(Config{}, p)

	req := httptest.NewRequest(http.MethodGet, "/api/events/replay?since=0&limit=10", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func containsMetricName(body, name string) bool {
	return len(body) > 0 && (indexOf(body, name) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
