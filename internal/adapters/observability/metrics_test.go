package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"monobook/internal/adapters/observability"
)

func scrape(t *testing.T) string {
	t.Helper()
	reg := observability.InitRegistry()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	observability.MetricsHandler(reg).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestMetricsRegistryAndHandler(t *testing.T) {
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)

	out := scrape(t)
	if !strings.Contains(out, "monobook_http_requests_total") {
		t.Fatalf("expected monobook_http_requests_total in output")
	}
}

func TestDomainCounters(t *testing.T) {
	observability.ObserveSearch("hotels", "mcp", "ok")
	observability.ObserveBooking("widget", "ai_pending")
	observability.ObserveAuditFailure("search_rooms")
	observability.ObserveRateLimited("agent_tools")

	out := scrape(t)
	for _, want := range []string{
		`monobook_searches_total{channel="mcp",kind="hotels",outcome="ok"}`,
		`monobook_bookings_total{channel="widget",outcome="ai_pending"}`,
		`monobook_audit_write_failures_total{tool="search_rooms"}`,
		`monobook_rate_limited_total{route="agent_tools"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in output", want)
		}
	}
}
