package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	domain := NewDomainMetrics(metrics.Registerer())

	domain.ClosingSubmitted("short", -5000)
	domain.WarrantyTransition("approved", "ok")
	domain.ActivityDropped("warranty_rejected")
	domain.ForcedSignOut()

	body := scrape(t, metrics)
	for _, want := range []string{
		`nou_cash_closings_total{outcome="short"} 1`,
		`nou_cash_closing_abs_difference_count{outcome="short"} 1`,
		`nou_warranty_transitions_total{result="ok",to="approved"} 1`,
		`nou_activity_dropped_total{action="warranty_rejected"} 1`,
		`nou_forced_signouts_total 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q, got: %s", want, body)
		}
	}
}

func TestNilDomainMetricsIsNoop(t *testing.T) {
	var domain *DomainMetrics
	domain.ClosingSubmitted("perfect", 0)
	domain.WarrantyTransition("processed", "ok")
	domain.ActivityDropped("x")
	domain.ForcedSignOut()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "nou_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "nou_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "nou_http_requests_in_flight 0") {
		t.Fatalf("expected in-flight gauge to settle at zero, got: %s", metricsBody)
	}
}
