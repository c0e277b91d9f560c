package obs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordsProviderCalls(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveProviderCall("nominatim", "rate_limited", 20*time.Millisecond)
	m.ObserveProviderCall("nominatim", "ok", 30*time.Millisecond)
	m.ObserveProviderCall("nominatim", "ok", 10*time.Millisecond)

	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("nominatim", "ok")); got != 2 {
		t.Fatalf("geocode_provider_calls_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("nominatim", "rate_limited")); got != 1 {
		t.Fatalf("geocode_provider_calls_total{rate_limited} = %v, want 1", got)
	}
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}

	first.ObserveEstimate("distance")
	if got := testutil.ToFloat64(second.Estimates.WithLabelValues("distance")); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveEstimate("flat_fee")
	m.ObserveHTTP("/health", http.StatusOK, time.Millisecond)
	m.ObserveCacheLookup("hit", 3)
}

func TestMetricsHandlerExposesSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveHTTP("/menu/{slug}/calculate-delivery", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("expected http_requests_total in exposition, got:\n%s", body)
	}
}
