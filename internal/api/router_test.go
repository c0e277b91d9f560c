package api

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/logging"
	"delivery-fee-service/internal/platform/obs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

type stubEstimator struct {
	gotReqID string
}

func (s *stubEstimator) Estimate(ctx context.Context, slug, rawCEP string) (domain.DeliveryEstimate, error) {
	s.gotReqID = obs.RequestID(ctx)
	pc, err := domain.NormalizePostalCode(rawCEP)
	if err != nil {
		return domain.DeliveryEstimate{}, err
	}
	return domain.DeliveryEstimate{Fee: decimal.RequireFromString("5"), EstimatedMinutes: 30, PostalCode: pc}, nil
}

func newTestRouter(t *testing.T, limiter *ClientLimiter) (http.Handler, *stubEstimator, *obs.Metrics) {
	t.Helper()

	metrics, err := obs.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	est := &stubEstimator{}
	h := NewRouter(Deps{
		Estimator: est,
		Limiter:   limiter,
		Metrics:   metrics,
		Logger:    logging.Discard(),
	})
	return h, est, metrics
}

func TestRouterPropagatesRequestID(t *testing.T) {
	h, est, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/menu/pizzaria/calculate-delivery?cep=01310100", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("X-Request-ID = %q", got)
	}
	if est.gotReqID != "abc-123" {
		t.Fatalf("estimator req id = %q", est.gotReqID)
	}
}

func TestRouterGeneratesRequestID(t *testing.T) {
	h, _, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("X-Request-ID = %q, want a uuid", rec.Header().Get("X-Request-ID"))
	}
}

func TestRouterRecordsHTTPMetrics(t *testing.T) {
	h, _, metrics := newTestRouter(t, nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menu/x/calculate-delivery?cep=123", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	}

	got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/menu/{slug}/calculate-delivery", "400"))
	if got != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total")
	}
}

func TestRouterRateLimitsPerClient(t *testing.T) {
	limiter := NewClientLimiter(1, 2)
	h, _, _ := newTestRouter(t, limiter)

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := do("10.0.0.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}

	if rec := do("10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", rec.Code)
	}
}

func TestClientLimiterCleanup(t *testing.T) {
	limiter := NewClientLimiter(1, 1)
	limiter.idleTTL = time.Millisecond

	limiter.get("a")
	limiter.get("b")
	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup()

	if n := limiter.size(); n != 0 {
		t.Fatalf("entries = %d, want 0", n)
	}
}
