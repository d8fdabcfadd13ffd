package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mboxsearch/pkg/logger"
	"mboxsearch/pkg/metrics"
)

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = logger.RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Fatalf("expected a generated request id to reach the handler")
	}
	if rec.Header().Get("X-Request-Id") != captured {
		t.Fatalf("expected the response header to echo the generated request id")
	}
}

func TestRequestIDReusesClientSupplied(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = logger.RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "client-supplied")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != "client-supplied" {
		t.Fatalf("expected the client-supplied id to be reused, got %q", captured)
	}
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	handler := RateLimit(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/index", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected the first request within burst to succeed, got %d", rec.Code)
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	handler := RateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/index", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/index", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the second immediate request to be throttled, got %d", second.Code)
	}
}

func TestTimeoutPassesThroughFastHandler(t *testing.T) {
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected a fast handler to complete normally, got %d", rec.Code)
	}
}

func TestTimeoutReturnsGatewayTimeoutForSlowHandler(t *testing.T) {
	handler := Timeout(5 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected a gateway timeout for a slow handler, got %d", rec.Code)
	}
}

var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

func sharedMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() { testMetrics = metrics.New() })
	return testMetrics
}

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	m := sharedMetrics()
	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/index", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected the underlying handler's status to pass through, got %d", rec.Code)
	}
}
