package metrics

import (
	"net/http/httptest"
	"testing"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	m := New()
	if m.HTTPRequestsTotal == nil || m.HTTPRequestDuration == nil || m.HTTPRequestsInFlight == nil {
		t.Fatalf("expected HTTP collectors to be initialized")
	}
	if m.DocsIndexedTotal == nil || m.SearchQueriesTotal == nil || m.CircuitBreakerState == nil {
		t.Fatalf("expected domain collectors to be initialized")
	}
}

func TestHandlerServesScrapeFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected the metrics handler to respond 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected the metrics handler to write a non-empty scrape body")
	}
}
