package httpapi

import (
	"net/http"
	"time"

	"mboxsearch/pkg/health"
	"mboxsearch/pkg/metrics"
	"mboxsearch/pkg/middleware"
)

// Router wires h's endpoints into a mux and applies the ambient
// middleware chain (SPEC_FULL.md §4.12): request-ID → metrics → timeout
// → rate-limit (index only) → handler. Prometheus scraping is served from
// a separate port by pkg/metrics.StartServer, not this mux, matching the
// teacher's separate metrics-endpoint convention.
//
// Route table:
//
//	GET        /ping     → liveness
//	POST|PUT   /compact  → full-range compaction
//	POST|PUT   /index    → document ingest (rate-limited)
//	POST|PUT   /search   → query execution
//	GET        /ready    → readiness fan-out
func Router(h *Handler, m *metrics.Metrics, checker *health.Checker, requestTimeout time.Duration, indexRateLimitPerSec int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", h.Ping)
	mux.HandleFunc("POST /compact", h.Compact)
	mux.HandleFunc("PUT /compact", h.Compact)
	mux.HandleFunc("POST /search", h.Search)
	mux.HandleFunc("PUT /search", h.Search)
	mux.HandleFunc("GET /ready", checker.ReadyHandler())

	var indexChain http.Handler = http.HandlerFunc(h.Index)
	if indexRateLimitPerSec > 0 {
		indexChain = middleware.RateLimit(indexRateLimitPerSec)(indexChain)
	}
	mux.Handle("POST /index", indexChain)
	mux.Handle("PUT /index", indexChain)

	var chain http.Handler = mux
	chain = middleware.Timeout(requestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)
	return chain
}
