package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit throttles requests through a single shared token bucket
// allowing perSecond requests per second with a burst of perSecond.
// SPEC_FULL.md §5 applies this only to the /index endpoint, guarding
// ingest throughput separately from the read path.
func RateLimit(perSecond int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), perSecond)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":{"message":"rate limit exceeded","code":-1}}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
