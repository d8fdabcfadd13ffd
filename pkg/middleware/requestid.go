package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"mboxsearch/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns a request id (reusing one supplied by the client in
// X-Request-Id, generating one otherwise), stores it under the logger
// package's request-id context key, and echoes it back on the response.
// Downstream loggers (logger.FromContext), the search trace span, and
// search.executed event envelopes (logger.RequestIDFromContext) read it;
// it is not a metrics label.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
