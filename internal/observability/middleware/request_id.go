package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// maxRequestIDLength bounds client-supplied request ids.
const maxRequestIDLength = 128

// RequestIDContextKey is a context key for storing request IDs.
type RequestIDContextKey struct{}

// RequestIDFromContext returns the request id stored by RequestIDGeneration, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey{}).(string)
	return id
}

// getRequestID reads request ID from X-Request-ID header or context, generates if missing.
// Client ids that are too long or contain characters outside printable ASCII are replaced.
func getRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); validRequestID(id) {
		return id
	}
	if id := RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDGeneration stores the request id in the request context for downstream handlers.
func RequestIDGeneration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), RequestIDContextKey{}, getRequestID(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDPropagation sets the X-Request-ID response header for client correlation and adds
// the id to the request log.
func RequestIDPropagation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := RequestIDFromContext(r.Context()); requestID != "" {
			// Set early to ensure it's present during recovery scenarios
			w.Header().Set("X-Request-ID", requestID)
			SetLogAttrs(r.Context(), slog.String("request_id", requestID))
		}

		next.ServeHTTP(w, r)
	})
}
