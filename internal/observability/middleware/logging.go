package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v3"
)

// Logging logs HTTP requests with method, path, status, and duration.
// Successful health probes are not logged; request and response bodies never are.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		// Only non-sensitive headers; Authorization must never reach the logs
		LogRequestHeaders:  []string{"Content-Type", "Origin", "X-Conversation-ID"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,

		Skip: skipHealthProbes,

		RecoverPanics: false, // use dedicated middleware, panics are logged regardless
	})
}

func skipHealthProbes(r *http.Request, status int) bool {
	return strings.HasPrefix(r.URL.Path, "/health/") && status < http.StatusBadRequest
}

// SetLogAttrs sets attributes on the request log.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
