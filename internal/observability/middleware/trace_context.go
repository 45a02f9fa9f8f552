package middleware

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceContextExtraction joins the caller's W3C trace (Traceparent/Tracestate headers)
// without creating spans. The span context is stored in the request context for log
// correlation, added to the request log and echoed in the response headers.
func TraceContextExtraction(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			// SetLogAttrs is no-op if Logging middleware does not exist.
			SetLogAttrs(ctx,
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			)
			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
