package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/gravity-proxy/internal/observability/middleware"
)

// contextHandler enriches log records with correlation attributes carried by the context:
// the OpenTelemetry trace_id and span_id, and the request_id assigned by the request id
// middleware. Adapter logs emitted deep inside a request can then be joined with the
// request log.
type contextHandler struct {
	handler slog.Handler
}

func newContextHandler(handler slog.Handler) *contextHandler {
	return &contextHandler{handler: handler}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if id, ok := ctx.Value(middleware.RequestIDContextKey{}).(string); ok && id != "" {
		record.AddAttrs(slog.String("request_id", id))
	}

	return h.handler.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}
