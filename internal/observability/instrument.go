package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ScopeName is the instrumentation scope of log records exported via OpenTelemetry.
const ScopeName = "github.com/florianilch/gravity-proxy"

// Options configures Instrument.
type Options struct {
	Level slog.Level

	// Format is text, json or otel.
	Format string

	// Exporter selects the OpenTelemetry log exporter for the otel format:
	// stdout, otlp-http or otlp-grpc. OTLP exporters read the standard
	// OTEL_EXPORTER_OTLP_* environment variables.
	Exporter string

	Version string
}

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger and the W3C trace context propagator.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	noop := func(context.Context) error { return nil }

	switch strings.ToLower(opts.Format) {
	case "otel":
		handler, shutdown, err := newOTelHandler(ctx, opts)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return shutdown, nil
	default:
		handler, err := newStdoutHandler(opts.Level, opts.Format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(newContextHandler(handler)))
		return noop, nil
	}
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text, otel)", logFormat)
	}

	return handler, nil
}

// newOTelHandler bridges slog into an OpenTelemetry logger provider. Records below the
// configured level are dropped by a minimum severity processor before export. Trace
// correlation is carried natively by the bridge.
func newOTelHandler(ctx context.Context, opts Options) (slog.Handler, ShutdownFunc, error) {
	exporter, err := newExporter(ctx, opts.Exporter)
	if err != nil {
		return nil, nil, err
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(opts.Level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	global.SetLoggerProvider(provider)

	handler := otelslog.NewHandler(ScopeName,
		otelslog.WithLoggerProvider(provider),
		otelslog.WithVersion(opts.Version),
	)
	return handler, provider.Shutdown, nil
}

func newExporter(ctx context.Context, name string) (sdklog.Exporter, error) {
	switch strings.ToLower(name) {
	case "", "stdout":
		return stdoutlog.New()
	case "otlp-http":
		return otlploghttp.New(ctx)
	case "otlp-grpc":
		return otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported log exporter %q (expected: stdout, otlp-http, otlp-grpc)", name)
	}
}

// severity maps a slog level to the OpenTelemetry minimum severity.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
