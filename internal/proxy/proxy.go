package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/observability/middleware"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// DefaultMaxRequestBytes bounds request bodies. Histories with inline images are large.
const DefaultMaxRequestBytes = 32 << 20

// ReadinessChecker reports whether the application can serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy serves the OpenAI-compatible API on top of a chat completion adapter.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

type options struct {
	transport       http.RoundTripper
	logger          *slog.Logger
	maxRequestBytes int64
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
}

// Option configures a Proxy.
type Option func(*options)

// WithTransport sets the round tripper used for upstream calls.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxRequestBytes sets the request body limit. Values <= 0 keep the default.
func WithMaxRequestBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRequestBytes = n
		}
	}
}

// WithTimeouts sets the server read, write and idle timeouts. Zero keeps the default.
// The write timeout bounds streamed responses.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(o *options) {
		if read > 0 {
			o.readTimeout = read
		}
		if write > 0 {
			o.writeTimeout = write
		}
		if idle > 0 {
			o.idleTimeout = idle
		}
	}
}

// New creates a proxy. The registry may be nil, in which case conversations cannot be discarded.
func New(
	source credential.Source,
	health ReadinessChecker,
	adapter openaiadapter.CreateChatCompletionAdapter,
	registry *signature.Registry,
	opts ...Option,
) (*Proxy, error) {
	if source == nil {
		return nil, errors.New("credential source cannot be nil")
	}
	if health == nil {
		return nil, errors.New("readiness checker cannot be nil")
	}
	if adapter == nil {
		return nil, errors.New("adapter cannot be nil")
	}

	o := options{
		transport:       http.DefaultTransport,
		logger:          slog.Default(),
		maxRequestBytes: DefaultMaxRequestBytes,
		readTimeout:     30 * time.Second,
		writeTimeout:    10 * time.Minute,
		idleTimeout:     2 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	chat := &CreateChatCompletionsHandler{
		Adapter:     adapter,
		Credentials: source,
		Transport:   o.transport,
		Validate:    validator.New(validator.WithRequiredStructEnabled()),
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/chat/completions", chat)
	mux.Handle("GET /v1/models", modelsHandler())
	mux.Handle("DELETE /v1/conversations/{id}", discardConversationHandler(registry))
	mux.Handle("GET /health/liveness", livenessHandler())
	mux.Handle("GET /health/readiness", readinessHandler(health))

	handler := applyMiddlewares(mux,
		Recovery,
		middleware.RequestIDGeneration,
		middleware.TraceContextExtraction,
		middleware.Logging(o.logger),
		middleware.RequestIDPropagation,
		RequestSizeLimit(o.maxRequestBytes),
	)

	return &Proxy{
		handler: handler,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       o.readTimeout,
			WriteTimeout:      o.writeTimeout,
			IdleTimeout:       o.idleTimeout,
		},
	}, nil
}

// Handler returns the proxy's HTTP handler with all middlewares applied.
func (p *Proxy) Handler() http.Handler {
	return p.handler
}

// Start listens on addr and serves in the background. Listen errors are returned directly;
// errors while serving are delivered on the returned channel, which is closed when serving stops.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server.BaseContext = func(net.Listener) context.Context {
		// Detach from cancellation so in-flight requests drain during Shutdown.
		return context.WithoutCancel(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String())
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests until ctx expires.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}
