package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter/antigravity"
	"github.com/florianilch/gravity-proxy/internal/proxy"
	"github.com/florianilch/gravity-proxy/internal/signature"
	"github.com/florianilch/gravity-proxy/internal/transport"
)

// App orchestrates the lifecycle of the proxy server and related services.
type App struct {
	cfg      *Config
	health   *Health
	proxy    *proxy.Proxy
	upstream *http.Transport
}

// New creates a new App instance wired from cfg.
func New(cfg *Config) (*App, error) {
	upstream, err := transport.New(transport.Options{
		DialTimeout:           cfg.Upstream.DialTimeout,
		KeepAlive:             cfg.Upstream.KeepAlive,
		TLSHandshakeTimeout:   cfg.Upstream.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.Upstream.ResponseHeaderTimeout,
		IdleConnTimeout:       cfg.Upstream.IdleConnTimeout,
		MaxIdleConns:          cfg.Upstream.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.Upstream.MaxIdleConnsPerHost,
		HealthCheckInterval:   cfg.Upstream.HealthCheckInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream transport: %w", err)
	}
	rt := transport.NewDecodingTransport(upstream)

	models, err := loadModelPolicy(cfg.Upstream.ModelsFile)
	if err != nil {
		return nil, err
	}

	registry := signature.NewRegistry(cfg.Signatures.Policy, cfg.Signatures.MaxConversations)
	adapter := antigravity.NewCreateChatCompletionAdapter(antigravity.Config{
		BaseURL:           cfg.Upstream.BaseURL,
		UserAgent:         cfg.Upstream.UserAgent,
		SystemInstruction: cfg.SystemInstruction,
		Generation:        cfg.Generation,
		Models:            models,
	}, registry)

	health := NewHealth()
	proxyServer, err := proxy.New(
		newCredentialSource(cfg.Credential, rt),
		health,
		adapter,
		registry,
		proxy.WithTransport(rt),
		proxy.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
		proxy.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:      cfg,
		health:   health,
		proxy:    proxyServer,
		upstream: upstream,
	}, nil
}

// newCredentialSource builds the credential source. With a refresh token, access tokens are
// refreshed through the upstream transport before they expire; otherwise the configured
// access token is used as is.
func newCredentialSource(cfg CredentialConfig, rt http.RoundTripper) *credential.TokenSource {
	var tokens oauth2.TokenSource
	if cfg.RefreshToken != "" {
		conf := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		// The context is kept for every refresh and must outlive requests.
		ctx := credential.WithTransport(context.Background(), rt)
		tokens = conf.TokenSource(ctx, &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
		})
	} else {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	}

	return credential.NewTokenSource(cfg.ProjectID, cfg.SessionID, tokens)
}

func loadModelPolicy(path string) (*antigravity.ModelPolicy, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	table, err := antigravity.ParseModelTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse models file %s: %w", path, err)
	}
	return antigravity.NewModelPolicy(table), nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
		a.upstream.CloseIdleConnections()
		return nil
	})

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting proxy server", "addr", a.cfg.Server.Addr, "upstream", a.cfg.Upstream.BaseURL)
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	a.health.Enter(PhaseServing)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()
	a.health.Enter(PhaseDraining)

	slog.InfoContext(gCtx, "shutting down services", "phase", a.health.Phase())

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}

// Handler exposes the proxy handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.proxy.Handler()
}
