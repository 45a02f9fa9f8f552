package transport

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Options tunes the pooled transport.
type Options struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int

	// HealthCheckInterval pings idle HTTP/2 connections to detect dead peers. 0 disables pings.
	HealthCheckInterval time.Duration

	// Resolver overrides DNS resolution. Nil uses net.DefaultResolver.
	Resolver Resolver
}

// DefaultOptions returns settings sized for a single busy upstream host.
func DefaultOptions() Options {
	return Options{
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 5 * time.Minute,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		HealthCheckInterval:   30 * time.Second,
	}
}

// New builds a pooled keep-alive transport dialing through Dialer, with HTTP/2 enabled.
func New(opts Options) (*http.Transport, error) {
	dialer := NewDialer(opts.Resolver, opts.DialTimeout, opts.KeepAlive)

	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		IdleConnTimeout:       opts.IdleConnTimeout,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		ExpectContinueTimeout: 1 * time.Second,
	}

	h2, err := http2.ConfigureTransports(t)
	if err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	if opts.HealthCheckInterval > 0 {
		h2.ReadIdleTimeout = opts.HealthCheckInterval
		h2.PingTimeout = opts.HealthCheckInterval / 2
	}

	return t, nil
}
