package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Resolver looks up host addresses for one address family ("ip4" or "ip6").
// *net.Resolver satisfies it.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// Dialer resolves hostnames IPv4 first and falls back to IPv6 only when the IPv4 lookup fails.
// If both fail, the IPv4 error is returned. Resolved addresses are dialed in order until one
// connects.
type Dialer struct {
	resolver Resolver
	dialer   *net.Dialer
}

// NewDialer creates a Dialer. A nil resolver selects net.DefaultResolver.
func NewDialer(resolver Resolver, timeout, keepAlive time.Duration) *Dialer {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Dialer{
		resolver: resolver,
		dialer: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: keepAlive,
		},
	}
}

// DialContext has the signature of http.Transport.DialContext.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, &Error{Op: "dial", Host: addr, Err: err}
	}

	// Literal addresses need no lookup
	if net.ParseIP(host) != nil {
		conn, err := d.dialer.DialContext(ctx, network, addr)
		return conn, wrap("dial", host, err)
	}

	ips, err := d.lookup(ctx, host)
	if err != nil {
		return nil, wrap("lookup", host, err)
	}

	var dialErr error
	for _, ip := range ips {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		dialErr = errors.Join(dialErr, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, wrap("dial", host, dialErr)
}

func (d *Dialer) lookup(ctx context.Context, host string) ([]net.IP, error) {
	ips, v4Err := d.resolver.LookupIP(ctx, "ip4", host)
	if v4Err == nil && len(ips) > 0 {
		return ips, nil
	}
	if v4Err == nil {
		v4Err = fmt.Errorf("no IPv4 address for %s", host)
	}
	if ctx.Err() != nil {
		return nil, v4Err
	}

	ips, v6Err := d.resolver.LookupIP(ctx, "ip6", host)
	if v6Err == nil && len(ips) > 0 {
		slog.DebugContext(ctx, "ipv4 lookup failed, using ipv6", "host", host, "error", v4Err)
		return ips, nil
	}

	slog.DebugContext(ctx, "dns lookup failed on both families", "host", host, "ipv4_error", v4Err, "ipv6_error", v6Err)
	return nil, v4Err
}
