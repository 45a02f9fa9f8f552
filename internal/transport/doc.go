// Package transport provides the outbound HTTP stack used for upstream traffic.
//
// The stack is layered as round trippers:
//
//	decoding (Accept-Encoding, gzip/br bodies, *Error wrapping)
//	  └── *http.Transport (pooled keep-alive, HTTP/2 via x/net/http2)
//	        └── Dialer (IPv4 lookup first, IPv6 fallback)
//
// Connections are pooled per upstream host and reused across requests, so a steady stream of
// requests pays the TCP and TLS setup cost once per pooled connection.
//
// Failures below HTTP (DNS on both address families, refused connections, timeouts) surface as
// *Error so callers can tell them apart from upstream API errors and retry by their own policy.
package transport
