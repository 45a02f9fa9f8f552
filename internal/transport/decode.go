package transport

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptEncoding is advertised on every upstream request. Setting it explicitly turns off
// net/http's built-in gzip handling, so the decoding transport handles both encodings.
const acceptEncoding = "gzip, br"

type decodingTransport struct {
	base http.RoundTripper
}

// NewDecodingTransport wraps base so that gzip and brotli response bodies are decoded
// transparently and transport failures surface as *Error.
func NewDecodingTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &decodingTransport{base: base}
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, wrap("roundtrip", req.URL.Hostname(), err)
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "":
		return resp, nil
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()
			return nil, &Error{Op: "roundtrip", Host: req.URL.Hostname(), Err: fmt.Errorf("gzip response: %w", err)}
		}
		resp.Body = &decodedBody{Reader: zr, raw: resp.Body, closer: zr}
	default:
		// Unknown encodings are passed through untouched
		return resp, nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodedBody reads from the decoder and closes the raw body.
type decodedBody struct {
	io.Reader
	raw    io.Closer
	closer io.Closer
}

func (b *decodedBody) Close() error {
	if b.closer != nil {
		_ = b.closer.Close()
	}
	return b.raw.Close()
}
