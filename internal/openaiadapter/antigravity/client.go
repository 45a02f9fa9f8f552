package antigravity

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/florianilch/gravity-proxy/internal/credential"
)

// DefaultBaseURL is the production Cloud Code endpoint.
const DefaultBaseURL = "https://cloudcode-pa.googleapis.com"

const (
	generatePath       = "/v1internal:generateContent"
	streamGeneratePath = "/v1internal:streamGenerateContent?alt=sse"

	maxErrorBodySize = 1 << 20
	maxSSELineSize   = 16 << 20 // inline images arrive as a single data line
)

// client sends envelopes to the upstream. The transport chain handles connection pooling
// and content decoding; authentication comes from the bound credential.
type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func newClient(baseURL, userAgent string, transport http.RoundTripper) (*client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	return &client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Transport: transport,
			// Client.Timeout = 0 allows long-running SSE streams (bounded by server WriteTimeout)
		},
	}, nil
}

// generate performs a buffered generation and returns the raw response body.
func (c *client) generate(ctx context.Context, env *Envelope, cred credential.Bound) ([]byte, error) {
	resp, err := c.post(ctx, generatePath, env, cred, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	return body, nil
}

// stream starts a streaming generation. The caller must close the returned body.
func (c *client) stream(ctx context.Context, env *Envelope, cred credential.Bound) (io.ReadCloser, error) {
	resp, err := c.post(ctx, streamGeneratePath, env, cred, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *client) post(ctx context.Context, path string, env *Envelope, cred credential.Bound, accept string) (*http.Response, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+cred.RawToken)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}
	return resp, nil
}

// sseData yields the data payload of every event in an SSE stream. Multi-line data is joined
// with newlines; comments, event names and ids are ignored.
func sseData(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)

		var data []byte
		hasData := false
		flush := func() bool {
			if !hasData {
				return true
			}
			payload := data
			data, hasData = nil, false
			if bytes.Equal(payload, []byte("[DONE]")) {
				return true
			}
			return yield(payload, nil)
		}

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				if !flush() {
					return
				}
				continue
			}

			value, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				continue
			}
			value = bytes.TrimPrefix(value, []byte(" "))
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, value...)
			hasData = true
		}

		if err := scanner.Err(); err != nil {
			yield(nil, err)
			return
		}
		flush()
	}
}
