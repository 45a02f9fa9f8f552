package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter/antigravity"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// replayTransport answers every upstream call with the same recorded body.
type replayTransport struct {
	body        string
	contentType string
}

func (t replayTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Header:     http.Header{"Content-Type": []string{t.contentType}},
		Request:    req,
	}, nil
}

// benchFixture is the first turn of a recorded conversation in the adapter's testdata.
type benchFixture struct {
	request  string
	upstream replayTransport
}

func loadBenchFixture(b *testing.B, mode, name string) benchFixture {
	b.Helper()

	data, err := os.ReadFile(filepath.Join("..", "openaiadapter", "antigravity", "testdata", mode, name))
	if err != nil {
		b.Fatalf("read fixture %s: %v", name, err)
	}

	var turns []struct {
		OpenAIRequest    json.RawMessage   `json:"openaiRequest"`
		UpstreamSSE      []json.RawMessage `json:"upstreamSSE"`
		UpstreamResponse json.RawMessage   `json:"upstreamResponse"`
	}
	if err := json.Unmarshal(data, &turns); err != nil {
		b.Fatalf("parse fixture %s: %v", name, err)
	}
	if len(turns) == 0 {
		b.Fatalf("fixture %s has no turns", name)
	}

	turn := turns[0]
	if turn.UpstreamSSE == nil {
		return benchFixture{
			request:  string(turn.OpenAIRequest),
			upstream: replayTransport{body: string(turn.UpstreamResponse), contentType: "application/json"},
		}
	}

	var sse strings.Builder
	for _, payload := range turn.UpstreamSSE {
		sse.WriteString("data: ")
		sse.Write(payload)
		sse.WriteString("\n\n")
	}
	return benchFixture{
		request:  string(turn.OpenAIRequest),
		upstream: replayTransport{body: sse.String(), contentType: "text/event-stream"},
	}
}

// benchServer serves the full middleware stack against a replayed upstream. Logs are
// discarded so I/O does not dominate the measurement.
func benchServer(b *testing.B, upstream http.RoundTripper) *httptest.Server {
	b.Helper()

	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	source := credential.NewTokenSource("bench-project", "", oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "bench-token"}))
	registry := signature.NewRegistry(signature.DefaultPolicy(), 0)
	adapter := antigravity.NewCreateChatCompletionAdapter(antigravity.Config{}, registry)

	p, err := New(source, readiness(true), adapter, registry,
		WithTransport(upstream),
		WithLogger(slog.Default()),
	)
	if err != nil {
		b.Fatalf("create proxy: %v", err)
	}

	srv := httptest.NewServer(p.Handler())
	b.Cleanup(srv.Close)
	return srv
}

// postChat sends one chat completion and drains the body.
func postChat(url, body, conversationID string) error {
	req, err := http.NewRequest(http.MethodPost, url+"/v1/chat/completions", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if conversationID != "" {
		req.Header.Set(ConversationIDHeader, conversationID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// BenchmarkProxy measures end-to-end latency through routing, middleware, transcoding,
// upstream decoding and response encoding. Network and token refresh are excluded.
func BenchmarkProxy(b *testing.B) {
	scenarios := []struct {
		mode    string
		fixture string
	}{
		{"streaming", "multi_turn_stream.json"},
		{"streaming", "tool_use_stream.json"},
		{"streaming", "mixed_content_stream.json"},
		{"buffered", "multi_turn.json"},
		{"buffered", "tool_use.json"},
		{"buffered", "mixed_content.json"},
	}

	for _, s := range scenarios {
		fx := loadBenchFixture(b, s.mode, s.fixture)

		b.Run(s.mode+"/"+strings.TrimSuffix(s.fixture, ".json"), func(b *testing.B) {
			srv := benchServer(b, fx.upstream)
			b.ReportAllocs()

			for b.Loop() {
				if err := postChat(srv.URL, fx.request, ""); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkProxy_SignatureReplay keeps one conversation id so every iteration looks up and
// retains the signatures cached by the previous one.
func BenchmarkProxy_SignatureReplay(b *testing.B) {
	fx := loadBenchFixture(b, "buffered", "tool_use.json")
	srv := benchServer(b, fx.upstream)
	b.ReportAllocs()

	for b.Loop() {
		if err := postChat(srv.URL, fx.request, "bench-conversation"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkProxyStreaming_TTFB reports the mean time until the first SSE byte arrives.
func BenchmarkProxyStreaming_TTFB(b *testing.B) {
	fx := loadBenchFixture(b, "streaming", "system_stream.json")
	srv := benchServer(b, fx.upstream)
	b.ReportAllocs()

	var total time.Duration
	var n int
	first := make([]byte, 1)

	for b.Loop() {
		start := time.Now()
		resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(fx.request))
		if err != nil {
			b.Fatal(err)
		}
		if _, err := resp.Body.Read(first); err != nil {
			b.Fatalf("read first byte: %v", err)
		}
		total += time.Since(start)
		n++

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}

	b.ReportMetric(float64((total / time.Duration(n)).Microseconds()), "µs/ttfb")
}

// BenchmarkProxyParallel measures throughput under concurrent clients, each on its own
// conversation.
func BenchmarkProxyParallel(b *testing.B) {
	for _, mode := range []string{"streaming", "buffered"} {
		name := "system.json"
		if mode == "streaming" {
			name = "system_stream.json"
		}
		fx := loadBenchFixture(b, mode, name)

		b.Run(mode, func(b *testing.B) {
			srv := benchServer(b, fx.upstream)
			b.ReportAllocs()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if err := postChat(srv.URL, fx.request, ""); err != nil {
						b.Error(err)
						return
					}
				}
			})
		})
	}
}
