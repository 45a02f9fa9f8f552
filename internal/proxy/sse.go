package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SSEWriter writes server-sent events and flushes after every event.
type SSEWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

// NewSSEWriter prepares w for streaming. It fails if w cannot be flushed.
// Headers are sent with the first event.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	if !canFlush(w) {
		return nil, errors.New("response writer does not support flushing")
	}
	return &SSEWriter{w: w, rc: http.NewResponseController(w)}, nil
}

// canFlush reports whether w or a writer it wraps implements http.Flusher.
func canFlush(w http.ResponseWriter) bool {
	for {
		switch t := w.(type) {
		case http.Flusher:
			return true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return false
		}
	}
}

func (s *SSEWriter) start() {
	if s.started {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

// WriteEvent writes an event name line. The following WriteData completes the event.
func (s *SSEWriter) WriteEvent(name string) error {
	s.start()
	_, err := fmt.Fprintf(s.w, "event: %s\n", name)
	return err
}

// WriteData writes v as a JSON data line and terminates the event.
func (s *SSEWriter) WriteData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	return s.WriteRaw(string(data))
}

// WriteRaw writes data verbatim as a data line and terminates the event.
func (s *SSEWriter) WriteRaw(data string) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}
