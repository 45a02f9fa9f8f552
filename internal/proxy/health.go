package proxy

import (
	"fmt"
	"net/http"
)

type probeStatus struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
}

// livenessHandler reports that the process is up. It never consults the upstream.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, probeStatus{Status: "alive"}, http.StatusOK)
	}
}

// readinessHandler answers 200 while checker is ready and 503 otherwise. Checkers that
// implement fmt.Stringer also report their lifecycle phase.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")

		body := probeStatus{Status: "ready"}
		if s, ok := checker.(fmt.Stringer); ok {
			body.Phase = s.String()
		}
		if !checker.IsReady() {
			body.Status = "unavailable"
			writeJSON(r.Context(), w, body, http.StatusServiceUnavailable)
			return
		}
		writeJSON(r.Context(), w, body, http.StatusOK)
	}
}
