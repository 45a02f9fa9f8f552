package proxy

import (
	_ "embed"
	"log/slog"
	"net/http"
)

//go:embed models.json
var modelsJSON []byte

// modelsHandler returns a static list of client-facing model ids.
// The upstream has no OpenAI-style model listing, so the list mirrors the model policy
// aliases and the thinking variants clients can select.
func modelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(modelsJSON); err != nil {
			slog.ErrorContext(r.Context(), "failed to write response", "error", err)
		}
	}
}
