package proxy

import (
	"log/slog"
	"net/http"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// discardConversationHandler drops the cached signatures of a conversation.
// Clients call it when a conversation ends or its history was rewritten.
func discardConversationHandler(registry *signature.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if registry == nil {
			writeJSONOpenAIError(ctx, w, openaiadapter.NewErrorResponse(
				openaiadapter.ErrorTypeInvalidRequest, "", "signature caching is disabled",
			))
			return
		}

		id := r.PathValue("id")
		if !registry.Discard(id) {
			writeJSON(ctx, w, openaiadapter.NewErrorResponse(
				openaiadapter.ErrorTypeInvalidRequest, "conversation_not_found", "conversation not found: "+id,
			), http.StatusNotFound)
			return
		}

		slog.DebugContext(ctx, "discarded conversation", "conversation_id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}
