package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONOpenAIError writes an OpenAI-compatible error response with the appropriate HTTP status code.
func writeJSONOpenAIError(ctx context.Context, w http.ResponseWriter, errResp *openaiadapter.ErrorResponse) {
	writeJSON(ctx, w, errResp, errorStatus(errResp))
}

// errorStatus maps OpenAI error types to HTTP status codes according to OpenAI API conventions.
// Transport failures towards the upstream are reported as 502.
func errorStatus(errResp *openaiadapter.ErrorResponse) int {
	if openaiadapter.ErrorCode(errResp) == openaiadapter.ErrorCodeUpstreamUnavailable {
		return http.StatusBadGateway
	}

	switch errResp.Err.Type {
	case openaiadapter.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case openaiadapter.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case openaiadapter.ErrorTypePermissionDenied:
		return http.StatusForbidden
	case openaiadapter.ErrorTypeRateLimit, openaiadapter.ErrorTypeInsufficientQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
