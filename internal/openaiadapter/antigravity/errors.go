package antigravity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
	"github.com/florianilch/gravity-proxy/internal/transport"
)

// UpstreamError is a non-2xx response from the upstream.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	if msg := gjson.GetBytes(e.Body, "error.message").String(); msg != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

// toChatCompletionError converts any error into OpenAI-compatible error format.
// Upstream API errors carry a Google RPC status that is mapped to OpenAI error types;
// transport failures become server_error with the upstream_unavailable code.
func toChatCompletionError(err error) *openaiadapter.ErrorResponse {
	if err == nil {
		return nil
	}

	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}

	var apiErr *UpstreamError
	if errors.As(err, &apiErr) {
		message := gjson.GetBytes(apiErr.Body, "error.message").String()
		if message == "" {
			message = http.StatusText(apiErr.StatusCode)
		}
		status := gjson.GetBytes(apiErr.Body, "error.status").String()
		return openaiadapter.NewErrorResponse(mapUpstreamErrorType(status, apiErr.StatusCode), "", message)
	}

	if transport.IsError(err) || errors.Is(err, context.DeadlineExceeded) {
		return openaiadapter.NewErrorResponse(
			openaiadapter.ErrorTypeServer,
			openaiadapter.ErrorCodeUpstreamUnavailable,
			err.Error(),
		)
	}

	// Fallback: wrap everything else as generic server_error
	return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeServer, "", err.Error())
}

// mapUpstreamErrorType translates Google RPC status codes to OpenAI error types. The HTTP
// status decides when the body carries no RPC status.
func mapUpstreamErrorType(rpcStatus string, httpStatus int) string {
	switch rpcStatus {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "OUT_OF_RANGE", "NOT_FOUND":
		return openaiadapter.ErrorTypeInvalidRequest
	case "RESOURCE_EXHAUSTED":
		return openaiadapter.ErrorTypeRateLimit
	case "UNAUTHENTICATED":
		return openaiadapter.ErrorTypeAuthentication
	case "PERMISSION_DENIED":
		return openaiadapter.ErrorTypePermissionDenied
	case "UNAVAILABLE", "INTERNAL", "DEADLINE_EXCEEDED":
		return openaiadapter.ErrorTypeServer
	case "":
	default:
		return openaiadapter.ErrorTypeAPI
	}

	switch {
	case httpStatus == http.StatusBadRequest, httpStatus == http.StatusNotFound:
		return openaiadapter.ErrorTypeInvalidRequest
	case httpStatus == http.StatusUnauthorized:
		return openaiadapter.ErrorTypeAuthentication
	case httpStatus == http.StatusForbidden:
		return openaiadapter.ErrorTypePermissionDenied
	case httpStatus == http.StatusTooManyRequests:
		return openaiadapter.ErrorTypeRateLimit
	case httpStatus >= 500:
		return openaiadapter.ErrorTypeServer
	default:
		return openaiadapter.ErrorTypeAPI
	}
}
