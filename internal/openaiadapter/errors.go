package openaiadapter

// OpenAI error types used in ErrorResponse.Err.Type.
const (
	ErrorTypeInvalidRequest    = "invalid_request_error"
	ErrorTypeAuthentication    = "authentication_error"
	ErrorTypePermissionDenied  = "permission_denied"
	ErrorTypeRateLimit         = "rate_limit_error"
	ErrorTypeInsufficientQuota = "insufficient_quota"
	ErrorTypeServer            = "server_error"
	ErrorTypeAPI               = "api_error"
)

// ErrorCodeUpstreamUnavailable marks errors caused by the transport to the upstream
// (DNS, connect, timeout). Callers may retry these by policy.
const ErrorCodeUpstreamUnavailable = "upstream_unavailable"

// NewErrorResponse builds an OpenAI-formatted error. An empty code is omitted.
func NewErrorResponse(errType, code, message string) *ErrorResponse {
	resp := &ErrorResponse{
		Err: Error{
			Message: message,
			Type:    errType,
		},
	}
	if code != "" {
		resp.Err.Code = &code
	}
	return resp
}

// ErrorCode returns the error code or an empty string.
func ErrorCode(resp *ErrorResponse) string {
	if resp == nil || resp.Err.Code == nil {
		return ""
	}
	return *resp.Err.Code
}
