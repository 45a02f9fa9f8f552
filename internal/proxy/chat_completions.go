package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/observability/middleware"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
)

// ConversationIDHeader lets clients name the conversation a request belongs to.
// Signatures cached for a conversation are re-injected into its later turns.
const ConversationIDHeader = "X-Conversation-ID"

// CreateChatCompletionsHandler handles OpenAI-compatible chat completion requests.
type CreateChatCompletionsHandler struct {
	Adapter     openaiadapter.CreateChatCompletionAdapter
	Credentials credential.Source
	Transport   http.RoundTripper
	Validate    *validator.Validate
}

// Compile-time check to ensure CreateChatCompletionsHandler implements http.Handler
var _ http.Handler = (*CreateChatCompletionsHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateChatCompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openaiadapter.CreateChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONOpenAIError(ctx, w, openaiadapter.NewErrorResponse(
				openaiadapter.ErrorTypeInvalidRequest, "", http.StatusText(http.StatusRequestEntityTooLarge),
			))
			return
		}
		slog.WarnContext(ctx, "failed to decode request", "error", err)
		writeJSONOpenAIError(ctx, w, openaiadapter.NewErrorResponse(
			openaiadapter.ErrorTypeInvalidRequest, "", "invalid request body: "+err.Error(),
		))
		return
	}

	if h.Validate != nil {
		if err := h.Validate.StructCtx(ctx, &req); err != nil {
			slog.DebugContext(ctx, "request validation failed", "error", err)
			writeJSONOpenAIError(ctx, w, validationError(err))
			return
		}
	}

	if id := r.Header.Get(ConversationIDHeader); id != "" {
		ctx = openaiadapter.WithConversationID(ctx, id)
		middleware.SetLogAttrs(ctx, slog.String("conversation_id", id))
	}
	middleware.SetLogAttrs(ctx, slog.String("model", req.Model))

	cred, err := h.Credentials.Credential(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.ErrorContext(ctx, "credential unavailable", "error", err)
		writeJSONOpenAIError(ctx, w, openaiadapter.NewErrorResponse(
			openaiadapter.ErrorTypeAuthentication, "", "upstream credential unavailable",
		))
		return
	}

	if req.Stream != nil && *req.Stream {
		h.streamResponse(ctx, w, req, cred)
	} else {
		h.writeResponse(ctx, w, req, cred)
	}
}

// validationError converts validator errors into an invalid_request_error naming the first
// offending field.
func validationError(err error) *openaiadapter.ErrorResponse {
	resp := openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeInvalidRequest, "", err.Error())

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0]
		param := field.Namespace()
		resp.Err.Param = &param
		resp.Err.Message = "invalid value for " + param + ": failed on '" + field.Tag() + "'"
	}
	return resp
}

// asOpenAIError returns err as an OpenAI error, or a generic api_error carrying fallback.
func asOpenAIError(err error, fallback string) *openaiadapter.ErrorResponse {
	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAPI, "", fallback)
}

// writeResponse serves a buffered completion as a single JSON body.
func (h *CreateChatCompletionsHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req openaiadapter.CreateChatCompletionRequest,
	cred credential.Bound,
) {
	if ctx.Err() != nil {
		return
	}

	response, err := h.Adapter.ProcessRequest(ctx, req, cred, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "completion failed", "error", err)
		writeJSONOpenAIError(ctx, w, asOpenAIError(err, http.StatusText(http.StatusInternalServerError)))
		return
	}
	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse relays completion chunks as server-sent events. Errors raised before the
// first chunk are plain JSON responses; later ones become an "error" event that ends the
// stream without the [DONE] marker.
func (h *CreateChatCompletionsHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req openaiadapter.CreateChatCompletionRequest,
	cred credential.Bound,
) {
	if ctx.Err() != nil {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "response writer cannot stream", "error", err)
		writeJSONOpenAIError(ctx, w, asOpenAIError(err, http.StatusText(http.StatusInternalServerError)))
		return
	}

	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, cred, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "streaming completion failed", "error", err)
		writeJSONOpenAIError(ctx, w, asOpenAIError(err, http.StatusText(http.StatusInternalServerError)))
		return
	}

	var chunks int
	for chunk, err := range stream {
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client went away mid-stream", "chunks", chunks)
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream aborted", "error", err, "chunks", chunks)
			writeStreamError(ctx, sse, asOpenAIError(err, err.Error()))
			return
		}

		if err := sse.WriteData(chunk); err != nil {
			slog.ErrorContext(ctx, "failed to write chunk", "error", err)
			return
		}
		chunks++
	}

	if err := sse.WriteRaw("[DONE]"); err != nil {
		slog.ErrorContext(ctx, "failed to write stream termination marker", "error", err)
	}
}

// writeStreamError emits {"error": {...}} under the "error" event name, which OpenAI SDKs
// treat as terminal.
// https://github.com/openai/openai-go/blob/ae042a437e4ebef4dffe088bf01d087ac94feaf2/packages/ssestream/ssestream.go#L169-L173
func writeStreamError(ctx context.Context, sse *SSEWriter, errResp *openaiadapter.ErrorResponse) {
	if err := sse.WriteEvent("error"); err != nil {
		slog.ErrorContext(ctx, "failed to write error event type", "error", err)
		return
	}
	if err := sse.WriteData(errResp); err != nil {
		slog.ErrorContext(ctx, "failed to write error", "error", err)
	}
}
