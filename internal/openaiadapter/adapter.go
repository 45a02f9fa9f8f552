package openaiadapter

import (
	"context"
	"iter"
	"net/http"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
)

// Adapter translates one client-facing operation into upstream calls.
//
// TRequest and TResponse are the client shapes of a single call, TChunk is the unit of its
// streaming variant. Adapters receive the credential already bound by the caller and never
// fetch tokens themselves; the transport is shared and owned by the caller too.
type Adapter[TRequest, TResponse, TChunk any] interface {
	// ProcessRequest transforms the client request, calls the provider API with the bound
	// credential, and returns the transformed response.
	ProcessRequest(ctx context.Context, clientReq TRequest, cred credential.Bound, transport http.RoundTripper) (*TResponse, error)

	// ProcessStreamingRequest transforms the client request, calls the provider streaming API,
	// and returns an iterator of transformed chunks. Breaking out of the iterator closes the
	// upstream stream.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, cred credential.Bound, transport http.RoundTripper) (iter.Seq2[*TChunk, error], error)
}

// Chat completions is the only operation served. Its streaming unit is the
// chat.completion.chunk object.
type (
	CreateChatCompletionRequest  = types.CreateChatCompletionRequest
	CreateChatCompletionResponse = types.CreateChatCompletionResponse
	CreateChatCompletionChunk    = types.CreateChatCompletionStreamResponse

	CreateChatCompletionAdapter = Adapter[
		CreateChatCompletionRequest,
		CreateChatCompletionResponse,
		CreateChatCompletionChunk,
	]
)

// OpenAI error envelope. ErrorResponse implements error so adapters can return it directly.
type (
	Error         = types.Error
	ErrorResponse = types.ErrorResponse
)
