package types

// Finish reasons shared by buffered and streaming responses.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// CreateChatCompletionResponse is a buffered chat completion.
type CreateChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   *CompletionUsage       `json:"usage,omitempty"`
}

// ChatCompletionChoice is one choice of a buffered completion.
type ChatCompletionChoice struct {
	Index        int                           `json:"index"`
	Message      ChatCompletionResponseMessage `json:"message"`
	FinishReason string                        `json:"finish_reason"`
}

// ChatCompletionResponseMessage is the assistant message of a buffered completion.
// Generated images are returned as image_url parts with data URLs in Images, the convention
// OpenAI-compatible gateways use. Clients replay them either in the assistant message's
// images field or as image_url content parts.
type ChatCompletionResponseMessage struct {
	Role               string                          `json:"role"`
	Content            *string                         `json:"content"`
	ReasoningContent   *string                         `json:"reasoning_content,omitempty"`
	ReasoningSignature *string                         `json:"reasoning_signature,omitempty"`
	ToolCalls          []ChatCompletionMessageToolCall `json:"tool_calls,omitempty"`
	Images             []ContentPart                   `json:"images,omitempty"`
}

// CreateChatCompletionStreamResponse is one SSE chunk of a streaming completion.
type CreateChatCompletionStreamResponse struct {
	ID      string                       `json:"id"`
	Object  string                       `json:"object"`
	Created int64                        `json:"created"`
	Model   string                       `json:"model"`
	Choices []ChatCompletionStreamChoice `json:"choices"`
	Usage   *CompletionUsage             `json:"usage,omitempty"`
}

// ChatCompletionStreamChoice is the single choice carried by a chunk.
type ChatCompletionStreamChoice struct {
	Index        int                               `json:"index"`
	Delta        ChatCompletionStreamResponseDelta `json:"delta"`
	FinishReason *string                           `json:"finish_reason"`
}

// ChatCompletionStreamResponseDelta is the incremental message content of a chunk.
type ChatCompletionStreamResponseDelta struct {
	Role               string                               `json:"role,omitempty"`
	Content            *string                              `json:"content,omitempty"`
	ReasoningContent   *string                              `json:"reasoning_content,omitempty"`
	ReasoningSignature *string                              `json:"reasoning_signature,omitempty"`
	ToolCalls          []ChatCompletionMessageToolCallChunk `json:"tool_calls,omitempty"`
	Images             []ContentPart                        `json:"images,omitempty"`
}

// ChatCompletionMessageToolCallChunk is a tool call delta. The upstream delivers complete
// calls, so every delta carries the full name and arguments.
type ChatCompletionMessageToolCallChunk struct {
	Index            int                        `json:"index"`
	ID               string                     `json:"id,omitempty"`
	Type             string                     `json:"type,omitempty"`
	Function         ChatCompletionFunctionCall `json:"function"`
	ThoughtSignature *string                    `json:"thought_signature,omitempty"`
}

// CompletionUsage reports token accounting.
type CompletionUsage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	PromptTokensDetails     *PromptTokensDetails     `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *CompletionTokensDetails `json:"completion_tokens_details,omitempty"`
}

// PromptTokensDetails breaks down prompt tokens.
type PromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// CompletionTokensDetails breaks down completion tokens.
type CompletionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Model is an entry of GET /v1/models.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Error is the OpenAI error object.
type Error struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Code    *string `json:"code"`
	Param   *string `json:"param"`
}

// ErrorResponse wraps Error as {"error": {...}}.
type ErrorResponse struct {
	Err Error `json:"error"`
}
