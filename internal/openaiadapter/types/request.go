package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message roles accepted in CreateChatCompletionRequest.Messages.
const (
	RoleSystem    = "system"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Content part types.
const (
	ContentPartText     = "text"
	ContentPartImageURL = "image_url"
)

// CreateChatCompletionRequest is the body of POST /v1/chat/completions.
type CreateChatCompletionRequest struct {
	Model               string                          `json:"model" validate:"required"`
	Messages            []ChatCompletionRequestMessage  `json:"messages" validate:"required,min=1,dive"`
	Stream              *bool                           `json:"stream,omitempty"`
	StreamOptions       *ChatCompletionStreamOptions    `json:"stream_options,omitempty"`
	Temperature         *float64                        `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP                *float64                        `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK                *int                            `json:"top_k,omitempty" validate:"omitempty,gte=0"`
	MaxTokens           *int                            `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	MaxCompletionTokens *int                            `json:"max_completion_tokens,omitempty" validate:"omitempty,gt=0"`
	ReasoningEffort     *string                         `json:"reasoning_effort,omitempty"`
	ThinkingBudget      *int                            `json:"thinking_budget,omitempty" validate:"omitempty,gte=0"`
	Tools               []ChatCompletionTool            `json:"tools,omitempty" validate:"omitempty,dive"`
	ToolChoice          *ChatCompletionToolChoiceOption `json:"tool_choice,omitempty"`
	User                *string                         `json:"user,omitempty"`
	ExtraBody           map[string]any                  `json:"extra_body,omitempty"`
}

// ChatCompletionStreamOptions controls streaming behaviour.
type ChatCompletionStreamOptions struct {
	IncludeUsage *bool `json:"include_usage,omitempty"`
}

// ChatCompletionRequestMessage is one entry of the flat OpenAI message history.
// Images carries generated images an assistant message is replayed with, in the shape they
// were returned in.
type ChatCompletionRequestMessage struct {
	Role               string                          `json:"role" validate:"required,oneof=system developer user assistant tool"`
	Content            MessageContent                  `json:"content"`
	Name               *string                         `json:"name,omitempty"`
	ToolCalls          []ChatCompletionMessageToolCall `json:"tool_calls,omitempty"`
	ToolCallID         string                          `json:"tool_call_id,omitempty"`
	ReasoningContent   *string                         `json:"reasoning_content,omitempty"`
	ReasoningSignature *string                         `json:"reasoning_signature,omitempty"`
	Images             []ContentPart                   `json:"images,omitempty"`
}

// MessageContent holds either a plain string or a list of content parts.
// A zero MessageContent represents an absent or null content field.
type MessageContent struct {
	Text  *string
	Parts []ContentPart
}

// NewTextContent returns plain-string content.
func NewTextContent(s string) MessageContent {
	return MessageContent{Text: &s}
}

// NewPartsContent returns multimodal content.
func NewPartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

// IsString reports whether the content was sent as a plain string.
func (c MessageContent) IsString() bool {
	return c.Text != nil
}

// UnmarshalJSON accepts a string, an array of parts or null.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = MessageContent{}

	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string content: %w", err)
		}
		c.Text = &s
		return nil
	case data[0] == '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("decode content parts: %w", err)
		}
		c.Parts = parts
		return nil
	default:
		return fmt.Errorf("unsupported content format: %s", string(data[:1]))
	}
}

// MarshalJSON writes the content in the shape it was received.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	switch {
	case c.Text != nil:
		return json.Marshal(*c.Text)
	case c.Parts != nil:
		return json.Marshal(c.Parts)
	default:
		return []byte("null"), nil
	}
}

// ContentPart is a single multimodal content item. Unknown part types are kept with
// only their Type populated so that callers can skip them.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL is the payload of an image_url content part.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ChatCompletionMessageToolCall is a tool call on an assistant message (or in a response).
type ChatCompletionMessageToolCall struct {
	ID               string                     `json:"id"`
	Type             string                     `json:"type"`
	Function         ChatCompletionFunctionCall `json:"function"`
	ThoughtSignature *string                    `json:"thought_signature,omitempty"`
}

// ChatCompletionFunctionCall names the invoked function and carries its raw JSON arguments.
type ChatCompletionFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatCompletionTool declares a tool the model may call.
type ChatCompletionTool struct {
	Type     string             `json:"type" validate:"required"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function and its JSON-Schema parameters.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description *string        `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      *bool          `json:"strict,omitempty"`
}

// Tool choice modes.
const (
	ToolChoiceNone     = "none"
	ToolChoiceAuto     = "auto"
	ToolChoiceRequired = "required"
)

// ChatCompletionToolChoiceOption is either a mode string ("none", "auto", "required") or a
// named function choice {"type":"function","function":{"name":...}}.
type ChatCompletionToolChoiceOption struct {
	Mode     string
	Function *NamedFunction
}

// NamedFunction identifies a function in a named tool choice.
type NamedFunction struct {
	Name string `json:"name"`
}

type namedToolChoice struct {
	Type     string        `json:"type"`
	Function NamedFunction `json:"function"`
}

// UnmarshalJSON accepts the string and object forms of tool_choice.
func (o *ChatCompletionToolChoiceOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*o = ChatCompletionToolChoiceOption{}

	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Mode)
	}

	var named namedToolChoice
	if err := json.Unmarshal(data, &named); err != nil {
		return fmt.Errorf("decode tool_choice: %w", err)
	}
	if named.Type == "function" && named.Function.Name != "" {
		o.Function = &named.Function
	}
	return nil
}

// MarshalJSON writes the tool choice in its original form.
func (o ChatCompletionToolChoiceOption) MarshalJSON() ([]byte, error) {
	if o.Function != nil {
		return json.Marshal(namedToolChoice{Type: "function", Function: *o.Function})
	}
	return json.Marshal(o.Mode)
}
