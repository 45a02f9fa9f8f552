package antigravity

import (
	"context"
	"log/slog"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
)

// Function calling modes understood by the upstream.
const (
	callingModeValidated = "VALIDATED"
	callingModeNone      = "NONE"
	callingModeAny       = "ANY"
)

// Tool is a group of function declarations.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration declares a function with a normalized parameter schema.
type FunctionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

// ToolConfig constrains function calling.
type ToolConfig struct {
	FunctionCallingConfig FunctionCallingConfig `json:"functionCallingConfig"`
}

// FunctionCallingConfig selects the calling mode and optionally restricts callable functions.
type FunctionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

// buildTools converts OpenAI function tools to one upstream tool per function.
// Tools of any other type are skipped.
func buildTools(ctx context.Context, tools []types.ChatCompletionTool) []Tool {
	if len(tools) == 0 {
		return nil
	}

	out := make([]Tool, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" {
			slog.DebugContext(ctx, "skipping unsupported tool type", "tool_index", i, "type", tool.Type)
			continue
		}

		decl := FunctionDeclaration{
			Name:       tool.Function.Name,
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		}
		if tool.Function.Description != nil {
			decl.Description = *tool.Function.Description
		}
		if tool.Function.Parameters != nil {
			decl.Parameters = NormalizeSchema(tool.Function.Parameters)
		}
		out = append(out, Tool{FunctionDeclarations: []FunctionDeclaration{decl}})
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// buildToolConfig maps tool_choice to the upstream function calling config.
// auto and absent choices keep the upstream's VALIDATED mode.
func buildToolConfig(choice *types.ChatCompletionToolChoiceOption) ToolConfig {
	cfg := FunctionCallingConfig{Mode: callingModeValidated}

	switch {
	case choice == nil:
	case choice.Function != nil:
		cfg.Mode = callingModeAny
		cfg.AllowedFunctionNames = []string{choice.Function.Name}
	case choice.Mode == types.ToolChoiceNone:
		cfg.Mode = callingModeNone
	case choice.Mode == types.ToolChoiceRequired:
		cfg.Mode = callingModeAny
	}

	return ToolConfig{FunctionCallingConfig: cfg}
}
