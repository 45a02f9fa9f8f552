package antigravity

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
)

func TestModelPolicy_Resolve(t *testing.T) {
	policy := NewModelPolicy(DefaultModelTable())

	tests := []struct {
		client   string
		upstream string
		thinking bool
	}{
		{"claude-sonnet-4-5-thinking", "claude-sonnet-4-5", true},
		{"claude-opus-4-5", "claude-opus-4-5-thinking", true},
		{"gemini-2.5-flash-thinking", "gemini-2.5-flash", true},
		{"gemini-2.5-pro", "gemini-2.5-pro", true},
		{"rev19-uic3-1p", "rev19-uic3-1p", true},
		{"gpt-oss-120b-medium", "gpt-oss-120b-medium", true},
		{"gemini-3-pro-high", "gemini-3-pro-high", true},
		{"gemini-2.5-flash", "gemini-2.5-flash", false},
		{"claude-sonnet-4-5", "claude-sonnet-4-5", false},
		{"some-unknown-model", "some-unknown-model", false},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			upstream, thinking := policy.Resolve(tt.client)
			assert.Equal(t, tt.upstream, upstream)
			assert.Equal(t, tt.thinking, thinking)
		})
	}
}

func TestModelPolicy_SwappableTable(t *testing.T) {
	table, err := ParseModelTable([]byte(`
aliases:
  fast: gemini-2.5-flash
thinking:
  suffix: "-deep"
top_p_incompatible: [gemini]
`))
	require.NoError(t, err)
	policy := NewModelPolicy(table)

	upstream, thinking := policy.Resolve("fast")
	assert.Equal(t, "gemini-2.5-flash", upstream)
	assert.False(t, thinking)

	_, thinking = policy.Resolve("x-deep")
	assert.True(t, thinking)
	assert.True(t, policy.TopPIncompatible("gemini-2.5-flash"))
	assert.False(t, policy.TopPIncompatible("claude-sonnet-4-5"))
}

func TestParseModelTable_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseModelTable([]byte("aliasses: {}\n"))
	assert.Error(t, err)
}

func TestBuildGenerationConfig_Fallbacks(t *testing.T) {
	cfg := BuildGenerationConfig(&types.CreateChatCompletionRequest{}, GenerationDefaults{}, false, false)

	assert.Equal(t, 1.0, cfg.Temperature)
	require.NotNil(t, cfg.TopP)
	assert.Equal(t, 0.85, *cfg.TopP)
	assert.Equal(t, 50, cfg.TopK)
	assert.Equal(t, 8096, cfg.MaxOutputTokens)
	assert.Equal(t, 1, cfg.CandidateCount)
	assert.Equal(t, []string{"<|user|>", "<|bot|>", "<|context_request|>", "<|endoftext|>", "<|end_of_turn|>"}, cfg.StopSequences)
	assert.Equal(t, ThinkingConfig{}, cfg.ThinkingConfig)
}

func TestBuildGenerationConfig_Priority(t *testing.T) {
	defaults := GenerationDefaults{
		Temperature:     ptr(0.5),
		TopP:            ptr(0.9),
		TopK:            ptr(40),
		MaxOutputTokens: ptr(64000),
		ThinkingBudget:  ptr(2048),
	}

	t.Run("configured defaults", func(t *testing.T) {
		cfg := BuildGenerationConfig(&types.CreateChatCompletionRequest{}, defaults, true, false)
		assert.Equal(t, 0.5, cfg.Temperature)
		assert.Equal(t, 0.9, *cfg.TopP)
		assert.Equal(t, 40, cfg.TopK)
		assert.Equal(t, 64000, cfg.MaxOutputTokens)
		assert.Equal(t, ThinkingConfig{IncludeThoughts: true, ThinkingBudget: 2048}, cfg.ThinkingConfig)
	})

	t.Run("client values win", func(t *testing.T) {
		req := &types.CreateChatCompletionRequest{
			Temperature:         ptr(0.1),
			TopP:                ptr(0.2),
			TopK:                ptr(3),
			MaxTokens:           ptr(100),
			MaxCompletionTokens: ptr(30000),
			ThinkingBudget:      ptr(5000),
			ReasoningEffort:     ptr("high"),
		}
		cfg := BuildGenerationConfig(req, defaults, true, false)
		assert.Equal(t, 0.1, cfg.Temperature)
		assert.Equal(t, 0.2, *cfg.TopP)
		assert.Equal(t, 3, cfg.TopK)
		assert.Equal(t, 30000, cfg.MaxOutputTokens, "max_completion_tokens wins over max_tokens")
		assert.Equal(t, 5000, cfg.ThinkingConfig.ThinkingBudget)
	})

	t.Run("effort beats configured budget", func(t *testing.T) {
		for effort, want := range map[string]int{"low": 1024, "medium": 16000, "high": 32000} {
			cfg := BuildGenerationConfig(&types.CreateChatCompletionRequest{ReasoningEffort: ptr(effort)}, defaults, true, false)
			assert.Equal(t, want, cfg.ThinkingConfig.ThinkingBudget, effort)
		}
	})

	t.Run("extra_body budget", func(t *testing.T) {
		req := &types.CreateChatCompletionRequest{ExtraBody: map[string]any{"thinking_budget": float64(3000)}}
		cfg := BuildGenerationConfig(req, defaults, true, false)
		assert.Equal(t, 3000, cfg.ThinkingConfig.ThinkingBudget)
	})

	t.Run("budget clamped below max tokens", func(t *testing.T) {
		req := &types.CreateChatCompletionRequest{ReasoningEffort: ptr("high"), MaxTokens: ptr(4096)}
		cfg := BuildGenerationConfig(req, defaults, true, false)
		assert.Equal(t, 4095, cfg.ThinkingConfig.ThinkingBudget)
	})
}

func TestBuildGenerationConfig_BudgetZeroWithoutThinking(t *testing.T) {
	requests := []*types.CreateChatCompletionRequest{
		{ThinkingBudget: ptr(9000)},
		{ReasoningEffort: ptr("high")},
		{ExtraBody: map[string]any{"thinking_budget": float64(100)}},
		{ThinkingBudget: ptr(9000), ReasoningEffort: ptr("low")},
	}

	for _, req := range requests {
		cfg := BuildGenerationConfig(req, GenerationDefaults{ThinkingBudget: ptr(4000)}, false, true)
		assert.Equal(t, 0, cfg.ThinkingConfig.ThinkingBudget)
		assert.False(t, cfg.ThinkingConfig.IncludeThoughts)
		assert.NotNil(t, cfg.TopP, "topP is only dropped while thinking")
	}
}

func TestBuildGenerationConfig_ThinkingClaudeExample(t *testing.T) {
	policy := NewModelPolicy(DefaultModelTable())
	upstream, thinking := policy.Resolve("claude-sonnet-4-5-thinking")
	require.True(t, thinking)

	cfg := BuildGenerationConfig(&types.CreateChatCompletionRequest{TopP: ptr(0.5)}, GenerationDefaults{}, thinking, policy.TopPIncompatible(upstream))

	assert.Nil(t, cfg.TopP)
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "topP")
}

func TestNormalizeSchema(t *testing.T) {
	schema := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"path"},
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "minLength": float64(1), "maxLength": float64(10)},
			"tags": map[string]any{
				"type":        "array",
				"minItems":    float64(1),
				"maxItems":    float64(3),
				"uniqueItems": true,
				"items":       map[string]any{"type": "string", "maxLength": float64(5)},
			},
			"mode": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string", "minLength": float64(2)},
					map[string]any{"type": "object", "additionalProperties": true},
				},
			},
		},
	}

	want := map[string]any{
		"type":     "object",
		"required": []any{"path"},
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"mode": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "object"},
				},
			},
		},
	}

	once := NormalizeSchema(schema)
	assert.Equal(t, want, once)
	assert.Equal(t, once, NormalizeSchema(once), "normalization is idempotent")
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", schema["$schema"], "input is not mutated")

	// The normalized schema must still be a valid JSON schema.
	raw, err := json.Marshal(once)
	require.NoError(t, err)
	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("params.json", bytes.NewReader(raw)))
	_, err = compiler.Compile("params.json")
	require.NoError(t, err)
}

func TestNormalizeSchema_Leaves(t *testing.T) {
	assert.Equal(t, "x", NormalizeSchema("x"))
	assert.Equal(t, 1.5, NormalizeSchema(1.5))
	assert.Nil(t, NormalizeSchema(nil))
}

func TestBuildTools(t *testing.T) {
	tools := []types.ChatCompletionTool{
		{
			Type: "function",
			Function: types.FunctionDefinition{
				Name:        "read",
				Description: ptr("reads a file"),
				Parameters:  map[string]any{"type": "object", "additionalProperties": false},
			},
		},
		{Type: "function", Function: types.FunctionDefinition{Name: "noop"}},
		{Type: "custom", Function: types.FunctionDefinition{Name: "ignored"}},
	}

	got := buildTools(t.Context(), tools)

	require.Len(t, got, 2)
	assert.Equal(t, FunctionDeclaration{Name: "read", Description: "reads a file", Parameters: map[string]any{"type": "object"}}, got[0].FunctionDeclarations[0])
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, got[1].FunctionDeclarations[0].Parameters)

	assert.Nil(t, buildTools(t.Context(), nil))
}

func TestBuildToolConfig(t *testing.T) {
	tests := []struct {
		name   string
		choice *types.ChatCompletionToolChoiceOption
		want   FunctionCallingConfig
	}{
		{"absent", nil, FunctionCallingConfig{Mode: "VALIDATED"}},
		{"auto", &types.ChatCompletionToolChoiceOption{Mode: "auto"}, FunctionCallingConfig{Mode: "VALIDATED"}},
		{"none", &types.ChatCompletionToolChoiceOption{Mode: "none"}, FunctionCallingConfig{Mode: "NONE"}},
		{"required", &types.ChatCompletionToolChoiceOption{Mode: "required"}, FunctionCallingConfig{Mode: "ANY"}},
		{
			"named",
			&types.ChatCompletionToolChoiceOption{Function: &types.NamedFunction{Name: "read"}},
			FunctionCallingConfig{Mode: "ANY", AllowedFunctionNames: []string{"read"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildToolConfig(tt.choice).FunctionCallingConfig)
		})
	}
}
