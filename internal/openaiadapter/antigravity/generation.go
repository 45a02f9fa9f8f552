package antigravity

import (
	"slices"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
)

// Hard-coded fallbacks used when neither the client nor the configuration sets a value.
const (
	fallbackTemperature     = 1.0
	fallbackTopP            = 0.85
	fallbackTopK            = 50
	fallbackMaxOutputTokens = 8096
	fallbackThinkingBudget  = 1024
)

// stopSequences are sent with every request and are not client-configurable.
var stopSequences = []string{
	"<|user|>",
	"<|bot|>",
	"<|context_request|>",
	"<|endoftext|>",
	"<|end_of_turn|>",
}

// effortBudgets maps reasoning_effort to a thinking budget.
var effortBudgets = map[string]int{
	"low":    1024,
	"medium": 16000,
	"high":   32000,
}

// GenerationDefaults are the configured defaults. Nil fields fall through to the hard-coded
// fallbacks.
type GenerationDefaults struct {
	Temperature     *float64 `koanf:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopP            *float64 `koanf:"top_p" validate:"omitempty,gte=0,lte=1"`
	TopK            *int     `koanf:"top_k" validate:"omitempty,gte=0"`
	MaxOutputTokens *int     `koanf:"max_tokens" validate:"omitempty,gt=0"`
	ThinkingBudget  *int     `koanf:"thinking_budget" validate:"omitempty,gte=0"`
}

// GenerationConfig is the upstream sampling and limits configuration.
type GenerationConfig struct {
	Temperature     float64        `json:"temperature"`
	TopP            *float64       `json:"topP,omitempty"`
	TopK            int            `json:"topK"`
	MaxOutputTokens int            `json:"maxOutputTokens"`
	CandidateCount  int            `json:"candidateCount"`
	StopSequences   []string       `json:"stopSequences"`
	ThinkingConfig  ThinkingConfig `json:"thinkingConfig"`
}

// ThinkingConfig controls extended thinking.
type ThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
	ThinkingBudget  int  `json:"thinkingBudget"`
}

// BuildGenerationConfig resolves every field as: client value, then effort hint (budget only),
// then configured default, then fallback.
//
// The budget is forced to 0 when thinking is off: the upstream rejects a non-zero budget
// together with includeThoughts=false. With thinking on, the budget is kept below
// maxOutputTokens. dropTopP removes topP altogether for model families that reject it.
func BuildGenerationConfig(req *types.CreateChatCompletionRequest, defaults GenerationDefaults, thinking, dropTopP bool) GenerationConfig {
	cfg := GenerationConfig{
		Temperature:     pick(req.Temperature, defaults.Temperature, fallbackTemperature),
		TopK:            pick(req.TopK, defaults.TopK, fallbackTopK),
		MaxOutputTokens: pick(firstSet(req.MaxCompletionTokens, req.MaxTokens), defaults.MaxOutputTokens, fallbackMaxOutputTokens),
		CandidateCount:  1,
		StopSequences:   slices.Clone(stopSequences),
	}

	topP := pick(req.TopP, defaults.TopP, fallbackTopP)
	cfg.TopP = &topP

	if !thinking {
		cfg.ThinkingConfig = ThinkingConfig{IncludeThoughts: false, ThinkingBudget: 0}
		return cfg
	}

	budget := pick(clientBudget(req), defaults.ThinkingBudget, fallbackThinkingBudget)
	if budget >= cfg.MaxOutputTokens {
		budget = cfg.MaxOutputTokens - 1
	}
	cfg.ThinkingConfig = ThinkingConfig{IncludeThoughts: true, ThinkingBudget: budget}

	if dropTopP {
		cfg.TopP = nil
	}
	return cfg
}

// clientBudget returns the budget requested by the client: thinking_budget, then
// extra_body.thinking_budget, then the reasoning_effort mapping.
func clientBudget(req *types.CreateChatCompletionRequest) *int {
	if req.ThinkingBudget != nil {
		return req.ThinkingBudget
	}
	if v, ok := req.ExtraBody["thinking_budget"].(float64); ok && v >= 0 {
		b := int(v)
		return &b
	}
	if req.ReasoningEffort != nil {
		if b, ok := effortBudgets[*req.ReasoningEffort]; ok {
			return &b
		}
	}
	return nil
}

func pick[T any](client, configured *T, fallback T) T {
	if client != nil {
		return *client
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

func firstSet[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
