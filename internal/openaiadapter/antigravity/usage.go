package antigravity

import (
	"github.com/tidwall/gjson"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
)

// toCompletionUsage converts upstream usageMetadata to OpenAI usage.
// Thought tokens are billed as completion tokens and reported as reasoning_tokens.
func toCompletionUsage(meta gjson.Result) *types.CompletionUsage {
	if !meta.Exists() {
		return nil
	}

	prompt := int(meta.Get("promptTokenCount").Int())
	candidates := int(meta.Get("candidatesTokenCount").Int())
	thoughts := int(meta.Get("thoughtsTokenCount").Int())
	total := int(meta.Get("totalTokenCount").Int())
	if total == 0 {
		total = prompt + candidates + thoughts
	}

	usage := &types.CompletionUsage{
		PromptTokens:     prompt,
		CompletionTokens: candidates + thoughts,
		TotalTokens:      total,
	}
	if cached := int(meta.Get("cachedContentTokenCount").Int()); cached > 0 {
		usage.PromptTokensDetails = &types.PromptTokensDetails{CachedTokens: cached}
	}
	if thoughts > 0 {
		usage.CompletionTokensDetails = &types.CompletionTokensDetails{ReasoningTokens: thoughts}
	}
	return usage
}
