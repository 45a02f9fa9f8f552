package signature

// Placeholder is sent in place of a tool call signature that is unknown to the proxy when
// Policy.FallbackPlaceholder is set. The upstream accepts it as a "validator skip" marker for
// some models; there is no guarantee it does for all of them.
const Placeholder = "skip_thought_signature_validator"

// Policy gates what the cache stores and what clients get to see.
type Policy struct {
	CacheTool     bool `koanf:"cache_tool"`
	CacheImage    bool `koanf:"cache_image"`
	CacheThinking bool `koanf:"cache_thinking"`

	// ExposeToClient returns signatures to clients verbatim (thought_signature on tool calls,
	// reasoning_signature on reasoning deltas) and honors them when clients send them back.
	ExposeToClient bool `koanf:"expose_to_client"`

	// FallbackPlaceholder substitutes Placeholder for missing tool call signatures.
	FallbackPlaceholder bool `koanf:"fallback_placeholder"`
}

// DefaultPolicy caches every category and keeps signatures server-side.
func DefaultPolicy() Policy {
	return Policy{
		CacheTool:     true,
		CacheImage:    true,
		CacheThinking: true,
	}
}

// Caches reports whether signatures of the category are cached at all.
func (p Policy) Caches(c Category) bool {
	switch c {
	case CategoryTool:
		return p.CacheTool
	case CategoryImage:
		return p.CacheImage
	case CategoryThinking:
		return p.CacheThinking
	default:
		return false
	}
}

// Lookup resolves the signature to send upstream for key.
// A cached token wins; otherwise tool calls fall back to Placeholder when enabled.
// conv may be nil.
func (p Policy) Lookup(conv *Conversation, key Key) (string, bool) {
	if token, ok := conv.Get(key); ok {
		return token, true
	}
	if p.FallbackPlaceholder && key.Category == CategoryTool {
		return Placeholder, true
	}
	return "", false
}
