package antigravity

// unsupportedSchemaKeys are JSON-Schema keywords the upstream rejects in function parameters.
var unsupportedSchemaKeys = map[string]struct{}{
	"$schema":              {},
	"additionalProperties": {},
	"minLength":            {},
	"maxLength":            {},
	"minItems":             {},
	"maxItems":             {},
	"uniqueItems":          {},
}

// NormalizeSchema returns a deep copy of a JSON-Schema value without the keywords the upstream
// rejects, at every nesting level including arrays of schemas. Other values pass through.
// Normalizing an already normalized schema returns an equal value.
func NormalizeSchema(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			if _, drop := unsupportedSchemaKeys[k]; drop {
				continue
			}
			out[k] = NormalizeSchema(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = NormalizeSchema(child)
		}
		return out
	default:
		return v
	}
}
