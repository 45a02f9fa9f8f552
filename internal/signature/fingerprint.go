package signature

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint derives a stable conversation id from conversation-invariant content, such as
// the model family and the first user message. Parts are length-prefixed so that ("ab", "c")
// and ("a", "bc") differ. It returns "" when every part is empty.
func Fingerprint(parts ...string) string {
	empty := true
	for _, p := range parts {
		if p != "" {
			empty = false
			break
		}
	}
	if empty {
		return ""
	}
	return "fp-" + hex.EncodeToString(sum(parts))
}

// Digest hashes content a signature key is bound to, such as an assistant turn's text and
// tool call ids or an image's bytes. Unlike Fingerprint it is defined for empty input.
func Digest(parts ...string) string {
	return hex.EncodeToString(sum(parts)[:12])
}

// sum is a 16-byte blake3 hash over length-prefixed parts.
func sum(parts []string) []byte {
	h := blake3.New()
	for _, p := range parts {
		var prefix [8]byte
		n := uint64(len(p))
		for i := range prefix {
			prefix[i] = byte(n >> (8 * i))
		}
		_, _ = h.Write(prefix[:])
		_, _ = h.Write([]byte(p))
	}
	return h.Sum(nil)[:16]
}
