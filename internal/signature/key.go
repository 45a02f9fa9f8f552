package signature

import "strconv"

// Category tags what kind of upstream part a signature belongs to.
type Category string

const (
	CategoryTool     Category = "tool"
	CategoryImage    Category = "image"
	CategoryThinking Category = "thinking"
)

// Key identifies a signature within one conversation.
// The category is part of the key, so a Put always stores it alongside the token.
type Key struct {
	Category Category
	ID       string
}

// String renders the key as "<category>:<id>".
func (k Key) String() string {
	return string(k.Category) + ":" + k.ID
}

// ToolKey keys the signature attached to a function call.
func ToolKey(callID string) Key {
	return Key{Category: CategoryTool, ID: callID}
}

// ImageKey keys the signature of the ordinal-th image generated in the given assistant turn.
// turn counts assistant messages from the start of the conversation, starting at 0. digest
// binds the key to the image itself (see Digest), so an image replayed by a different
// conversation never resolves to this one's signature.
func ImageKey(turn, ordinal int, digest string) Key {
	return Key{Category: CategoryImage, ID: strconv.Itoa(turn) + ":" + strconv.Itoa(ordinal) + ":" + digest}
}

// ThinkingKey keys the signature of an assistant turn's thinking block. digest binds the key
// to what the turn visibly produced (see Digest); position alone is shared by every
// conversation that starts the same way.
func ThinkingKey(turn int, digest string) Key {
	return Key{Category: CategoryThinking, ID: strconv.Itoa(turn) + ":" + digest}
}
