// Package signature keeps upstream continuation signatures alive across the turns of a
// conversation.
//
// The upstream returns opaque signature tokens next to tool calls, generated images and
// thinking blocks. It does not persist them itself: a later request must echo each token on
// the part it belongs to, or the upstream cannot resume its internal state. OpenAI clients
// know nothing about these tokens, so the proxy holds them server-side and re-injects them
// while transcoding the next request.
//
// # Ownership
//
// Entries are owned by a Conversation. Collaborators open a conversation on the Registry,
// read and write through it, and discard it when the conversation ends. The Registry bounds
// the number of live conversations and evicts the least recently opened one when full. There
// is no TTL.
//
// Within a conversation, Retain drops every entry the latest transcoded history no longer
// references, so superseded turns do not accumulate.
//
// # Keys
//
// Keys are derived from conversation position:
//
//   - tool:     the tool call id
//   - image:    assistant turn ordinal and image ordinal within that turn
//   - thinking: assistant turn ordinal and block ordinal within that turn
//
// # Policy
//
// Each category can be switched off independently. A disabled category turns Put into a no-op
// and Get into a permanent miss, which makes the request builder omit the field rather than
// send a stale token. FallbackPlaceholder substitutes a generic placeholder for missing tool
// call signatures.
//
// # Streaming
//
// Signatures observed while a response is still streaming are buffered in Pending and only
// committed once the terminal chunk arrives. A stream cancelled by the client commits nothing.
package signature
