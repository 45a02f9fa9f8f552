// Package antigravity adapts OpenAI chat completion requests to the Antigravity upstream
// (Cloud Code v1internal with the Gemini-CLI envelope), enabling OpenAI SDK clients to use
// the upstream's models without code changes.
//
// The adapter handles:
//
//   - Message transformation: The leading run of system/developer messages is hoisted into
//     the system instruction after the configured base instruction. The flat OpenAI history is
//     rewritten into user/model turns: consecutive tool-call-only assistant messages merge into
//     one model turn and the tool results of a batch are grouped into one user turn.
//
//   - Tool calling: Tool call ids are preserved in both directions. Call arguments are sent
//     upstream as an opaque {"query": <arguments>} object and results as
//     {"output": <content>}. Parameter schemas are stripped of keywords the upstream rejects.
//
//   - Model policy: Client model ids are mapped to upstream ids and decide whether extended
//     thinking is enabled. The tables live in models.yaml and can be swapped with
//     NewModelPolicy.
//
//   - Signature continuity: The upstream returns signatures for tool calls, images and
//     thinking blocks that must be echoed on later turns. They are cached per conversation
//     (see package signature) and re-injected while transcoding. Conversations are identified
//     by the X-Conversation-ID header or, without it, by a fingerprint of the first user
//     message.
//
//   - Streaming: Translates upstream SSE chunks into OpenAI chunks as they arrive. Each chunk
//     carries one delta. Signatures are only committed once the finish reason arrives.
//
// # Adapters
//
// CreateChatCompletionAdapter: OpenAI CreateChatCompletion → Antigravity generateContent
package antigravity
