// Package types provides OpenAI chat-completion types for server-side request/response handling.
//
// The types are hand-written rather than generated from the OpenAPI document or taken from the
// openai-go SDK:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: The SDK is designed for outbound calls TO OpenAI. This
//     gateway decodes inbound requests FROM clients and only needs the chat-completion subset.
//
//  2. UNIONS: OpenAI's message content (string | part list) and tool_choice (string | object)
//     are modelled as small structs with custom JSON methods instead of generated wrappers.
//
//  3. EXTENSIONS: A few non-OpenAI fields (thinking_budget, thought_signature,
//     reasoning_content, reasoning_signature) are accepted and emitted by popular clients
//     talking to reasoning models and are declared here alongside the standard fields.
package types
