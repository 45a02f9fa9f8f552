package antigravity

import (
	"github.com/tidwall/gjson"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// streamTranslator turns upstream SSE payloads into OpenAI chunks.
//
// Every chunk carries at most one of a text delta, a reasoning delta, a tool call delta, an
// image or the finish reason. Tool call indices count tool calls only, as OpenAI expects.
// Signatures are committed to the conversation when the chunk carrying the finish reason
// arrives; a stream that ends earlier commits nothing.
type streamTranslator struct {
	state responseState
	conv  *signature.Conversation

	id      string
	model   string
	created int64

	roleSent bool
	finished bool
	usage    *types.CompletionUsage
}

func newStreamTranslator(conv *signature.Conversation, policy signature.Policy, turn int, model string, created int64) *streamTranslator {
	return &streamTranslator{
		state:   responseState{turn: turn, policy: policy},
		conv:    conv,
		model:   model,
		created: created,
	}
}

// translate converts one upstream payload. Upstream errors embedded in the stream are returned
// as *UpstreamError.
func (s *streamTranslator) translate(payload []byte) ([]*types.CreateChatCompletionStreamResponse, error) {
	if !gjson.ValidBytes(payload) {
		return nil, errInvalidResponse
	}
	root := gjson.ParseBytes(payload)
	if errNode := root.Get("error"); errNode.Exists() {
		return nil, &UpstreamError{StatusCode: int(errNode.Get("code").Int()), Body: payload}
	}

	resp := responseNode(root)
	if s.id == "" {
		s.id = responseID(resp)
	}
	if meta := resp.Get("usageMetadata"); meta.Exists() {
		s.usage = toCompletionUsage(meta)
	}

	candidate := resp.Get("candidates.0")

	var chunks []*types.CreateChatCompletionStreamResponse
	for _, part := range candidate.Get("content.parts").Array() {
		toolIndex := s.state.toolCalls
		tp := s.state.translatePart(part)

		var delta types.ChatCompletionStreamResponseDelta
		switch tp.kind {
		case partNone:
			continue
		case partText:
			delta.Content = &tp.text
			delta.ReasoningSignature = tp.signature
		case partReasoning:
			delta.ReasoningContent = &tp.text
			delta.ReasoningSignature = tp.signature
		case partToolCall:
			delta.ToolCalls = []types.ChatCompletionMessageToolCallChunk{{
				Index:            toolIndex,
				ID:               tp.toolCall.ID,
				Type:             tp.toolCall.Type,
				Function:         tp.toolCall.Function,
				ThoughtSignature: tp.toolCall.ThoughtSignature,
			}}
		case partImage:
			delta.Images = []types.ContentPart{tp.image}
		}
		chunks = append(chunks, s.chunk(delta, nil))
	}

	reason := candidate.Get("finishReason").String()
	if reason == "" && !candidate.Exists() && resp.Get("promptFeedback.blockReason").Exists() {
		reason = "PROHIBITED_CONTENT"
	}
	if reason != "" {
		s.state.commit(s.conv)
		finish := toFinishReason(reason, s.state.toolCalls > 0)
		terminal := s.chunk(types.ChatCompletionStreamResponseDelta{}, &finish)
		terminal.Usage = s.usage
		chunks = append(chunks, terminal)
		s.finished = true
	}

	return chunks, nil
}

func (s *streamTranslator) chunk(delta types.ChatCompletionStreamResponseDelta, finishReason *string) *types.CreateChatCompletionStreamResponse {
	if !s.roleSent {
		delta.Role = types.RoleAssistant
		s.roleSent = true
	}
	return &types.CreateChatCompletionStreamResponse{
		ID:      s.id,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.model,
		Choices: []types.ChatCompletionStreamChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
	}
}
