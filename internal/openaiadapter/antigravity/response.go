package antigravity

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

var errInvalidResponse = errors.New("upstream returned a malformed response")

// partKind classifies a translated upstream part.
type partKind int

const (
	partNone partKind = iota
	partText
	partReasoning
	partToolCall
	partImage
)

// translatedPart is the client-facing form of one upstream part.
type translatedPart struct {
	kind      partKind
	text      string
	signature *string // exposed thinking signature for text and reasoning parts
	toolCall  types.ChatCompletionMessageToolCall
	image     types.ContentPart
}

// responseState carries what one response has produced so far. Signatures are buffered in
// pending and only reach the conversation on commit.
type responseState struct {
	turn    int
	policy  signature.Policy
	pending signature.Pending

	toolCalls int
	images    int

	// Visible output the thinking signature is bound to; see turnDigest.
	text     strings.Builder
	callIDs  []string
	thinking string
}

// translatePart converts one upstream part and buffers its signature.
//
// Signatures on function calls are keyed by call id and signatures on inline images by turn,
// ordinal and image bytes. Every other signature belongs to the turn's thinking block, whose
// key is only known once the turn's text is complete.
func (s *responseState) translatePart(part gjson.Result) translatedPart {
	sig := part.Get("thoughtSignature").String()

	if fc := part.Get("functionCall"); fc.Exists() {
		id := fc.Get("id").String()
		if id == "" {
			id = newToolCallID()
		}
		args := "{}"
		if raw := fc.Get("args"); raw.Exists() {
			args = raw.Raw
		}

		s.pending.Observe(signature.ToolKey(id), sig)
		s.toolCalls++
		s.callIDs = append(s.callIDs, id)

		call := types.ChatCompletionMessageToolCall{
			ID:   id,
			Type: "function",
			Function: types.ChatCompletionFunctionCall{
				Name:      fc.Get("name").String(),
				Arguments: args,
			},
		}
		if s.policy.ExposeToClient && sig != "" {
			call.ThoughtSignature = &sig
		}
		return translatedPart{kind: partToolCall, toolCall: call}
	}

	if data := part.Get("inlineData"); data.Exists() {
		img := Image{MimeType: data.Get("mimeType").String(), Data: data.Get("data").String()}
		s.pending.Observe(signature.ImageKey(s.turn, s.images, imageDigest(img)), sig)
		s.images++

		return translatedPart{
			kind: partImage,
			image: types.ContentPart{
				Type:     types.ContentPartImageURL,
				ImageURL: &types.ImageURL{URL: dataURL(img.MimeType, img.Data)},
			},
		}
	}

	if sig != "" {
		s.thinking = sig
	}

	var exposed *string
	if s.policy.ExposeToClient && sig != "" {
		exposed = &sig
	}

	text := part.Get("text").String()
	switch {
	case part.Get("thought").Bool():
		if text == "" && exposed == nil {
			return translatedPart{}
		}
		return translatedPart{kind: partReasoning, text: text, signature: exposed}
	case text != "":
		s.text.WriteString(text)
		return translatedPart{kind: partText, text: text, signature: exposed}
	case exposed != nil:
		// Signature-only part: surface it as an empty reasoning delta.
		return translatedPart{kind: partReasoning, signature: exposed}
	default:
		return translatedPart{}
	}
}

// commit hands the buffered signatures to conv and returns how many there were. The thinking
// signature is keyed by the turn's final text and tool call ids, as a client replays them.
func (s *responseState) commit(conv *signature.Conversation) int {
	if s.thinking != "" {
		s.pending.Observe(signature.ThinkingKey(s.turn, turnDigest(s.text.String(), s.callIDs)), s.thinking)
		s.thinking = ""
	}
	return s.pending.Commit(conv)
}

// responseNode unwraps the v1internal {"response": {...}} envelope.
func responseNode(root gjson.Result) gjson.Result {
	if resp := root.Get("response"); resp.Exists() {
		return resp
	}
	return root
}

// toFinishReason maps upstream finish reasons to OpenAI finish reasons.
// A normal stop after tool calls is reported as tool_calls, as OpenAI clients expect.
func toFinishReason(reason string, sawToolCalls bool) string {
	switch reason {
	case "STOP", "FINISH_REASON_UNSPECIFIED", "":
		if sawToolCalls {
			return types.FinishReasonToolCalls
		}
		return types.FinishReasonStop
	case "MAX_TOKENS":
		return types.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "IMAGE_SAFETY":
		return types.FinishReasonContentFilter
	default:
		// MALFORMED_FUNCTION_CALL, LANGUAGE, OTHER: no OpenAI equivalent
		if sawToolCalls {
			return types.FinishReasonToolCalls
		}
		return types.FinishReasonStop
	}
}

// toChatCompletionResponse translates a buffered upstream response and buffers the signatures
// it carries in state.
func toChatCompletionResponse(body []byte, state *responseState, model string, created int64) (*types.CreateChatCompletionResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidResponse
	}
	resp := responseNode(gjson.ParseBytes(body))

	var (
		content   strings.Builder
		reasoning strings.Builder
		msg       = types.ChatCompletionResponseMessage{Role: types.RoleAssistant}
	)
	hasContent, hasReasoning := false, false

	candidate := resp.Get("candidates.0")
	for _, part := range candidate.Get("content.parts").Array() {
		tp := state.translatePart(part)
		switch tp.kind {
		case partText:
			content.WriteString(tp.text)
			hasContent = true
		case partReasoning:
			reasoning.WriteString(tp.text)
			hasReasoning = true
		case partToolCall:
			msg.ToolCalls = append(msg.ToolCalls, tp.toolCall)
		case partImage:
			msg.Images = append(msg.Images, tp.image)
		}
		if tp.signature != nil {
			msg.ReasoningSignature = tp.signature
		}
	}

	if hasContent || len(msg.ToolCalls) == 0 {
		c := content.String()
		msg.Content = &c
	}
	if hasReasoning {
		r := reasoning.String()
		msg.ReasoningContent = &r
	}

	finishReason := toFinishReason(candidate.Get("finishReason").String(), state.toolCalls > 0)
	if !candidate.Exists() && resp.Get("promptFeedback.blockReason").Exists() {
		finishReason = types.FinishReasonContentFilter
	}

	return &types.CreateChatCompletionResponse{
		ID:      responseID(resp),
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []types.ChatCompletionChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: finishReason,
		}},
		Usage: toCompletionUsage(resp.Get("usageMetadata")),
	}, nil
}

// responseID derives the OpenAI response id from the upstream responseId when present.
func responseID(resp gjson.Result) string {
	if id := resp.Get("responseId").String(); id != "" {
		return "chatcmpl-" + id
	}
	return newResponseID()
}

// newResponseID generates an OpenAI-compatible response ID (chatcmpl-<token>).
func newResponseID() string {
	b := make([]byte, 24) // 24 bytes yields 32 URL-safe base64 characters
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "chatcmpl-" + base64.RawURLEncoding.EncodeToString(b)
}

// newToolCallID generates a tool call id for upstream calls that come without one.
func newToolCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
