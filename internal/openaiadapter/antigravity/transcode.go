package antigravity

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// lastTurn tags the most recently produced upstream turn for merge decisions.
type lastTurn int

const (
	lastNone        lastTurn = iota
	lastUser                 // user turn holding text and images
	lastToolResults          // user turn holding functionResponse parts
	lastModel                // model turn
)

// TranscodeOptions configure a transcoding run.
type TranscodeOptions struct {
	// SystemInstruction is the base instruction that leading system messages are appended to.
	SystemInstruction string

	// Conversation supplies cached signatures. Nil disables lookups.
	Conversation *signature.Conversation

	// Policy decides whether client-supplied signatures are honored and whether the
	// placeholder substitutes missing tool call signatures.
	Policy signature.Policy
}

// Transcript is the upstream form of a client message history.
type Transcript struct {
	Contents          []Content
	SystemInstruction *Content

	// UsedSignatureKeys lists every cache key the history refers to. Entries outside this set
	// belong to superseded turns.
	UsedSignatureKeys []signature.Key

	// AssistantTurns is the number of assistant messages in the history, which is also the
	// turn ordinal of the response to this request.
	AssistantTurns int
}

type transcoder struct {
	opts TranscodeOptions

	contents  []Content
	last      lastTurn
	callNames map[string]string // tool call id -> function name, filled as calls are produced
	assistant int               // ordinal of the next assistant message
	used      []signature.Key
}

// Transcode rewrites a flat OpenAI message history into upstream turns.
//
// The maximal leading run of system (and developer) messages becomes the system instruction.
// Later system messages are treated as user messages. Consecutive assistant messages that only
// carry tool calls are merged into one model turn, and tool results answering one batch are
// grouped into one user turn. Unresolvable tool call ids and malformed content degrade
// gracefully and are logged.
func Transcode(ctx context.Context, messages []types.ChatCompletionRequestMessage, opts TranscodeOptions) Transcript {
	t := &transcoder{
		opts:      opts,
		callNames: make(map[string]string),
	}

	var system []string
	i := 0
	for ; i < len(messages) && isSystemRole(messages[i].Role); i++ {
		if text := ExtractContent(ctx, messages[i].Content).Text; text != "" {
			system = append(system, text)
		}
	}

	for _, msg := range messages[i:] {
		switch msg.Role {
		case types.RoleAssistant:
			t.assistantMessage(ctx, msg)
		case types.RoleTool:
			t.toolMessage(ctx, msg)
		default:
			// user, and system/developer after the leading run
			t.userMessage(ctx, msg)
		}
	}

	return Transcript{
		Contents:          t.contents,
		SystemInstruction: systemInstruction(opts.SystemInstruction, system),
		UsedSignatureKeys: t.used,
		AssistantTurns:    t.assistant,
	}
}

func isSystemRole(role string) bool {
	return role == types.RoleSystem || role == types.RoleDeveloper
}

func systemInstruction(base string, system []string) *Content {
	texts := make([]string, 0, len(system)+1)
	if base != "" {
		texts = append(texts, base)
	}
	texts = append(texts, system...)
	if len(texts) == 0 {
		return nil
	}
	return &Content{Role: roleUser, Parts: []Part{textPart(strings.Join(texts, "\n\n"))}}
}

func (t *transcoder) userMessage(ctx context.Context, msg types.ChatCompletionRequestMessage) {
	ext := ExtractContent(ctx, msg.Content)

	parts := make([]Part, 0, 1+len(ext.Images))
	parts = append(parts, textPart(ext.Text))
	for _, img := range ext.Images {
		parts = append(parts, Part{InlineData: &InlineData{MimeType: img.MimeType, Data: img.Data}})
	}

	t.push(roleUser, parts, lastUser)
}

func (t *transcoder) assistantMessage(ctx context.Context, msg types.ChatCompletionRequestMessage) {
	turn := t.assistant
	t.assistant++

	calls := t.functionCalls(msg.ToolCalls)
	ext := ExtractContent(ctx, msg.Content)
	text := strings.TrimRightFunc(ext.Text, unicode.IsSpace)
	images := slices.Concat(ext.Images, replayedImages(ctx, msg.Images))

	if t.last == lastModel && len(calls) > 0 && text == "" && len(images) == 0 {
		prev := &t.contents[len(t.contents)-1]
		prev.Parts = append(prev.Parts, calls...)
		return
	}

	var parts []Part
	if sig, ok := t.thinkingSignature(msg, turn, turnDigest(text, toolCallIDs(msg.ToolCalls))); ok {
		reasoning := ""
		if msg.ReasoningContent != nil {
			reasoning = *msg.ReasoningContent
		}
		parts = append(parts, Part{Text: &reasoning, Thought: true, ThoughtSignature: sig})
	}
	if text != "" {
		parts = append(parts, textPart(text))
	}
	for ordinal, img := range images {
		part := Part{InlineData: &InlineData{MimeType: img.MimeType, Data: img.Data}}
		part.ThoughtSignature, _ = t.lookup(signature.ImageKey(turn, ordinal, imageDigest(img)))
		parts = append(parts, part)
	}
	parts = append(parts, calls...)

	if len(parts) == 0 {
		// Keep the turn so the surrounding user turns stay separated.
		slog.DebugContext(ctx, "empty assistant message", "assistant_turn", turn)
		parts = append(parts, textPart(""))
	}

	t.push(roleModel, parts, lastModel)
}

// replayedImages decodes generated images a client echoes back in an assistant message's
// images field.
func replayedImages(ctx context.Context, parts []types.ContentPart) []Image {
	var images []Image
	for i, part := range parts {
		if img, ok := parseDataImage(part.ImageURL); ok {
			images = append(images, img)
			continue
		}
		slog.DebugContext(ctx, "skipping replayed image without inline data URL", "image_index", i)
	}
	return images
}

func toolCallIDs(calls []types.ChatCompletionMessageToolCall) []string {
	ids := make([]string, len(calls))
	for i, call := range calls {
		ids[i] = call.ID
	}
	return ids
}

// turnDigest identifies an assistant turn by its visible output: the text without trailing
// whitespace followed by its tool call ids. Responses and replayed history both derive it,
// so a thinking signature only resolves for the turn that produced it.
func turnDigest(text string, callIDs []string) string {
	return signature.Digest(append([]string{strings.TrimRightFunc(text, unicode.IsSpace)}, callIDs...)...)
}

func imageDigest(img Image) string {
	return signature.Digest(img.MimeType, img.Data)
}

func (t *transcoder) functionCalls(calls []types.ChatCompletionMessageToolCall) []Part {
	if len(calls) == 0 {
		return nil
	}

	parts := make([]Part, 0, len(calls))
	for _, call := range calls {
		t.callNames[call.ID] = call.Function.Name

		part := Part{
			FunctionCall: &FunctionCall{
				ID:   call.ID,
				Name: call.Function.Name,
				Args: map[string]any{"query": call.Function.Arguments},
			},
		}

		if call.ThoughtSignature != nil && *call.ThoughtSignature != "" && t.opts.Policy.ExposeToClient {
			part.ThoughtSignature = *call.ThoughtSignature
		} else {
			part.ThoughtSignature, _ = t.lookup(signature.ToolKey(call.ID))
		}
		parts = append(parts, part)
	}
	return parts
}

func (t *transcoder) thinkingSignature(msg types.ChatCompletionRequestMessage, turn int, digest string) (string, bool) {
	if msg.ReasoningSignature != nil && *msg.ReasoningSignature != "" && t.opts.Policy.ExposeToClient {
		return *msg.ReasoningSignature, true
	}
	return t.lookup(signature.ThinkingKey(turn, digest))
}

func (t *transcoder) toolMessage(ctx context.Context, msg types.ChatCompletionRequestMessage) {
	name, ok := t.callNames[msg.ToolCallID]
	if !ok {
		slog.WarnContext(ctx, "tool result references unknown tool call", "tool_call_id", msg.ToolCallID)
	}

	part := Part{
		FunctionResponse: &FunctionResponse{
			ID:       msg.ToolCallID,
			Name:     name,
			Response: map[string]any{"output": ExtractContent(ctx, msg.Content).Text},
		},
	}

	if t.last == lastToolResults {
		prev := &t.contents[len(t.contents)-1]
		prev.Parts = append(prev.Parts, part)
		return
	}
	t.push(roleUser, []Part{part}, lastToolResults)
}

func (t *transcoder) push(role string, parts []Part, state lastTurn) {
	t.contents = append(t.contents, Content{Role: role, Parts: parts})
	t.last = state
}

// lookup resolves a signature through the policy and records the key as referenced.
func (t *transcoder) lookup(key signature.Key) (string, bool) {
	t.used = append(t.used, key)
	return t.opts.Policy.Lookup(t.opts.Conversation, key)
}
