package antigravity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

func ptr[T any](v T) *T { return &v }

func userMsg(text string) types.ChatCompletionRequestMessage {
	return types.ChatCompletionRequestMessage{Role: types.RoleUser, Content: types.NewTextContent(text)}
}

func systemMsg(text string) types.ChatCompletionRequestMessage {
	return types.ChatCompletionRequestMessage{Role: types.RoleSystem, Content: types.NewTextContent(text)}
}

func assistantMsg(text string, calls ...types.ChatCompletionMessageToolCall) types.ChatCompletionRequestMessage {
	msg := types.ChatCompletionRequestMessage{Role: types.RoleAssistant, ToolCalls: calls}
	if text != "" {
		msg.Content = types.NewTextContent(text)
	}
	return msg
}

func toolCall(id, name, args string) types.ChatCompletionMessageToolCall {
	return types.ChatCompletionMessageToolCall{
		ID:       id,
		Type:     "function",
		Function: types.ChatCompletionFunctionCall{Name: name, Arguments: args},
	}
}

func toolMsg(id, output string) types.ChatCompletionRequestMessage {
	return types.ChatCompletionRequestMessage{Role: types.RoleTool, ToolCallID: id, Content: types.NewTextContent(output)}
}

func TestTranscode_SingleUserMessage(t *testing.T) {
	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{userMsg("Hi")}, TranscodeOptions{})

	require.Len(t, tr.Contents, 1)
	assert.Equal(t, Content{Role: roleUser, Parts: []Part{textPart("Hi")}}, tr.Contents[0])
	assert.Nil(t, tr.SystemInstruction)
}

func TestTranscode_SystemInstruction(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		messages []types.ChatCompletionRequestMessage
		want     string
		turns    int
	}{
		{
			name:     "leading system messages joined after base",
			base:     "BASE",
			messages: []types.ChatCompletionRequestMessage{systemMsg("one"), systemMsg("two"), userMsg("hi")},
			want:     "BASE\n\none\n\ntwo",
			turns:    1,
		},
		{
			name:     "no leading system keeps base only",
			base:     "BASE",
			messages: []types.ChatCompletionRequestMessage{userMsg("hi"), assistantMsg("hello")},
			want:     "BASE",
			turns:    2,
		},
		{
			name: "developer counts as system",
			messages: []types.ChatCompletionRequestMessage{
				{Role: types.RoleDeveloper, Content: types.NewTextContent("dev")},
				userMsg("hi"),
			},
			want:  "dev",
			turns: 1,
		},
		{
			name:     "late system message becomes a user turn",
			base:     "BASE",
			messages: []types.ChatCompletionRequestMessage{userMsg("hi"), assistantMsg("hello"), systemMsg("late")},
			want:     "BASE",
			turns:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Transcode(context.Background(), tt.messages, TranscodeOptions{SystemInstruction: tt.base})

			require.NotNil(t, tr.SystemInstruction)
			assert.Equal(t, roleUser, tr.SystemInstruction.Role)
			require.Len(t, tr.SystemInstruction.Parts, 1)
			assert.Equal(t, tt.want, *tr.SystemInstruction.Parts[0].Text)
			assert.Len(t, tr.Contents, tt.turns)
		})
	}
}

func TestTranscode_LateSystemMessageIsUserTurn(t *testing.T) {
	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{
		userMsg("hi"), assistantMsg("hello"), systemMsg("late"),
	}, TranscodeOptions{})

	require.Len(t, tr.Contents, 3)
	assert.Equal(t, Content{Role: roleUser, Parts: []Part{textPart("late")}}, tr.Contents[2])
	assert.Nil(t, tr.SystemInstruction)
}

func TestTranscode_UserMessageWithImages(t *testing.T) {
	msg := types.ChatCompletionRequestMessage{
		Role: types.RoleUser,
		Content: types.NewPartsContent(
			types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:image/png;base64,AAAA"}},
		),
	}

	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{msg}, TranscodeOptions{})

	require.Len(t, tr.Contents, 1)
	parts := tr.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "", *parts[0].Text, "user turns always start with a text part")
	assert.Equal(t, &InlineData{MimeType: "image/png", Data: "AAAA"}, parts[1].InlineData)
}

func TestTranscode_ConsecutiveToolCallsCollapse(t *testing.T) {
	messages := []types.ChatCompletionRequestMessage{
		userMsg("weather?"),
		assistantMsg("", toolCall("call_1", "get_weather", `{"city":"Berlin"}`)),
		assistantMsg("", toolCall("call_2", "get_time", `{}`)),
		toolMsg("call_1", "sunny"),
		toolMsg("call_2", "noon"),
	}

	tr := Transcode(context.Background(), messages, TranscodeOptions{})

	require.Len(t, tr.Contents, 3)
	assert.Equal(t, roleUser, tr.Contents[0].Role)

	model := tr.Contents[1]
	assert.Equal(t, roleModel, model.Role)
	require.Len(t, model.Parts, 2)
	assert.Equal(t, &FunctionCall{ID: "call_1", Name: "get_weather", Args: map[string]any{"query": `{"city":"Berlin"}`}}, model.Parts[0].FunctionCall)
	assert.Equal(t, "get_time", model.Parts[1].FunctionCall.Name)

	results := tr.Contents[2]
	assert.Equal(t, roleUser, results.Role)
	require.Len(t, results.Parts, 2)
	assert.Equal(t, &FunctionResponse{ID: "call_1", Name: "get_weather", Response: map[string]any{"output": "sunny"}}, results.Parts[0].FunctionResponse)
	assert.Equal(t, "get_time", results.Parts[1].FunctionResponse.Name)

	assert.Equal(t, 2, tr.AssistantTurns)
}

func TestTranscode_AssistantWithTextStartsNewTurn(t *testing.T) {
	messages := []types.ChatCompletionRequestMessage{
		userMsg("go"),
		assistantMsg("", toolCall("a", "f", "{}")),
		assistantMsg("let me also check  \n", toolCall("b", "g", "{}")),
	}

	tr := Transcode(context.Background(), messages, TranscodeOptions{})

	require.Len(t, tr.Contents, 3)
	second := tr.Contents[2]
	require.Len(t, second.Parts, 2)
	assert.Equal(t, "let me also check", *second.Parts[0].Text, "trailing whitespace is trimmed")
	assert.Equal(t, "g", second.Parts[1].FunctionCall.Name)
}

func TestTranscode_ModelTurnCountProperty(t *testing.T) {
	messages := []types.ChatCompletionRequestMessage{
		userMsg("1"),
		assistantMsg("", toolCall("a", "f", "{}")),
		assistantMsg("", toolCall("b", "f", "{}")), // merges
		toolMsg("a", "x"),
		toolMsg("b", "y"),
		assistantMsg("thinking out loud", toolCall("c", "f", "{}")),
		toolMsg("c", "z"),
		assistantMsg("done"),
	}

	tr := Transcode(context.Background(), messages, TranscodeOptions{})

	withCalls := 0
	for _, c := range tr.Contents {
		if c.Role != roleModel {
			continue
		}
		for _, p := range c.Parts {
			if p.FunctionCall != nil {
				withCalls++
				break
			}
		}
	}
	// 3 assistant messages with tool calls, 1 merged
	assert.Equal(t, 2, withCalls)
}

func TestTranscode_ToolResultNamesResolve(t *testing.T) {
	messages := []types.ChatCompletionRequestMessage{
		userMsg("go"),
		assistantMsg("", toolCall("a", "alpha", "{}"), toolCall("b", "beta", "{}")),
		toolMsg("a", "1"),
		toolMsg("b", "2"),
		assistantMsg("", toolCall("c", "gamma", "{}")),
		toolMsg("c", "3"),
	}

	tr := Transcode(context.Background(), messages, TranscodeOptions{})

	calls := map[string]string{}
	for _, c := range tr.Contents {
		for _, p := range c.Parts {
			if p.FunctionCall != nil {
				calls[p.FunctionCall.ID] = p.FunctionCall.Name
			}
			if p.FunctionResponse != nil {
				assert.NotEmpty(t, p.FunctionResponse.Name)
				assert.Equal(t, calls[p.FunctionResponse.ID], p.FunctionResponse.Name)
			}
		}
	}
	assert.Len(t, calls, 3)
}

func TestTranscode_UnknownToolCallDegrades(t *testing.T) {
	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{
		userMsg("hi"),
		toolMsg("missing", "out"),
	}, TranscodeOptions{})

	require.Len(t, tr.Contents, 2)
	resp := tr.Contents[1].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Empty(t, resp.Name)
	assert.Equal(t, "missing", resp.ID)
}

func TestTranscode_ToolResultAfterUserTextStartsNewTurn(t *testing.T) {
	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{
		userMsg("go"),
		assistantMsg("", toolCall("a", "f", "{}")),
		toolMsg("a", "1"),
		userMsg("and now?"),
		toolMsg("a", "again"),
	}, TranscodeOptions{})

	require.Len(t, tr.Contents, 5)
	assert.NotNil(t, tr.Contents[4].Parts[0].FunctionResponse)
	assert.Len(t, tr.Contents[4].Parts, 1)
}

func TestTranscode_Signatures(t *testing.T) {
	policy := signature.DefaultPolicy()
	conv := signature.NewRegistry(policy, 0).Open("c")
	conv.Put(signature.ToolKey("call_1"), "tool-sig")
	conv.Put(signature.ThinkingKey(0, turnDigest("", []string{"call_1"})), "think-sig")
	conv.Put(signature.ImageKey(1, 0, imageDigest(Image{MimeType: "image/jpeg", Data: "BBBB"})), "img-sig")

	assistantWithImage := types.ChatCompletionRequestMessage{
		Role: types.RoleAssistant,
		Content: types.NewPartsContent(
			types.ContentPart{Type: "text", Text: "here"},
			types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:image/jpeg;base64,BBBB"}},
		),
	}

	messages := []types.ChatCompletionRequestMessage{
		userMsg("go"),
		assistantMsg("", toolCall("call_1", "f", "{}")),
		toolMsg("call_1", "ok"),
		assistantWithImage,
	}
	messages[1].ReasoningContent = ptr("pondering")

	tr := Transcode(context.Background(), messages, TranscodeOptions{Conversation: conv, Policy: policy})

	require.Len(t, tr.Contents, 4)

	first := tr.Contents[1].Parts
	require.Len(t, first, 2)
	assert.True(t, first[0].Thought)
	assert.Equal(t, "pondering", *first[0].Text)
	assert.Equal(t, "think-sig", first[0].ThoughtSignature)
	assert.Equal(t, "tool-sig", first[1].ThoughtSignature)

	second := tr.Contents[3].Parts
	require.Len(t, second, 2)
	assert.Equal(t, "here", *second[0].Text)
	assert.Equal(t, "img-sig", second[1].ThoughtSignature)

	assert.ElementsMatch(t, []signature.Key{
		signature.ThinkingKey(0, turnDigest("", []string{"call_1"})),
		signature.ToolKey("call_1"),
		signature.ThinkingKey(1, turnDigest("here", nil)),
		signature.ImageKey(1, 0, imageDigest(Image{MimeType: "image/jpeg", Data: "BBBB"})),
	}, tr.UsedSignatureKeys)
}

func TestTranscode_SignaturesBoundToTurnContent(t *testing.T) {
	policy := signature.DefaultPolicy()
	conv := signature.NewRegistry(policy, 0).Open("shared")
	conv.Put(signature.ThinkingKey(0, turnDigest("Answer A", nil)), "sig-a")
	conv.Put(signature.ImageKey(0, 0, imageDigest(Image{MimeType: "image/png", Data: "AAAA"})), "img-a")

	replay := func(text, image string) []Part {
		msg := assistantMsg(text)
		msg.Images = []types.ContentPart{{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:image/png;base64," + image}}}
		tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{userMsg("Hi"), msg},
			TranscodeOptions{Conversation: conv, Policy: policy})
		require.Len(t, tr.Contents, 2)
		return tr.Contents[1].Parts
	}

	own := replay("Answer A  \n", "AAAA")
	require.Len(t, own, 3)
	assert.Equal(t, "sig-a", own[0].ThoughtSignature, "trailing whitespace does not change the turn")
	assert.Equal(t, "img-a", own[2].ThoughtSignature)

	other := replay("Answer B", "BBBB")
	require.Len(t, other, 2, "no thinking part without a matching signature")
	assert.Equal(t, "Answer B", *other[0].Text)
	assert.Empty(t, other[1].ThoughtSignature)
}

func TestTranscode_ReplayedImages(t *testing.T) {
	msg := assistantMsg("drawn")
	msg.Images = []types.ContentPart{
		{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:image/png;base64,AAAA"}},
		{Type: "image_url", ImageURL: &types.ImageURL{URL: "https://example.com/x.png"}},
	}

	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{userMsg("draw"), msg}, TranscodeOptions{})

	require.Len(t, tr.Contents, 2)
	parts := tr.Contents[1].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "drawn", *parts[0].Text)
	assert.Equal(t, &InlineData{MimeType: "image/png", Data: "AAAA"}, parts[1].InlineData)
}

func TestTranscode_SignaturePolicy(t *testing.T) {
	clientSig := ptr("client-sig")
	call := toolCall("call_1", "f", "{}")
	call.ThoughtSignature = clientSig
	messages := []types.ChatCompletionRequestMessage{userMsg("go"), assistantMsg("", call)}

	tests := []struct {
		name   string
		policy signature.Policy
		cached string
		want   string
	}{
		{"client signature honored when exposed", signature.Policy{CacheTool: true, ExposeToClient: true}, "cached", "client-sig"},
		{"client signature ignored when hidden", signature.Policy{CacheTool: true}, "cached", "cached"},
		{"disabled category omits signature", signature.Policy{}, "cached", ""},
		{"placeholder when nothing cached", signature.Policy{CacheTool: true, FallbackPlaceholder: true}, "", signature.Placeholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := signature.NewRegistry(tt.policy, 0).Open("c")
			conv.Put(signature.ToolKey("call_1"), tt.cached)

			tr := Transcode(context.Background(), messages, TranscodeOptions{Conversation: conv, Policy: tt.policy})

			assert.Equal(t, tt.want, tr.Contents[1].Parts[0].ThoughtSignature)
		})
	}
}

func TestTranscode_EmptyAssistantKeepsTurn(t *testing.T) {
	tr := Transcode(context.Background(), []types.ChatCompletionRequestMessage{
		userMsg("a"), assistantMsg(""), userMsg("b"),
	}, TranscodeOptions{})

	require.Len(t, tr.Contents, 3)
	assert.Equal(t, roleModel, tr.Contents[1].Role)
	assert.Equal(t, []Part{textPart("")}, tr.Contents[1].Parts)
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name    string
		content types.MessageContent
		want    Extracted
	}{
		{"plain string", types.NewTextContent("hello"), Extracted{Text: "hello"}},
		{"null", types.MessageContent{}, Extracted{}},
		{
			name: "text parts concatenated and images extracted",
			content: types.NewPartsContent(
				types.ContentPart{Type: "text", Text: "a"},
				types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:image/webp;base64,Zm9v"}},
				types.ContentPart{Type: "text", Text: "b"},
			),
			want: Extracted{Text: "ab", Images: []Image{{MimeType: "image/webp", Data: "Zm9v"}}},
		},
		{
			name: "remote and malformed images skipped",
			content: types.NewPartsContent(
				types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: "https://example.com/cat.png"}},
				types.ContentPart{Type: "image_url", ImageURL: &types.ImageURL{URL: "data:text/plain;base64,AAAA"}},
				types.ContentPart{Type: "image_url"},
				types.ContentPart{Type: "input_audio"},
			),
			want: Extracted{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractContent(context.Background(), tt.content))
		})
	}
}
