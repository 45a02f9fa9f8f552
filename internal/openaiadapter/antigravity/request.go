package antigravity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// DefaultUserAgent is the userAgent envelope field sent when none is configured.
const DefaultUserAgent = "antigravity"

// errNoContents is returned when a history consists of system messages only.
var errNoContents = errors.New("messages must contain at least one non-system message")

// builtRequest is an envelope plus what the response path needs to know about it.
type builtRequest struct {
	envelope       *Envelope
	assistantTurns int
}

// BuildRequest assembles the upstream envelope for a client request.
// The conversation supplies cached signatures and is pruned to the entries the history still
// references, so it must belong to this conversation alone. conv may be nil.
func (a *CreateChatCompletionAdapter) BuildRequest(
	ctx context.Context,
	req *openaiadapter.CreateChatCompletionRequest,
	cred credential.Bound,
	conv *signature.Conversation,
) (*Envelope, error) {
	built, err := a.buildRequest(ctx, req, cred, conv, true)
	if err != nil {
		return nil, err
	}
	return built.envelope, nil
}

func (a *CreateChatCompletionAdapter) buildRequest(
	ctx context.Context,
	req *openaiadapter.CreateChatCompletionRequest,
	cred credential.Bound,
	conv *signature.Conversation,
	prune bool,
) (*builtRequest, error) {
	transcript := Transcode(ctx, req.Messages, TranscodeOptions{
		SystemInstruction: a.systemInstruction,
		Conversation:      conv,
		Policy:            a.signatures,
	})
	if len(transcript.Contents) == 0 {
		return nil, openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeInvalidRequest, "", errNoContents.Error())
	}

	// A derived conversation may hold entries of other chats that open the same way. Those
	// are left to the entry bound instead of being pruned here.
	if prune {
		if dropped := conv.Retain(transcript.UsedSignatureKeys); dropped > 0 {
			slog.DebugContext(ctx, "dropped superseded signatures", "conversation_id", conv.ID(), "count", dropped)
		}
	}

	upstreamModel, thinking := a.models.Resolve(req.Model)
	dropTopP := thinking && a.models.TopPIncompatible(upstreamModel)

	env := &Envelope{
		Project:   cred.ProjectID,
		RequestID: "agent-" + uuid.NewString(),
		Model:     upstreamModel,
		UserAgent: a.userAgent,
		Request: Request{
			Contents:          transcript.Contents,
			Tools:             buildTools(ctx, req.Tools),
			ToolConfig:        buildToolConfig(req.ToolChoice),
			GenerationConfig:  BuildGenerationConfig(req, a.generation, thinking, dropTopP),
			SessionID:         cred.SessionID,
			SystemInstruction: transcript.SystemInstruction,
		},
	}

	slog.DebugContext(ctx, "built upstream request",
		"client_model", req.Model,
		"upstream_model", upstreamModel,
		"thinking", thinking,
		"turns", len(env.Request.Contents),
		"tools", len(env.Request.Tools),
	)

	return &builtRequest{envelope: env, assistantTurns: transcript.AssistantTurns}, nil
}
