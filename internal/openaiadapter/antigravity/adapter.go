package antigravity

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/florianilch/gravity-proxy/internal/credential"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter"
	"github.com/florianilch/gravity-proxy/internal/openaiadapter/types"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// Config configures the adapter.
type Config struct {
	BaseURL           string
	UserAgent         string
	SystemInstruction string
	Generation        GenerationDefaults

	// Models is the model policy. Nil selects the embedded default table.
	Models *ModelPolicy
}

// CreateChatCompletionAdapter adapts OpenAI chat completions to the Antigravity upstream.
// It is safe for concurrent use.
type CreateChatCompletionAdapter struct {
	baseURL           string
	userAgent         string
	systemInstruction string
	generation        GenerationDefaults
	models            *ModelPolicy

	registry   *signature.Registry
	signatures signature.Policy
}

// Compile-time check to ensure CreateChatCompletionAdapter implements the adapter interface
var _ openaiadapter.CreateChatCompletionAdapter = (*CreateChatCompletionAdapter)(nil)

// NewCreateChatCompletionAdapter creates an adapter. A nil registry disables signature caching
// across requests; signatures supplied by clients are still honored if the policy exposes them.
func NewCreateChatCompletionAdapter(cfg Config, registry *signature.Registry) *CreateChatCompletionAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Models == nil {
		cfg.Models = NewModelPolicy(DefaultModelTable())
	}

	a := &CreateChatCompletionAdapter{
		baseURL:           cfg.BaseURL,
		userAgent:         cfg.UserAgent,
		systemInstruction: cfg.SystemInstruction,
		generation:        cfg.Generation,
		models:            cfg.Models,
		registry:          registry,
	}
	if registry != nil {
		a.signatures = registry.Policy()
	}
	return a
}

// ProcessRequest performs a buffered chat completion.
func (a *CreateChatCompletionAdapter) ProcessRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	cred credential.Bound,
	transport http.RoundTripper,
) (*openaiadapter.CreateChatCompletionResponse, error) {
	conv, named := a.conversation(ctx, &clientReq)

	built, err := a.buildRequest(ctx, &clientReq, cred, conv, named)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	c, err := newClient(a.baseURL, a.userAgent, transport)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	body, err := c.generate(ctx, built.envelope, cred)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	state := &responseState{turn: built.assistantTurns, policy: a.signatures}
	resp, err := toChatCompletionResponse(body, state, clientReq.Model, time.Now().Unix())
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	if n := state.commit(conv); n > 0 {
		slog.DebugContext(ctx, "cached signatures", "conversation_id", conv.ID(), "count", n)
	}
	return resp, nil
}

// ProcessStreamingRequest performs a streaming chat completion.
// Breaking out of the returned iterator closes the upstream stream without committing
// signatures of the unfinished response.
func (a *CreateChatCompletionAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	cred credential.Bound,
	transport http.RoundTripper,
) (iter.Seq2[*openaiadapter.CreateChatCompletionChunk, error], error) {
	conv, named := a.conversation(ctx, &clientReq)

	built, err := a.buildRequest(ctx, &clientReq, cred, conv, named)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	c, err := newClient(a.baseURL, a.userAgent, transport)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	body, err := c.stream(ctx, built.envelope, cred)
	if err != nil {
		return nil, toChatCompletionError(err)
	}

	translator := newStreamTranslator(conv, a.signatures, built.assistantTurns, clientReq.Model, time.Now().Unix())

	return func(yield func(*types.CreateChatCompletionStreamResponse, error) bool) {
		defer body.Close()

		for payload, err := range sseData(body) {
			if err != nil {
				if ctx.Err() != nil {
					// Client went away; nothing left to report to.
					return
				}
				yield(nil, toChatCompletionError(err))
				return
			}

			chunks, err := translator.translate(payload)
			if err != nil {
				yield(nil, toChatCompletionError(err))
				return
			}
			for _, chunk := range chunks {
				if !yield(chunk, nil) {
					return
				}
			}
			if translator.finished {
				return
			}
		}

		if !translator.finished && ctx.Err() == nil {
			slog.WarnContext(ctx, "upstream stream ended without finish reason", "conversation_id", conv.ID())
		}
	}, nil
}

// conversation opens the signature conversation for a request. The id comes from the
// request context, or is derived from the conversation's first user message and system
// prompt, which stay the same for every turn of a conversation. named reports whether the
// client supplied the id; a derived id may be shared by unrelated chats that open alike.
func (a *CreateChatCompletionAdapter) conversation(ctx context.Context, req *openaiadapter.CreateChatCompletionRequest) (conv *signature.Conversation, named bool) {
	if a.registry == nil {
		return nil, false
	}

	id := openaiadapter.ConversationIDFromContext(ctx)
	if id != "" {
		return a.registry.Open(id), true
	}
	return a.registry.Open(fingerprintConversation(ctx, req)), false
}

func fingerprintConversation(ctx context.Context, req *openaiadapter.CreateChatCompletionRequest) string {
	var user, system, firstUser string
	if req.User != nil {
		user = *req.User
	}
	for _, msg := range req.Messages {
		if isSystemRole(msg.Role) && system == "" {
			system = ExtractContent(ctx, msg.Content).Text
		}
		if msg.Role == types.RoleUser {
			firstUser = ExtractContent(ctx, msg.Content).Text
			break
		}
	}
	if firstUser == "" {
		return ""
	}
	return signature.Fingerprint(user, system, firstUser)
}
