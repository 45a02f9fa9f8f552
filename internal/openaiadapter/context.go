package openaiadapter

import "context"

type conversationIDKey struct{}

// WithConversationID attaches a client-supplied conversation id to ctx.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationIDKey{}, id)
}

// ConversationIDFromContext returns the conversation id attached to ctx, or "".
func ConversationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(conversationIDKey{}).(string)
	return id
}
