package id

import "context"

type contextKey string

const (
	userEmailKey contextKey = "iris_user_email"
	replyToKey   contextKey = "iris_reply_to"
	threadKey    contextKey = "iris_thread_id"
	bodyKey      contextKey = "iris_message_body"
)

// RequestContext captures the identifiers propagated from the message
// boundary into tool execution.
type RequestContext struct {
	UserEmail string
	ReplyTo   string
	ThreadID  string
	Body      string
}

// WithUserEmail stores the authenticated user's email on the context.
func WithUserEmail(ctx context.Context, email string) context.Context {
	if email == "" {
		return ctx
	}
	return context.WithValue(ctx, userEmailKey, email)
}

// WithReplyTo stores the reply address for the current request on the context.
func WithReplyTo(ctx context.Context, replyTo string) context.Context {
	if replyTo == "" {
		return ctx
	}
	return context.WithValue(ctx, replyToKey, replyTo)
}

// WithThreadID stores the conversation thread identifier on the context.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	if threadID == "" {
		return ctx
	}
	return context.WithValue(ctx, threadKey, threadID)
}

// WithMessageBody stores the originating message body on the context so tools
// can record provenance.
func WithMessageBody(ctx context.Context, body string) context.Context {
	if body == "" {
		return ctx
	}
	return context.WithValue(ctx, bodyKey, body)
}

// WithRequest stores any provided request identifiers on the context.
func WithRequest(ctx context.Context, rc RequestContext) context.Context {
	ctx = WithUserEmail(ctx, rc.UserEmail)
	ctx = WithReplyTo(ctx, rc.ReplyTo)
	ctx = WithThreadID(ctx, rc.ThreadID)
	ctx = WithMessageBody(ctx, rc.Body)
	return ctx
}

// UserEmailFromContext extracts the authenticated user's email from context.
func UserEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if email, ok := ctx.Value(userEmailKey).(string); ok {
		return email
	}
	return ""
}

// ReplyToFromContext extracts the reply address from context.
func ReplyToFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if replyTo, ok := ctx.Value(replyToKey).(string); ok {
		return replyTo
	}
	return ""
}

// ThreadIDFromContext extracts the conversation thread identifier from context.
func ThreadIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if threadID, ok := ctx.Value(threadKey).(string); ok {
		return threadID
	}
	return ""
}

// MessageBodyFromContext extracts the originating message body from context.
func MessageBodyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if body, ok := ctx.Value(bodyKey).(string); ok {
		return body
	}
	return ""
}
