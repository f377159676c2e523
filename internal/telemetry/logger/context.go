package logger

import "context"

type contextKey struct{}

// WithConnID adds a connection ID to the context. Loggers built by New
// attach it as conn_id to records logged with that context.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ConnIDFromContext extracts the connection ID from context.
func ConnIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
