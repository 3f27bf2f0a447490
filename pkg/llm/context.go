package llm

import "context"

type contextKey string

// RequestIDContextKey carries the id of the request being served. It names
// debug dumps and prefixes log lines.
const RequestIDContextKey contextKey = "request_id"

// WithRequestID returns a copy of ctx tagged with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// RequestIDFrom returns the request id stored in ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
