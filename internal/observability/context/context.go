package context

import "context"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

type documentKey struct{}

// WithDocument tags ctx with the business number (CMD-, FAC-) a request is
// changing, so every log line of the operation can be traced back to it.
func WithDocument(ctx context.Context, numero string) context.Context {
	return context.WithValue(ctx, documentKey{}, numero)
}

func DocumentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(documentKey{}).(string)
	return value
}
