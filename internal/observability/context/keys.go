package context

import "context"

type contextKey uint8

const (
	requestIDKey contextKey = iota
	providerKey
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithProvider tags ctx with the payment provider a webhook came from.
func WithProvider(ctx context.Context, provider string) context.Context {
	return withString(ctx, providerKey, provider)
}

func ProviderFromContext(ctx context.Context) string {
	return stringValue(ctx, providerKey)
}
