package reqctx

import "context"

type ctxKey string

const (
	keyRequestID ctxKey = "request_id"
	keyActor     ctxKey = "actor"
)

// WithRequestID stores the correlation id of the current request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID returns the correlation id if present.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithActor stores who is acting: an employee uid or "customer".
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, keyActor, actor)
}

func Actor(ctx context.Context) string {
	v, _ := ctx.Value(keyActor).(string)
	return v
}
