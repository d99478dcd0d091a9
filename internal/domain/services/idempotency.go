package services

import (
	"context"

	"github.com/google/uuid"
)

type idempotencyKeyCtx struct{}

// WithIdempotencyKey returns a context whose writes use key as their nonce.
// Re-submitting a call with the same key and payload resolves to the
// action the first attempt wrote. Keys are scoped to the caller.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKey returns the key set by WithIdempotencyKey, if any.
func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

// writeNonce returns the idempotency key of ctx, or a fresh one so that
// every unkeyed call is a distinct write.
func writeNonce(ctx context.Context) string {
	if key := IdempotencyKey(ctx); key != "" {
		return key
	}
	return uuid.NewString()
}
