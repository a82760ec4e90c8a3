// Package xcontext holds context helpers: detached contexts for work that
// must outlive its caller, and values keyed by their type.
package xcontext

import (
	"context"
	"time"
)

// Detach keeps the values of ctx but not its deadline or cancellation. The
// returned cancel func is the only way to stop the derived context.
func Detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(ctx))
}

// DetachWithTimeout is Detach bounded by timeout. A zero timeout means no
// bound.
func DetachWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return Detach(ctx)
	}

	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

type valueKey[T any] struct{}

// WithValue stores v under the key of its type T. A nil v shadows any value
// stored by a parent context.
func WithValue[T any](ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, valueKey[T]{}, v)
}

// Value returns the T stored in ctx. ok is false when nothing, or nil, is
// stored.
func Value[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(valueKey[T]{}).(T)
	return v, ok
}
