package state

import (
	"context"
	"sync"
)

// Unsubscribe tears down a subscription. Implementations must tolerate
// repeated calls.
type Unsubscribe func()

// Source is a push subscription. onNext and onError may be called from any
// goroutine, including synchronously inside Subscribe, but never
// concurrently with each other for the same subscription.
type Source[T any] interface {
	Subscribe(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe

func (f SourceFunc[T]) Subscribe(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe {
	return f(ctx, onNext, onError)
}

// FromFunc wraps a one-shot call as a Source delivering a single value or
// error. The call runs on its own goroutine; unsubscribing cancels its
// context.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Source[T] {
	return SourceFunc[T](func(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe {
		ctx, cancel := context.WithCancel(ctx)

		go func() {
			defer cancel()

			v, err := fn(ctx)
			if err != nil {
				onError(err)
				return
			}

			onNext(v)
		}()

		return Unsubscribe(cancel)
	})
}

// Map transforms every value pushed by src.
func Map[S, T any](src Source[S], fn func(S) (T, error)) Source[T] {
	return SourceFunc[T](func(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe {
		return src.Subscribe(ctx, func(s S) {
			t, err := fn(s)
			if err != nil {
				onError(err)
				return
			}

			onNext(t)
		}, onError)
	})
}

// OnceUnsubscribe makes fn safe to call more than once.
func OnceUnsubscribe(fn func()) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	return Unsubscribe(sync.OnceFunc(fn))
}

// Failed is a Source that reports err as soon as it is subscribed.
func Failed[T any](err error) Source[T] {
	return SourceFunc[T](func(_ context.Context, _ func(T), onError func(error)) Unsubscribe {
		onError(err)
		return func() {}
	})
}
