package state

import (
	"context"
	"sync"
)

// fakeSource records subscriptions and lets tests push values by hand.
type fakeSource[T any] struct {
	mu           sync.Mutex
	subscribed   int
	unsubscribed int
	initial      []T
	onNext       func(T)
	onError      func(error)
	ctx          context.Context
}

func (f *fakeSource[T]) Subscribe(ctx context.Context, onNext func(T), onError func(error)) Unsubscribe {
	f.mu.Lock()
	f.subscribed++
	f.onNext = onNext
	f.onError = onError
	f.ctx = ctx
	initial := f.initial
	f.mu.Unlock()

	for _, v := range initial {
		onNext(v)
	}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.unsubscribed++
	}
}

func (f *fakeSource[T]) push(v T) {
	f.mu.Lock()
	next := f.onNext
	f.mu.Unlock()

	next(v)
}

func (f *fakeSource[T]) fail(err error) {
	f.mu.Lock()
	onError := f.onError
	f.mu.Unlock()

	onError(err)
}

func (f *fakeSource[T]) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.subscribed, f.unsubscribed
}
