package watcher

import (
	"context"
	"sync"
)

type MemoryOptions struct {
	// Buffer is the per-subscriber channel capacity. Defaults to 1.
	Buffer int

	// Replay sends the most recent value to new subscribers.
	Replay bool
}

// Memory is an in-process Notifier.
type Memory[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan T
	buffer int

	replay  bool
	last    T
	hasLast bool
}

func NewMemory[T any](opts MemoryOptions) *Memory[T] {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 1
	}

	return &Memory[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
		replay: opts.Replay,
	}
}

func (w *Memory[T]) Watch() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++

	ch := make(chan T, w.buffer)
	if w.replay && w.hasLast {
		ch <- w.last
	}

	w.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()

			if sub, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(sub)
			}
		})
	}
}

func (w *Memory[T]) Notify(_ context.Context, v T) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.replay {
		w.last = v
		w.hasLast = true
	}

	for _, ch := range w.subs {
		select {
		case ch <- v:
		default:
		}
	}

	return nil
}

// Len reports the number of live subscriptions.
func (w *Memory[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.subs)
}

// Close ends every subscription. Later Watch calls still work.
func (w *Memory[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
}
