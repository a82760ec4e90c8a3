// Package state implements the reactive container shared by every firelive
// adapter: a value with loading and error flags, fed by a push Source and
// observable through callbacks or channels.
package state

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/watcher"
)

// Snapshot is an immutable view of a container.
type Snapshot[T any] struct {
	Value   T
	Defined bool
	Loading bool
	Err     *Error
}

// State is a reactive container. A connected State owns exactly one Source
// subscription; a disconnected State is static.
type State[T any] struct {
	name string
	ctx  context.Context
	opts Options[T]

	// notifyMu serializes change delivery so observers see changes in the
	// order they were applied; mu only guards the fields below.
	notifyMu sync.Mutex
	mu       sync.Mutex

	value   T
	defined bool
	loading bool
	err     *Error

	connected bool
	closed    bool

	// delivering is set while observers run under notifyMu; a Close in that
	// window sets closePending and the delivering goroutine finishes it.
	delivering   bool
	closePending bool

	cancel    context.CancelFunc
	unsub     Unsubscribe
	stopAfter func() bool
	id        string

	nextObserver uint64
	observers    map[uint64]func(Snapshot[T])
	watch        *watcher.Memory[Snapshot[T]]
}

func newState[T any](ctx context.Context, name string, opts Options[T]) *State[T] {
	s := &State[T]{
		name:      name,
		ctx:       ctx,
		opts:      opts,
		observers: map[uint64]func(Snapshot[T]){},
		watch: watcher.NewMemory[Snapshot[T]](watcher.MemoryOptions{
			Buffer: opts.watchBuffer(),
			Replay: true,
		}),
	}

	if opts.StartValue != nil {
		s.value = *opts.StartValue
		s.defined = true
	}

	return s
}

// seed primes the Watch replay slot with the initial snapshot.
func (s *State[T]) seed() {
	_ = s.watch.Notify(s.ctx, s.snapshotLocked())
}

// Disconnected returns a static container for an absent sdk handle. It logs
// a warning when the process is interactive.
func Disconnected[T any](name, sdk string, opts Options[T]) *State[T] {
	s := newState(context.Background(), name, opts)
	s.seed()

	if shouldWarn() {
		log.Warn(s.ctx, "no "+sdk+" provided to "+name+" nor in the context",
			log.String("code", string(MissingSDK(sdk))))
	}

	return s
}

// Connect opens one subscription on src and returns the container fed by it.
// The subscription ends on Close, when ctx is done, or right away when
// opts.Once is set.
func Connect[T any](ctx context.Context, name string, src Source[T], opts Options[T]) *State[T] {
	id := uuid.NewString()
	logCtx := log.WithFields(ctx, log.String("state", name), log.String("subscription_id", id))

	s := newState(logCtx, name, opts)
	s.connected = true
	s.loading = true
	s.id = id
	s.seed()

	subCtx, cancel := context.WithCancel(logCtx)
	s.cancel = cancel

	recordSubscribe(s.ctx, name, 1)

	unsub := src.Subscribe(subCtx, s.onNext, s.onError)

	s.mu.Lock()
	s.unsub = OnceUnsubscribe(unsub)
	s.mu.Unlock()

	if opts.Once {
		s.Close()
		return s
	}

	s.mu.Lock()
	if !s.closed {
		s.stopAfter = context.AfterFunc(ctx, s.Close)
	}
	s.mu.Unlock()

	return s
}

func (s *State[T]) onNext(v T) {
	s.update(func() bool {
		s.value = v
		s.defined = true
		s.loading = !s.opts.settled(v)

		if s.err != nil && s.opts.policy() == ClearOnNext {
			s.err = nil
		}

		return true
	})

	recordPush(s.ctx, s.name)

	if s.opts.Log {
		log.Debug(s.ctx, "state push", log.Any("value", v))
	}
}

func (s *State[T]) onError(err error) {
	se := FromError(err)

	applied := s.update(func() bool {
		if s.err != nil && s.opts.policy() == KeepError {
			changed := s.loading
			s.loading = false

			return changed
		}

		s.err = se
		s.loading = false

		return true
	})

	if !applied {
		return
	}

	recordFailure(s.ctx, s.name, se.Code)
	log.Error(s.ctx, "state subscription failed",
		log.String("code", string(se.Code)), log.Cause(err))
}

// update applies fn while the container is open and notifies observers when
// fn reports a change. It returns false when the container is closed.
func (s *State[T]) update(fn func() bool) bool {
	s.notifyMu.Lock()

	s.mu.Lock()
	if s.closed || s.closePending {
		s.mu.Unlock()
		s.notifyMu.Unlock()

		return false
	}

	changed := fn()
	snap := s.snapshotLocked()
	observers := s.observerList()
	s.delivering = true
	s.mu.Unlock()

	if changed {
		s.deliver(snap, observers)
	}

	s.endDelivery()

	return true
}

// endDelivery releases notifyMu and runs a Close requested while observers
// were running.
func (s *State[T]) endDelivery() {
	s.mu.Lock()
	s.delivering = false
	pending := s.closePending
	s.mu.Unlock()

	s.notifyMu.Unlock()

	if pending {
		s.close()
	}
}

func (s *State[T]) deliver(snap Snapshot[T], observers []func(Snapshot[T])) {
	for _, fn := range observers {
		fn(snap)
	}

	_ = s.watch.Notify(s.ctx, snap)
}

func (s *State[T]) observerList() []func(Snapshot[T]) {
	list := make([]func(Snapshot[T]), 0, len(s.observers))
	for _, id := range slices.Sorted(maps.Keys(s.observers)) {
		list = append(list, s.observers[id])
	}

	return list
}

func (s *State[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{Value: s.value, Defined: s.defined, Loading: s.loading, Err: s.err}
}

// Publish stores a locally derived value and notifies observers. Adapters use
// it for values that do not come from the subscription. It is ignored after
// Close. Observers must not call Publish synchronously.
func (s *State[T]) Publish(v T) {
	s.update(func() bool {
		s.value = v
		s.defined = true

		return true
	})
}

// Subscribe calls fn with the current snapshot and after every change until
// the returned func is called. fn runs synchronously in delivery order. It
// may read the container and Close it, but must not Publish.
func (s *State[T]) Subscribe(fn func(Snapshot[T])) func() {
	s.notifyMu.Lock()

	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	snap := s.snapshotLocked()
	s.delivering = true
	s.mu.Unlock()

	fn(snap)
	s.endDelivery()

	return sync.OnceFunc(func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	})
}

// Watch returns a channel receiving the current snapshot and later changes.
// Slow readers miss intermediate snapshots. The channel is closed by the
// returned stop func or by Close.
func (s *State[T]) Watch() (<-chan Snapshot[T], func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if closed {
		ch := make(chan Snapshot[T], 1)
		ch <- snap
		close(ch)

		return ch, func() {}
	}

	return s.watch.Watch()
}

// Close tears the subscription down and closes every Watch channel. It is
// safe to call more than once and on disconnected containers. Called while
// observers run, from one of them or another goroutine, it takes effect once
// that delivery returns.
func (s *State[T]) Close() {
	s.mu.Lock()

	switch {
	case s.closed:
		s.mu.Unlock()
		return
	case s.delivering:
		s.closePending = true
		s.mu.Unlock()

		return
	}

	s.mu.Unlock()

	s.close()
}

func (s *State[T]) close() {
	s.notifyMu.Lock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.notifyMu.Unlock()

		return
	}

	s.closed = true
	unsub, cancel, stopAfter := s.unsub, s.cancel, s.stopAfter
	wasLoading := s.loading
	s.loading = false
	snap := s.snapshotLocked()
	observers := s.observerList()
	s.mu.Unlock()

	if wasLoading {
		s.deliver(snap, observers)
	}

	watchers := s.watch.Len()
	s.watch.Close()
	s.notifyMu.Unlock()

	// Teardown runs unlocked: a source may block until its in-flight push
	// returns, and that push waits on notifyMu.
	if stopAfter != nil {
		stopAfter()
	}

	if unsub != nil {
		unsub()
	}

	if cancel != nil {
		cancel()
	}

	if s.connected {
		recordSubscribe(s.ctx, s.name, -1)
		log.Debug(s.ctx, "state closed", log.Int("watchers", watchers))
	}
}

func (s *State[T]) Name() string { return s.name }

// SubscriptionID identifies the subscription in log entries. Empty for
// disconnected containers.
func (s *State[T]) SubscriptionID() string { return s.id }

// Context carries the container's log fields.
func (s *State[T]) Context() context.Context { return s.ctx }

// Value returns the current value and whether one was ever set.
func (s *State[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, s.defined
}

// Get returns the current value, or the zero value before the first push.
func (s *State[T]) Get() T {
	v, _ := s.Value()
	return v
}

func (s *State[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

func (s *State[T]) Err() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Connected reports whether the container was built on a live handle.
func (s *State[T]) Connected() bool {
	return s.connected
}

func (s *State[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func (s *State[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}
