package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xmap"
	"github.com/looplj/firelive/state"
)

// NodeState follows one node. Its value is nil while the node is absent.
type NodeState[T any] struct {
	*state.State[*T]

	db  Database
	ref Ref
	ok  bool

	mu         sync.Mutex
	optimistic *T
	pending    bool
}

func NewNodeState[T any](ctx context.Context, db Database, path string, opts Options[T]) *NodeState[T] {
	var start **T
	if opts.StartValue != nil {
		start = &opts.StartValue
	}

	db = resolve(ctx, db)
	so := stateOptions(opts, start)
	n := &NodeState[T]{db: db}

	if db == nil {
		n.State = state.Disconnected("NodeState", sdkName, so)
		return n
	}

	ref, err := NodeRef(path)
	if err != nil {
		n.State = state.Connect(ctx, "NodeState", state.Failed[*T](err), so)
		return n
	}

	n.ref = ref
	n.ok = true

	src := state.SourceFunc[*T](func(ctx context.Context, onNext func(*T), onError func(error)) state.Unsubscribe {
		return db.Watch(ctx, ref, func(snap Snapshot) {
			v, err := decodeNode[T](snap)
			if err != nil {
				onError(err)
				return
			}

			n.mu.Lock()
			n.optimistic = nil
			n.pending = false
			n.mu.Unlock()

			onNext(v)
		}, onError)
	})

	n.State = state.Connect(log.WithFields(ctx, log.String("path", ref.String())), "NodeState", src, so)

	return n
}

func decodeNode[T any](snap Snapshot) (*T, error) {
	if !snap.Exists() {
		return nil, nil
	}

	var v T
	if err := json.Unmarshal(snap.Value, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

func (n *NodeState[T]) Ref() Ref { return n.ref }

func (n *NodeState[T]) Key() string { return n.ref.Key }

// Optimistic returns the last written value and whether the listener has
// not echoed it yet.
func (n *NodeState[T]) Optimistic() (*T, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.optimistic, n.pending
}

func (n *NodeState[T]) writable() bool {
	return n.db != nil && n.ok
}

func (n *NodeState[T]) Set(ctx context.Context, value T) error {
	if !n.writable() {
		return nil
	}

	n.mu.Lock()
	n.optimistic = &value
	n.pending = true
	n.mu.Unlock()

	return n.db.Set(ctx, n.ref, value)
}

// Update merges partial into the node one level deep.
func (n *NodeState[T]) Update(ctx context.Context, partial map[string]any) error {
	if !n.writable() {
		return nil
	}

	current, _ := n.Value()

	n.mu.Lock()
	base := current
	if n.pending {
		base = n.optimistic
	}

	merged, err := xmap.MergeShallow(base, partial, Tag)
	if err == nil {
		n.optimistic = merged
		n.pending = true
	}
	n.mu.Unlock()

	if err != nil {
		log.Debug(n.Context(), "optimistic merge failed", log.Cause(err))
	}

	return n.db.Update(ctx, n.ref, partial)
}

func (n *NodeState[T]) Remove(ctx context.Context) error {
	if !n.writable() {
		return nil
	}

	n.mu.Lock()
	n.optimistic = nil
	n.pending = true
	n.mu.Unlock()

	return n.db.Remove(ctx, n.ref)
}
