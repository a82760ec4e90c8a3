package firestore

import (
	"context"
	"sync"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xmap"
	"github.com/looplj/firelive/state"
)

// DocState follows a single document. Its value is nil while the document
// does not exist.
type DocState[T any] struct {
	*state.State[*T]

	fs  Firestore
	ref Ref

	mu         sync.Mutex
	id         string
	optimistic *T
	pending    bool
}

// NewDocState opens a listener on the document at path.
func NewDocState[T any](ctx context.Context, fs Firestore, path string, opts Options[T]) *DocState[T] {
	var start **T
	if opts.StartValue != nil {
		start = &opts.StartValue
	}

	fs = resolve(ctx, fs)
	so := stateOptions(opts, start)
	d := &DocState[T]{fs: fs}

	if fs == nil {
		d.State = state.Disconnected("DocState", sdkName, so)
		return d
	}

	ref, err := DocRef(path)
	if err != nil {
		d.State = state.Connect(ctx, "DocState", state.Failed[*T](err), so)
		return d
	}

	d.ref = ref
	d.id = ref.ID

	src := state.SourceFunc[*T](func(ctx context.Context, onNext func(*T), onError func(error)) state.Unsubscribe {
		return fs.WatchDoc(ctx, ref, func(doc Document) {
			v, err := decodeDoc[T](doc)
			if err != nil {
				onError(err)
				return
			}

			d.mu.Lock()
			d.id = doc.Ref.ID
			d.optimistic = nil
			d.pending = false
			d.mu.Unlock()

			onNext(v)
		}, onError)
	})

	d.State = state.Connect(log.WithFields(ctx, log.String("path", ref.Path)), "DocState", src, so)

	return d
}

func decodeDoc[T any](doc Document) (*T, error) {
	if !doc.Exists {
		return nil, nil
	}

	v, err := xmap.Decode[T](doc.Data, Tag)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func (d *DocState[T]) Ref() Ref { return d.ref }

// ID is the id of the last delivered document.
func (d *DocState[T]) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.id
}

// Optimistic returns the value of the last write issued through this
// container and whether it is still waiting for the listener to echo it. A
// pending delete reports (nil, true).
func (d *DocState[T]) Optimistic() (*T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.optimistic, d.pending
}

func (d *DocState[T]) writable() bool {
	return d.fs != nil && d.ref.Path != ""
}

// Set replaces the document. The optimistic value is recorded before the
// write is issued and is not rolled back on failure.
func (d *DocState[T]) Set(ctx context.Context, value T) error {
	if !d.writable() {
		return nil
	}

	d.mu.Lock()
	d.optimistic = &value
	d.pending = true
	d.mu.Unlock()

	return d.fs.Set(ctx, d.ref, value)
}

// Update merges partial into the document one level deep.
func (d *DocState[T]) Update(ctx context.Context, partial map[string]any) error {
	if !d.writable() {
		return nil
	}

	current, _ := d.Value()

	d.mu.Lock()
	base := current
	if d.pending {
		base = d.optimistic
	}

	merged, err := xmap.MergeShallow(base, partial, Tag)
	if err == nil {
		d.optimistic = merged
		d.pending = true
	}
	d.mu.Unlock()

	if err != nil {
		log.Debug(d.Context(), "optimistic merge failed", log.Cause(err))
	}

	return d.fs.Update(ctx, d.ref, partial)
}

// Delete removes the document.
func (d *DocState[T]) Delete(ctx context.Context) error {
	if !d.writable() {
		return nil
	}

	d.mu.Lock()
	d.optimistic = nil
	d.pending = true
	d.mu.Unlock()

	return d.fs.Delete(ctx, d.ref)
}
