package firestore

import (
	"context"
	"strings"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xmap"
	"github.com/looplj/firelive/state"
)

// Meta mirrors the first and last element of the latest push.
type Meta[T any] struct {
	First *T
	Last  *T
}

type queryState[T any] struct {
	*state.State[[]T]

	fs    Firestore
	query Query
}

func newQueryState[T any](ctx context.Context, name string, fs Firestore, q Query, pathErr error, opts Options[T]) *queryState[T] {
	var start *[]T
	if opts.StartList != nil {
		start = &opts.StartList
	}

	fs = resolve(ctx, fs)
	so := stateOptions(opts, start)
	qs := &queryState[T]{fs: fs, query: q}

	if fs == nil {
		qs.State = state.Disconnected(name, sdkName, so)
		return qs
	}

	if pathErr != nil {
		qs.State = state.Connect(ctx, name, state.Failed[[]T](pathErr), so)
		return qs
	}

	idField, refField := opts.idField(), opts.RefField

	src := state.SourceFunc[[]T](func(ctx context.Context, onNext func([]T), onError func(error)) state.Unsubscribe {
		return fs.WatchQuery(ctx, q, func(docs []Document) {
			items, err := mapDocs[T](docs, idField, refField)
			if err != nil {
				onError(err)
				return
			}

			onNext(items)
		}, onError)
	})

	qs.State = state.Connect(log.WithFields(ctx, log.String("path", q.Path)), name, src, so)

	return qs
}

func mapDocs[T any](docs []Document, idField, refField string) ([]T, error) {
	items := make([]T, 0, len(docs))

	for _, doc := range docs {
		data := xmap.Inject(doc.Data, idField, doc.Ref.ID)
		data = xmap.Inject(data, refField, doc.Ref)

		item, err := xmap.Decode[T](data, Tag)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *queryState[T]) Query() Query { return s.query }

// Meta returns the first and last element of the current value.
func (s *queryState[T]) Meta() Meta[T] {
	items := s.Get()
	if len(items) == 0 {
		return Meta[T]{}
	}

	return Meta[T]{First: &items[0], Last: &items[len(items)-1]}
}

// CollectionState follows a query on one collection.
type CollectionState[T any] struct {
	*queryState[T]
}

// NewCollectionState listens to the collection at path filtered by
// constraints, applied in order.
func NewCollectionState[T any](ctx context.Context, fs Firestore, path string, constraints []Constraint, opts Options[T]) *CollectionState[T] {
	normalized, err := CollectionPath(path)
	q := Query{Path: normalized, Constraints: constraints}

	return &CollectionState[T]{queryState: newQueryState(ctx, "CollectionState", fs, q, err, opts)}
}

// Add writes value as document id of the collection.
func (c *CollectionState[T]) Add(ctx context.Context, id string, value T) error {
	if c.fs == nil || c.query.Path == "" {
		return nil
	}

	ref, err := Child(c.query.Path, id)
	if err != nil {
		return err
	}

	return c.fs.Set(ctx, ref, value)
}

// Remove deletes document id of the collection.
func (c *CollectionState[T]) Remove(ctx context.Context, id string) error {
	if c.fs == nil || c.query.Path == "" {
		return nil
	}

	ref, err := Child(c.query.Path, id)
	if err != nil {
		return err
	}

	return c.fs.Delete(ctx, ref)
}

// CollectionGroupState follows every collection named collectionID.
type CollectionGroupState[T any] struct {
	*queryState[T]
}

func NewCollectionGroupState[T any](ctx context.Context, fs Firestore, collectionID string, opts Options[T]) *CollectionGroupState[T] {
	var err error
	if collectionID == "" || strings.Contains(collectionID, "/") {
		err = state.NewError(state.CodeInvalidArgument, "collection group id must be a single segment")
	}

	q := Query{Path: collectionID, Group: true}

	return &CollectionGroupState[T]{queryState: newQueryState(ctx, "CollectionGroupState", fs, q, err, opts)}
}
