package realtime

import (
	"context"
	"encoding/json"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xjson"
	"github.com/looplj/firelive/state"
)

// NodeListState follows the children of a node as an ordered list.
type NodeListState[T any] struct {
	*state.State[[]T]

	db  Database
	ref Ref
}

func NewNodeListState[T any](ctx context.Context, db Database, path string, opts Options[T]) *NodeListState[T] {
	var start *[]T
	if opts.StartList != nil {
		start = &opts.StartList
	}

	db = resolve(ctx, db)
	so := stateOptions(opts, start)
	l := &NodeListState[T]{db: db}

	if db == nil {
		l.State = state.Disconnected("NodeListState", sdkName, so)
		return l
	}

	ref, err := NodeRef(path)
	if err != nil {
		l.State = state.Connect(ctx, "NodeListState", state.Failed[[]T](err), so)
		return l
	}

	l.ref = ref
	keyField := opts.keyField()

	src := state.SourceFunc[[]T](func(ctx context.Context, onNext func([]T), onError func(error)) state.Unsubscribe {
		return db.Watch(ctx, ref, func(snap Snapshot) {
			items, err := decodeChildren[T](snap.Value, keyField)
			if err != nil {
				onError(err)
				return
			}

			onNext(items)
		}, onError)
	})

	l.State = state.Connect(log.WithFields(ctx, log.String("path", ref.String())), "NodeListState", src, so)

	return l
}

func (l *NodeListState[T]) Ref() Ref { return l.ref }

// decodeChildren turns every child into {keyField: key, ...fields}. Children
// that are not objects contribute only their key.
func decodeChildren[T any](raw json.RawMessage, keyField string) ([]T, error) {
	children, err := Children(raw)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(children))

	for _, child := range children {
		fields := map[string]json.RawMessage{}

		if xjson.KindOf(child.Value) == xjson.KindObject {
			if err := json.Unmarshal(child.Value, &fields); err != nil {
				return nil, err
			}
		}

		if keyField != "" {
			fields[keyField] = xjson.MustMarshal(child.Key)
		}

		b, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}

		var item T
		if err := json.Unmarshal(b, &item); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}
