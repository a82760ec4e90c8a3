// Package realtime binds key-value node listeners to reactive containers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/looplj/firelive/internal/pkg/xcontext"
	"github.com/looplj/firelive/internal/pkg/xjson"
	"github.com/looplj/firelive/state"
)

// Tag maps node fields onto Go values.
const Tag = "json"

const sdkName = "realtimedb"

// Ref points at a node. The root has an empty Path and Key.
type Ref struct {
	Path string `json:"path" yaml:"path"`
	Key  string `json:"key" yaml:"key"`
}

func (r Ref) String() string { return "/" + r.Path }

// Child returns the reference of key below r.
func (r Ref) Child(key string) (Ref, error) {
	if r.Path == "" {
		return NodeRef(key)
	}

	return NodeRef(r.Path + "/" + key)
}

// NodeRef parses a node path such as "rooms/1/messages".
func NodeRef(path string) (Ref, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Ref{}, nil
	}

	segments := strings.Split(trimmed, "/")
	for _, s := range segments {
		if s == "" || strings.ContainsAny(s, ".$#[]") {
			return Ref{}, state.NewError(state.CodeInvalidArgument, fmt.Sprintf("invalid node path %q", path))
		}
	}

	return Ref{Path: trimmed, Key: segments[len(segments)-1]}, nil
}

// Snapshot is the value of a node. A null Value means the node is absent.
type Snapshot struct {
	Ref   Ref
	Value json.RawMessage
}

func (s Snapshot) Exists() bool { return !xjson.IsNull(s.Value) }

// Database is the key-value store handle.
type Database interface {
	Watch(ctx context.Context, ref Ref, onNext func(Snapshot), onError func(error)) state.Unsubscribe

	Get(ctx context.Context, ref Ref) (Snapshot, error)
	Set(ctx context.Context, ref Ref, value any) error
	Update(ctx context.Context, ref Ref, partial map[string]any) error
	Remove(ctx context.Context, ref Ref) error
}

// Child is one entry below a node.
type Child struct {
	Key   string
	Value json.RawMessage
}

// Children splits an object or array value into its entries, in key order:
// integer keys first by value, then the rest lexicographically. Null
// entries are skipped and primitives have no children.
func Children(raw json.RawMessage) ([]Child, error) {
	var children []Child

	switch xjson.KindOf(raw) {
	case xjson.KindObject:
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}

		for k, v := range m {
			if !xjson.IsNull(v) {
				children = append(children, Child{Key: k, Value: v})
			}
		}
	case xjson.KindArray:
		var a []json.RawMessage
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}

		for i, v := range a {
			if !xjson.IsNull(v) {
				children = append(children, Child{Key: strconv.Itoa(i), Value: v})
			}
		}
	default:
		return nil, nil
	}

	slices.SortFunc(children, func(a, b Child) int { return CompareKeys(a.Key, b.Key) })

	return children, nil
}

// CompareKeys orders keys like the database does.
func CompareKeys(a, b string) int {
	ai, aok := intKey(a)
	bi, bok := intKey(b)

	switch {
	case aok && bok:
		return compare(ai, bi)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func intKey(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || strconv.FormatInt(n, 10) != s {
		return 0, false
	}

	return n, true
}

func compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NewContext returns a copy of ctx carrying Database. Adapters built with a nil
// handle look it up with FromContext.
func NewContext(ctx context.Context, h Database) context.Context {
	return xcontext.WithValue(ctx, h)
}

// FromContext returns the Database carried by ctx, or nil.
func FromContext(ctx context.Context) Database {
	h, _ := xcontext.Value[Database](ctx)
	return h
}

func resolve(ctx context.Context, h Database) Database {
	if h != nil {
		return h
	}

	return FromContext(ctx)
}
