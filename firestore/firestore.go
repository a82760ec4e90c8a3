// Package firestore binds document-store listeners to reactive containers.
//
// A DocState follows one document, a CollectionState follows a query on a
// collection and a CollectionGroupState follows a query across every
// collection with the same id. Each container opens its own listener on the
// Firestore handle it is given; a nil handle yields an inert container.
package firestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/looplj/firelive/internal/pkg/xcontext"
	"github.com/looplj/firelive/state"
)

// Tag is the struct tag used to map document fields onto Go values.
const Tag = "firestore"

const sdkName = "firestore"

// Ref points at a document by its path relative to the database root, for
// example "users/42".
type Ref struct {
	Path string `json:"path" yaml:"path"`
	ID   string `json:"id" yaml:"id"`
}

// Parent returns the path of the collection holding the document.
func (r Ref) Parent() string {
	if i := strings.LastIndexByte(r.Path, '/'); i >= 0 {
		return r.Path[:i]
	}

	return ""
}

func (r Ref) String() string { return r.Path }

// DocRef parses a document path. Document paths have an even number of
// segments.
func DocRef(path string) (Ref, error) {
	segments, err := split(path)
	if err != nil {
		return Ref{}, err
	}

	if len(segments)%2 != 0 {
		return Ref{}, state.NewError(state.CodeInvalidArgument,
			fmt.Sprintf("%q is not a document path", path))
	}

	return Ref{Path: strings.Join(segments, "/"), ID: segments[len(segments)-1]}, nil
}

// CollectionPath validates a collection path, which has an odd number of
// segments, and returns it normalized.
func CollectionPath(path string) (string, error) {
	segments, err := split(path)
	if err != nil {
		return "", err
	}

	if len(segments)%2 != 1 {
		return "", state.NewError(state.CodeInvalidArgument,
			fmt.Sprintf("%q is not a collection path", path))
	}

	return strings.Join(segments, "/"), nil
}

// Child returns the reference of document id inside collection.
func Child(collection, id string) (Ref, error) {
	return DocRef(collection + "/" + id)
}

func split(path string) ([]string, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, s := range segments {
		if s == "" {
			return nil, state.NewError(state.CodeInvalidArgument,
				fmt.Sprintf("%q has an empty segment", path))
		}
	}

	return segments, nil
}

// Document is one document snapshot as delivered by a backend.
type Document struct {
	Ref    Ref
	Exists bool
	Data   map[string]any
}

// Query selects documents from a collection, or from every collection with
// the id Path when Group is set.
type Query struct {
	Path        string
	Group       bool
	Constraints []Constraint
}

// Firestore is the document-store handle. Watch methods deliver snapshots
// until the returned func is called or ctx ends; errors end the listener.
type Firestore interface {
	WatchDoc(ctx context.Context, ref Ref, onNext func(Document), onError func(error)) state.Unsubscribe
	WatchQuery(ctx context.Context, q Query, onNext func([]Document), onError func(error)) state.Unsubscribe

	Get(ctx context.Context, ref Ref) (Document, error)
	Set(ctx context.Context, ref Ref, data any) error
	Update(ctx context.Context, ref Ref, partial map[string]any) error
	Delete(ctx context.Context, ref Ref) error
	Add(ctx context.Context, collection string, data any) (Ref, error)
}

// ErrNoFirestore is returned by one-shot helpers called without a handle.
var ErrNoFirestore = state.NewError(state.CodeMissingFirestore, "no firestore handle provided")

// NewContext returns a copy of ctx carrying Firestore. Adapters built with a nil
// handle look it up with FromContext.
func NewContext(ctx context.Context, h Firestore) context.Context {
	return xcontext.WithValue(ctx, h)
}

// FromContext returns the Firestore carried by ctx, or nil.
func FromContext(ctx context.Context) Firestore {
	h, _ := xcontext.Value[Firestore](ctx)
	return h
}

func resolve(ctx context.Context, h Firestore) Firestore {
	if h != nil {
		return h
	}

	return FromContext(ctx)
}
