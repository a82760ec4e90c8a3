package firestore

import (
	"context"

	"github.com/looplj/firelive/internal/pkg/xmap"
)

// Get reads the document at path once, with its id under "id". It returns
// nil when the document does not exist.
func Get[T any](ctx context.Context, fs Firestore, path string) (*T, error) {
	if fs = resolve(ctx, fs); fs == nil {
		return nil, ErrNoFirestore
	}

	ref, err := DocRef(path)
	if err != nil {
		return nil, err
	}

	doc, err := fs.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !doc.Exists {
		return nil, nil
	}

	v, err := xmap.Decode[T](xmap.Inject(doc.Data, DefaultIDField, doc.Ref.ID), Tag)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// AddOnline creates a document with a generated id in collection.
func AddOnline(ctx context.Context, fs Firestore, collection string, data any) (Ref, error) {
	if fs = resolve(ctx, fs); fs == nil {
		return Ref{}, ErrNoFirestore
	}

	path, err := CollectionPath(collection)
	if err != nil {
		return Ref{}, err
	}

	return fs.Add(ctx, path, data)
}

// SetOnline updates the document when it exists and creates it otherwise.
func SetOnline(ctx context.Context, fs Firestore, path string, data any) error {
	if fs = resolve(ctx, fs); fs == nil {
		return ErrNoFirestore
	}

	ref, err := DocRef(path)
	if err != nil {
		return err
	}

	doc, err := fs.Get(ctx, ref)
	if err != nil {
		return err
	}

	if !doc.Exists {
		return fs.Set(ctx, ref, data)
	}

	partial, err := xmap.ToMap(data, Tag)
	if err != nil {
		return err
	}

	return fs.Update(ctx, ref, partial)
}

func UpdateOnline(ctx context.Context, fs Firestore, path string, partial map[string]any) error {
	if fs = resolve(ctx, fs); fs == nil {
		return ErrNoFirestore
	}

	ref, err := DocRef(path)
	if err != nil {
		return err
	}

	return fs.Update(ctx, ref, partial)
}

func DeleteOnline(ctx context.Context, fs Firestore, path string) error {
	if fs = resolve(ctx, fs); fs == nil {
		return ErrNoFirestore
	}

	ref, err := DocRef(path)
	if err != nil {
		return err
	}

	return fs.Delete(ctx, ref)
}
