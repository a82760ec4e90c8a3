// Package gcp implements firestore.Firestore on the Cloud Firestore client.
package gcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	fs "github.com/looplj/firelive/firestore"
	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/state"
)

// Backend adapts a *firestore.Client.
type Backend struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Backend {
	return &Backend{client: client}
}

func (b *Backend) Client() *firestore.Client { return b.client }

// WatchDoc streams snapshots of ref on a goroutine until the returned func
// is called or ctx ends.
func (b *Backend) WatchDoc(ctx context.Context, ref fs.Ref, onNext func(fs.Document), onError func(error)) state.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	it := b.client.Doc(ref.Path).Snapshots(ctx)

	go func() {
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				report(ctx, err, onError)
				return
			}

			onNext(document(snap))
		}
	}()

	return state.Unsubscribe(cancel)
}

// WatchQuery streams query results on a goroutine until the returned func
// is called or ctx ends.
func (b *Backend) WatchQuery(ctx context.Context, q fs.Query, onNext func([]fs.Document), onError func(error)) state.Unsubscribe {
	query, err := b.query(q)
	if err != nil {
		onError(err)
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	it := query.Snapshots(ctx)

	go func() {
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				report(ctx, err, onError)
				return
			}

			snaps, err := qs.Documents.GetAll()
			if err != nil {
				report(ctx, err, onError)
				return
			}

			docs := make([]fs.Document, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, document(snap))
			}

			onNext(docs)
		}
	}()

	return state.Unsubscribe(cancel)
}

// report forwards err unless it was caused by our own cancellation.
func report(ctx context.Context, err error, onError func(error)) {
	if ctx.Err() != nil || status.Code(err) == codes.Canceled {
		log.Debug(ctx, "firestore listener stopped", log.Cause(err))
		return
	}

	onError(err)
}

func (b *Backend) query(q fs.Query) (firestore.Query, error) {
	var query firestore.Query
	if q.Group {
		query = b.client.CollectionGroup(q.Path).Query
	} else {
		query = b.client.Collection(q.Path).Query
	}

	for _, c := range q.Constraints {
		switch c.Kind {
		case fs.KindWhere:
			query = query.Where(c.Field, c.Op, c.Value)
		case fs.KindOrderBy:
			dir := firestore.Asc
			if c.Direction == fs.Desc {
				dir = firestore.Desc
			}

			query = query.OrderBy(c.Field, dir)
		case fs.KindLimit:
			query = query.Limit(c.N)
		case fs.KindLimitToLast:
			query = query.LimitToLast(c.N)
		case fs.KindStartAt:
			query = query.StartAt(c.Values...)
		case fs.KindStartAfter:
			query = query.StartAfter(c.Values...)
		case fs.KindEndAt:
			query = query.EndAt(c.Values...)
		case fs.KindEndBefore:
			query = query.EndBefore(c.Values...)
		default:
			return query, fmt.Errorf("unsupported constraint %s", c.Kind)
		}
	}

	return query, nil
}

func (b *Backend) Get(ctx context.Context, ref fs.Ref) (fs.Document, error) {
	snap, err := b.client.Doc(ref.Path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fs.Document{Ref: ref}, nil
		}

		return fs.Document{}, fmt.Errorf("get %s: %w", ref.Path, err)
	}

	return document(snap), nil
}

func (b *Backend) Set(ctx context.Context, ref fs.Ref, data any) error {
	_, err := b.client.Doc(ref.Path).Set(ctx, data)
	return err
}

// Update writes each top-level key of partial as a single field path, so
// keys containing dots are not split.
func (b *Backend) Update(ctx context.Context, ref fs.Ref, partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}

	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: partial[k]})
	}

	_, err := b.client.Doc(ref.Path).Update(ctx, updates)

	return err
}

func (b *Backend) Delete(ctx context.Context, ref fs.Ref) error {
	_, err := b.client.Doc(ref.Path).Delete(ctx)
	return err
}

func (b *Backend) Add(ctx context.Context, collection string, data any) (fs.Ref, error) {
	doc, _, err := b.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return fs.Ref{}, err
	}

	return ref(doc), nil
}

func document(snap *firestore.DocumentSnapshot) fs.Document {
	doc := fs.Document{Ref: ref(snap.Ref), Exists: snap.Exists()}
	if doc.Exists {
		doc.Data = snap.Data()
	}

	return doc
}

// ref converts a client reference, whose Path is the full resource name, to
// a path relative to the database root.
func ref(doc *firestore.DocumentRef) fs.Ref {
	if doc == nil {
		return fs.Ref{}
	}

	return fs.Ref{Path: RelativePath(doc.Path), ID: doc.ID}
}

const documentsMarker = "/documents/"

// RelativePath strips "projects/<p>/databases/<d>/documents/" from a
// resource name. Paths without the prefix are returned unchanged.
func RelativePath(name string) string {
	if _, rest, ok := strings.Cut(name, documentsMarker); ok {
		return rest
	}

	return name
}

var _ fs.Firestore = (*Backend)(nil)
