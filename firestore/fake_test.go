package firestore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/looplj/firelive/internal/pkg/xmap"
	"github.com/looplj/firelive/state"
)

// memFirestore is an in-memory Firestore. Listeners receive the current
// snapshot on subscribe and again after every write; pushes can also be
// injected with pushDoc and failAll.
type memFirestore struct {
	mu   sync.Mutex
	docs map[string]map[string]any

	nextID  int
	autoID  int
	watches map[int]*memWatch

	opened int
	closed int

	writeErr error
	queries  []Query

	// skipInitial suppresses the snapshot delivered on subscribe.
	skipInitial bool
	// silent stops writes from echoing to listeners.
	silent bool
}

type memWatch struct {
	path    string
	query   *Query
	onDoc   func(Document)
	onDocs  func([]Document)
	onError func(error)
}

func newMemFirestore() *memFirestore {
	return &memFirestore{docs: map[string]map[string]any{}, watches: map[int]*memWatch{}}
}

func (m *memFirestore) put(path string, data map[string]any) {
	m.mu.Lock()
	m.docs[path] = data
	m.mu.Unlock()

	m.echo()
}

func (m *memFirestore) WatchDoc(_ context.Context, ref Ref, onNext func(Document), onError func(error)) state.Unsubscribe {
	return m.watch(&memWatch{path: ref.Path, onDoc: onNext, onError: onError})
}

func (m *memFirestore) WatchQuery(_ context.Context, q Query, onNext func([]Document), onError func(error)) state.Unsubscribe {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	return m.watch(&memWatch{query: &q, onDocs: onNext, onError: onError})
}

func (m *memFirestore) watch(w *memWatch) state.Unsubscribe {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watches[id] = w
	m.opened++
	skip := m.skipInitial
	m.mu.Unlock()

	if !skip {
		m.deliver(w)
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.watches[id]; ok {
			delete(m.watches, id)
			m.closed++
		}
	}
}

func (m *memFirestore) deliver(w *memWatch) {
	if w.onDoc != nil {
		w.onDoc(m.document(w.path))
		return
	}

	w.onDocs(m.collection(*w.query))
}

func (m *memFirestore) echo() {
	m.mu.Lock()
	silent := m.silent
	m.mu.Unlock()

	if !silent {
		m.broadcast()
	}
}

func (m *memFirestore) broadcast() {
	m.mu.Lock()
	watches := make([]*memWatch, 0, len(m.watches))
	for id := range m.nextID {
		if w, ok := m.watches[id]; ok {
			watches = append(watches, w)
		}
	}
	m.mu.Unlock()

	for _, w := range watches {
		m.deliver(w)
	}
}

func (m *memFirestore) failAll(err error) {
	m.mu.Lock()
	watches := make([]*memWatch, 0, len(m.watches))
	for _, w := range m.watches {
		watches = append(watches, w)
	}
	m.mu.Unlock()

	for _, w := range watches {
		w.onError(err)
	}
}

func (m *memFirestore) document(path string) Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, _ := DocRef(path)

	data, ok := m.docs[path]
	if !ok {
		return Document{Ref: ref}
	}

	return Document{Ref: ref, Exists: true, Data: maps.Clone(data)}
}

// collection returns documents whose parent is q.Path, sorted by path.
// Constraints are recorded but not evaluated.
func (m *memFirestore) collection(q Query) []Document {
	m.mu.Lock()
	paths := make([]string, 0, len(m.docs))
	for path := range m.docs {
		ref, _ := DocRef(path)

		parent := ref.Parent()
		if q.Group {
			if i := strings.LastIndexByte(parent, '/'); i >= 0 {
				parent = parent[i+1:]
			}
		}

		if parent == q.Path {
			paths = append(paths, path)
		}
	}
	m.mu.Unlock()

	slices.Sort(paths)

	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		docs = append(docs, m.document(path))
	}

	return docs
}

func (m *memFirestore) Get(_ context.Context, ref Ref) (Document, error) {
	return m.document(ref.Path), nil
}

func (m *memFirestore) Set(_ context.Context, ref Ref, data any) error {
	if err := m.err(); err != nil {
		return err
	}

	fields, err := xmap.ToMap(data, Tag)
	if err != nil {
		return err
	}

	m.put(ref.Path, fields)

	return nil
}

func (m *memFirestore) Update(_ context.Context, ref Ref, partial map[string]any) error {
	if err := m.err(); err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok := m.docs[ref.Path]
	if !ok {
		m.mu.Unlock()
		return state.NewError(state.CodeNotFound, "no document to update")
	}

	merged := maps.Clone(doc)
	maps.Copy(merged, partial)
	m.docs[ref.Path] = merged
	m.mu.Unlock()

	m.echo()

	return nil
}

func (m *memFirestore) Delete(_ context.Context, ref Ref) error {
	if err := m.err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.docs, ref.Path)
	m.mu.Unlock()

	m.echo()

	return nil
}

func (m *memFirestore) Add(ctx context.Context, collection string, data any) (Ref, error) {
	m.mu.Lock()
	m.autoID++
	id := fmt.Sprintf("auto%d", m.autoID)
	m.mu.Unlock()

	ref, err := Child(collection, id)
	if err != nil {
		return Ref{}, err
	}

	return ref, m.Set(ctx, ref, data)
}

func (m *memFirestore) err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writeErr
}

func (m *memFirestore) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.opened, m.closed
}

