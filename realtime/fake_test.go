package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/looplj/firelive/internal/pkg/xjson"
	"github.com/looplj/firelive/state"
)

// memDB keeps the whole tree as decoded JSON and pushes the watched subtree
// to every listener after each write.
type memDB struct {
	mu   sync.Mutex
	root map[string]any

	nextID  int
	watches map[int]*memWatch

	opened int
	closed int

	writeErr error
	silent   bool
}

type memWatch struct {
	ref     Ref
	onNext  func(Snapshot)
	onError func(error)
}

func newMemDB() *memDB {
	return &memDB{root: map[string]any{}, watches: map[int]*memWatch{}}
}

// load replaces the node at path with the decoded form of raw JSON.
func (m *memDB) load(path, raw string) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		panic(err)
	}

	m.mu.Lock()
	m.setLocked(path, v)
	m.mu.Unlock()

	m.echo()
}

func segments(path string) []string {
	if path == "" {
		return nil
	}

	return strings.Split(path, "/")
}

func (m *memDB) getLocked(path string) any {
	var node any = m.root

	for _, s := range segments(path) {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}

		node = obj[s]
	}

	return node
}

func (m *memDB) setLocked(path string, v any) {
	segs := segments(path)
	if len(segs) == 0 {
		if obj, ok := v.(map[string]any); ok {
			m.root = obj
		} else {
			m.root = map[string]any{}
		}

		return
	}

	node := m.root
	for _, s := range segs[:len(segs)-1] {
		next, ok := node[s].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[s] = next
		}

		node = next
	}

	last := segs[len(segs)-1]
	if v == nil {
		delete(node, last)
	} else {
		node[last] = v
	}
}

func (m *memDB) snapshot(ref Ref) Snapshot {
	m.mu.Lock()
	v := m.getLocked(ref.Path)
	m.mu.Unlock()

	if v == nil {
		return Snapshot{Ref: ref, Value: xjson.NullJSON}
	}

	return Snapshot{Ref: ref, Value: xjson.MustMarshal(v)}
}

func (m *memDB) Watch(_ context.Context, ref Ref, onNext func(Snapshot), onError func(error)) state.Unsubscribe {
	w := &memWatch{ref: ref, onNext: onNext, onError: onError}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watches[id] = w
	m.opened++
	m.mu.Unlock()

	onNext(m.snapshot(ref))

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.watches[id]; ok {
			delete(m.watches, id)
			m.closed++
		}
	}
}

func (m *memDB) listeners() []*memWatch {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*memWatch, 0, len(m.watches))
	for id := range m.nextID {
		if w, ok := m.watches[id]; ok {
			out = append(out, w)
		}
	}

	return out
}

func (m *memDB) echo() {
	m.mu.Lock()
	silent := m.silent
	m.mu.Unlock()

	if !silent {
		m.broadcast()
	}
}

func (m *memDB) broadcast() {
	for _, w := range m.listeners() {
		w.onNext(m.snapshot(w.ref))
	}
}

func (m *memDB) failAll(err error) {
	for _, w := range m.listeners() {
		w.onError(err)
	}
}

func (m *memDB) Get(_ context.Context, ref Ref) (Snapshot, error) {
	return m.snapshot(ref), nil
}

func (m *memDB) Set(_ context.Context, ref Ref, value any) error {
	if m.writeErr != nil {
		return m.writeErr
	}

	var v any
	if err := json.Unmarshal(xjson.MustMarshal(value), &v); err != nil {
		return err
	}

	m.mu.Lock()
	m.setLocked(ref.Path, v)
	m.mu.Unlock()

	m.echo()

	return nil
}

func (m *memDB) Update(_ context.Context, ref Ref, partial map[string]any) error {
	if m.writeErr != nil {
		return m.writeErr
	}

	m.mu.Lock()
	for k, v := range partial {
		var decoded any
		if err := json.Unmarshal(xjson.MustMarshal(v), &decoded); err != nil {
			m.mu.Unlock()
			return err
		}

		child, _ := ref.Child(k)
		m.setLocked(child.Path, decoded)
	}
	m.mu.Unlock()

	m.echo()

	return nil
}

func (m *memDB) Remove(_ context.Context, ref Ref) error {
	if m.writeErr != nil {
		return m.writeErr
	}

	m.mu.Lock()
	m.setLocked(ref.Path, nil)
	m.mu.Unlock()

	m.echo()

	return nil
}

func (m *memDB) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.opened, m.closed
}
