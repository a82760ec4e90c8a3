package fbdb

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/firelive/internal/pkg/xjson"
	"github.com/looplj/firelive/realtime"
	"github.com/looplj/firelive/state"
)

type fakeClient struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
	err    error
	reads  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]json.RawMessage{}}
}

func (c *fakeClient) Node(path string) Node {
	return &fakeNode{c: c, path: path}
}

func (c *fakeClient) put(path, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[path] = json.RawMessage(raw)
}

func (c *fakeClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = err
}

type fakeNode struct {
	c    *fakeClient
	path string
}

func (n *fakeNode) Get(_ context.Context, v any) error {
	n.c.mu.Lock()
	defer n.c.mu.Unlock()

	n.c.reads++
	if n.c.err != nil {
		return n.c.err
	}

	raw, ok := n.c.values[n.path]
	if !ok {
		raw = xjson.NullJSON
	}

	return json.Unmarshal(raw, v)
}

func (n *fakeNode) Set(_ context.Context, v any) error {
	n.c.put(n.path, xjson.MustMarshalString(v))
	return nil
}

func (n *fakeNode) Update(_ context.Context, v map[string]any) error {
	n.c.mu.Lock()
	defer n.c.mu.Unlock()

	current := map[string]any{}
	if raw, ok := n.c.values[n.path]; ok {
		_ = json.Unmarshal(raw, &current)
	}

	for k, val := range v {
		current[k] = val
	}

	n.c.values[n.path] = xjson.MustMarshal(current)

	return nil
}

func (n *fakeNode) Delete(context.Context) error {
	n.c.mu.Lock()
	defer n.c.mu.Unlock()

	delete(n.c.values, n.path)

	return nil
}

type recorder struct {
	mu     sync.Mutex
	values []string
	errs   []error
}

func (r *recorder) next(s realtime.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = append(r.values, string(s.Value))
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.values...), append([]error(nil), r.errs...)
}

func TestWatch_InitialAndWrites(t *testing.T) {
	client := newFakeClient()
	client.put("users/42", `{"name":"Ann"}`)

	b := New(client, Config{PollInterval: time.Hour, Debounce: 10 * time.Millisecond}, nil)
	ref, _ := realtime.NodeRef("users/42")

	rec := &recorder{}
	stop := b.Watch(context.Background(), ref, rec.next, rec.fail)
	defer stop()

	assert.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Update(context.Background(), ref, map[string]any{"name": "Ann2"}))

	assert.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 2 && values[1] == `{"name":"Ann2"}`
	}, time.Second, 5*time.Millisecond)

	// Writing the same value again does not push.
	require.NoError(t, b.Set(context.Background(), ref, map[string]any{"name": "Ann2"}))
	time.Sleep(50 * time.Millisecond)

	values, _ := rec.snapshot()
	assert.Len(t, values, 2)
}

func TestWatch_ParentWriteReloadsChild(t *testing.T) {
	client := newFakeClient()
	b := New(client, Config{PollInterval: time.Hour, Debounce: 10 * time.Millisecond}, nil)

	child, _ := realtime.NodeRef("rooms/1/title")
	parent, _ := realtime.NodeRef("rooms/1")

	rec := &recorder{}
	stop := b.Watch(context.Background(), child, rec.next, rec.fail)
	defer stop()

	assert.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 1 && values[0] == "null"
	}, time.Second, 5*time.Millisecond)

	client.put("rooms/1/title", `"hello"`)
	require.NoError(t, b.Update(context.Background(), parent, map[string]any{"unrelated": true}))

	assert.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 2 && values[1] == `"hello"`
	}, time.Second, 5*time.Millisecond)
}

func TestWatch_PollsAndReportsFailureOnce(t *testing.T) {
	client := newFakeClient()
	client.put("flags", `{"dark":true}`)

	b := New(client, Config{PollInterval: 10 * time.Millisecond, Debounce: time.Millisecond}, nil)
	ref, _ := realtime.NodeRef("flags")

	rec := &recorder{}
	stop := b.Watch(context.Background(), ref, rec.next, rec.fail)
	defer stop()

	assert.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 1
	}, time.Second, 5*time.Millisecond)

	client.fail(errors.New("unavailable"))
	time.Sleep(60 * time.Millisecond)

	_, errs := rec.snapshot()
	require.Len(t, errs, 1)

	var se *state.Error
	assert.ErrorAs(t, errs[0], &se)

	client.fail(nil)
	client.put("flags", `{"dark":false}`)

	assert.Eventually(t, func() bool {
		values, _ := rec.snapshot()
		return len(values) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatch_StopEndsPolling(t *testing.T) {
	client := newFakeClient()
	b := New(client, Config{PollInterval: 5 * time.Millisecond}, nil)
	ref, _ := realtime.NodeRef("x")

	stop := b.Watch(context.Background(), ref, func(realtime.Snapshot) {}, func(error) {})
	time.Sleep(20 * time.Millisecond)
	stop()
	stop()

	client.mu.Lock()
	reads := client.reads
	client.mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	client.mu.Lock()
	defer client.mu.Unlock()

	assert.LessOrEqual(t, client.reads, reads+1)
}

func TestWithNodeState(t *testing.T) {
	client := newFakeClient()
	client.put("users/42", `{"name":"Ann"}`)

	b := New(client, Config{PollInterval: time.Hour, Debounce: 5 * time.Millisecond}, nil)

	type profile struct {
		Name string `json:"name"`
	}

	s := realtime.NewNodeState[profile](context.Background(), b, "users/42", realtime.Options[profile]{})
	defer s.Close()

	assert.Eventually(t, func() bool { return !s.Loading() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Ann", s.Get().Name)

	require.NoError(t, s.Set(context.Background(), profile{Name: "Bob"}))

	assert.Eventually(t, func() bool {
		v := s.Get()
		return v != nil && v.Name == "Bob"
	}, time.Second, 5*time.Millisecond)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps("", "users/1"))
	assert.True(t, Overlaps("users/1", "users/1"))
	assert.True(t, Overlaps("users", "users/1"))
	assert.True(t, Overlaps("users/1/name", "users/1"))
	assert.False(t, Overlaps("users/10", "users/1"))
	assert.False(t, Overlaps("teams", "users"))
}

func TestNew_Defaults(t *testing.T) {
	b := New(newFakeClient(), Config{}, nil)
	assert.Equal(t, DefaultConfig(), b.cfg)
	assert.NotNil(t, b.events)
}
