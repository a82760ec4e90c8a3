package xcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct{}

func TestDetach_SurvivesParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.WithValue(context.Background(), key{}, "v"))

	ctx, cancel := Detach(parent)
	defer cancel()

	cancelParent()
	require.NoError(t, ctx.Err())
	assert.Equal(t, "v", ctx.Value(key{}))

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestDetachWithTimeout(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()

	ctx, cancel := DetachWithTimeout(parent, 20*time.Millisecond)
	defer cancel()

	require.NoError(t, ctx.Err())

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout not applied")
	}

	ctx, cancel = DetachWithTimeout(parent, 0)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.False(t, ok)
}

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestValue(t *testing.T) {
	ctx := context.Background()

	_, ok := Value[greeter](ctx)
	assert.False(t, ok)

	ctx = WithValue[greeter](ctx, english{})
	g, ok := Value[greeter](ctx)
	require.True(t, ok)
	assert.Equal(t, "hello", g.Greet())

	// A different type parameter is a different key.
	_, ok = Value[english](ctx)
	assert.False(t, ok)

	shadowed := WithValue[greeter](ctx, nil)
	g, ok = Value[greeter](shadowed)
	assert.False(t, ok)
	assert.Nil(t, g)
}
