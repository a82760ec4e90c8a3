package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/firelive/internal/pkg/xredis"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
	}

	var zero T

	return zero
}

func TestMemory_BroadcastAndStop(t *testing.T) {
	w := NewMemory[int](MemoryOptions{Buffer: 1})

	ch1, stop1 := w.Watch()
	ch2, stop2 := w.Watch()

	defer stop2()

	require.Equal(t, 2, w.Len())
	require.NoError(t, w.Notify(context.Background(), 42))

	assert.Equal(t, 42, receive(t, ch1))
	assert.Equal(t, 42, receive(t, ch2))

	stop1()
	stop1()

	_, ok := <-ch1
	assert.False(t, ok)
	assert.Equal(t, 1, w.Len())
}

func TestMemory_DropsWhenFull(t *testing.T) {
	w := NewMemory[int](MemoryOptions{Buffer: 1})

	ch, stop := w.Watch()
	defer stop()

	require.NoError(t, w.Notify(context.Background(), 1))
	require.NoError(t, w.Notify(context.Background(), 2))

	assert.Equal(t, 1, receive(t, ch))

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestMemory_Replay(t *testing.T) {
	w := NewMemory[string](MemoryOptions{Replay: true})

	require.NoError(t, w.Notify(context.Background(), "first"))
	require.NoError(t, w.Notify(context.Background(), "second"))

	ch, stop := w.Watch()
	defer stop()

	assert.Equal(t, "second", receive(t, ch))
}

func TestMemory_Close(t *testing.T) {
	w := NewMemory[int](MemoryOptions{})

	ch, stop := w.Watch()
	w.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// stop after Close must not panic.
	stop()
	assert.Equal(t, 0, w.Len())
}

func TestRedis_BroadcastAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	w1, err := NewRedis[string](client, RedisOptions{Channel: "firelive:test", Buffer: 1})
	require.NoError(t, err)
	w2, err := NewRedis[string](client, RedisOptions{Channel: "firelive:test", Buffer: 1})
	require.NoError(t, err)

	ch1, stop1 := w1.Watch()
	ch2, stop2 := w2.Watch()

	defer stop1()
	defer stop2()

	require.NoError(t, w1.Notify(context.Background(), "users/42"))

	assert.Equal(t, "users/42", receive(t, ch1))
	assert.Equal(t, "users/42", receive(t, ch2))
}

func TestRedis_RequiresChannel(t *testing.T) {
	_, err := NewRedis[int](nil, RedisOptions{Channel: "x"})
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	_, err = NewRedis[int](client, RedisOptions{})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	n, err := New[int](context.Background(), Config{}, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory[int]{}, n)

	_, err = New[int](context.Background(), Config{Mode: "bogus"}, "")
	assert.Error(t, err)

	_, err = New[int](context.Background(), Config{Mode: ModeRedis}, "")
	assert.Error(t, err)

	mr := miniredis.RunT(t)

	n, err = New[int](context.Background(), Config{
		Mode:  ModeRedis,
		Redis: xredis.Config{Addr: mr.Addr(), ChannelPrefix: "firelive:"},
	}, "auth")
	require.NoError(t, err)
	assert.IsType(t, &Redis[int]{}, n)
}
