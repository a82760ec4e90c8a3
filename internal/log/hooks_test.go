package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFieldsHook(t *testing.T) {
	hook := HookFunc(contextFields)

	t.Run("with subscription field", func(t *testing.T) {
		ctx := WithFields(context.Background(), String("subscription_id", "sub-1"))
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "subscription_id", fields[0].Key)
		assert.Equal(t, "sub-1", fields[0].String)
	})

	t.Run("nested contexts accumulate", func(t *testing.T) {
		ctx := WithFields(context.Background(), String("a", "1"))
		ctx = WithFields(ctx, String("b", "2"))
		fields := hook.Apply(ctx, "test message", String("c", "3"))
		assert.Len(t, fields, 3)
		assert.Equal(t, "c", fields[0].Key)
		assert.Equal(t, "a", fields[1].Key)
		assert.Equal(t, "b", fields[2].Key)
	})

	t.Run("with context that has no fields", func(t *testing.T) {
		fields := hook.Apply(context.Background(), "test message")
		assert.Len(t, fields, 0)
	})

	t.Run("with nil context", func(t *testing.T) {
		//nolint:staticcheck // nil context is tolerated.
		fields := hook.Apply(nil, "test message")
		assert.Len(t, fields, 0)
	})
}

func TestParseLevel(t *testing.T) {
	l := New(Config{Level: "debug"})
	assert.True(t, l.DebugEnabled())

	l.SetLevel("error")
	assert.False(t, l.DebugEnabled())

	l = New(Config{Level: "bogus"})
	assert.False(t, l.DebugEnabled())
}

func TestAddHook(t *testing.T) {
	l := New(Config{Level: "debug"})

	var called bool

	l.AddHook(HookFunc(func(ctx context.Context, msg string, fields ...Field) []Field {
		called = true
		return fields
	}))

	l.Debug(context.Background(), "hello")
	assert.True(t, called)
}
