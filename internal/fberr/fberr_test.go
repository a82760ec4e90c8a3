package fberr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/firelive/state"
)

func TestCode_NonFirebase(t *testing.T) {
	assert.Equal(t, state.CodeUnknown, Code(errors.New("boom")))
	assert.Equal(t, state.CodeCancelled, Code(context.Canceled))
	assert.Equal(t, state.CodeNotFound, Code(state.NewError(state.CodeNotFound, "x")))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil))

	cause := errors.New("boom")
	err := Wrap(cause)

	var se *state.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, state.CodeUnknown, se.Code)
	assert.ErrorIs(t, err, cause)
}

func TestWrap_KeepsStateError(t *testing.T) {
	se := state.NewError(state.CodeNotFound, "gone")
	assert.Same(t, se, Wrap(se))
}
