// Package fberr maps Firebase Admin SDK errors onto container error codes.
package fberr

import (
	"errors"

	"firebase.google.com/go/v4/errorutils"

	"github.com/looplj/firelive/state"
)

var checks = []struct {
	is   func(error) bool
	code state.Code
}{
	{errorutils.IsPermissionDenied, state.CodePermissionDenied},
	{errorutils.IsUnauthenticated, "unauthenticated"},
	{errorutils.IsNotFound, state.CodeNotFound},
	{errorutils.IsInvalidArgument, state.CodeInvalidArgument},
	{errorutils.IsAlreadyExists, "already-exists"},
	{errorutils.IsConflict, "aborted"},
	{errorutils.IsAborted, "aborted"},
	{errorutils.IsFailedPrecondition, "failed-precondition"},
	{errorutils.IsOutOfRange, "out-of-range"},
	{errorutils.IsResourceExhausted, "resource-exhausted"},
	{errorutils.IsCancelled, state.CodeCancelled},
	{errorutils.IsDeadlineExceeded, state.CodeDeadlineExceeded},
	{errorutils.IsUnavailable, "unavailable"},
	{errorutils.IsDataLoss, "data-loss"},
	{errorutils.IsInternal, "internal"},
}

// Code classifies err. Errors that are not Firebase errors, or carry an
// unknown code, fall back to state.FromError.
func Code(err error) state.Code {
	for _, c := range checks {
		if c.is(err) {
			return c.code
		}
	}

	return state.FromError(err).Code
}

// Wrap returns err as a *state.Error carrying its Firebase code. nil stays
// nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	var se *state.Error
	if errors.As(err, &se) {
		return err
	}

	return state.WrapError(Code(err), err)
}
