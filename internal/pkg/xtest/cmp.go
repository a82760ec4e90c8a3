// Package xtest holds comparison helpers shared by tests.
package xtest

import (
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Equal compares with empty slices/maps equal to nil and timestamps equal
// within a millisecond, the precision backends round trip.
func Equal(a, b any, opts ...cmp.Option) bool {
	return cmp.Equal(a, b, defaults(opts)...)
}

// Diff reports the difference under the same options as Equal.
func Diff(a, b any, opts ...cmp.Option) string {
	return cmp.Diff(a, b, defaults(opts)...)
}

// IgnoreFields skips the named struct fields of typ.
func IgnoreFields(typ any, names ...string) cmp.Option {
	return cmpopts.IgnoreFields(typ, names...)
}

func defaults(opts []cmp.Option) []cmp.Option {
	return append([]cmp.Option{
		cmpopts.EquateEmpty(),
		cmpopts.EquateApproxTime(time.Millisecond),
	}, opts...)
}
