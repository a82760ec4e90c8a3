package realtime

import "github.com/looplj/firelive/state"

// DefaultKeyField receives each child's key in list elements.
const DefaultKeyField = "key"

type Options[T any] struct {
	Once        bool
	StartValue  *T
	Log         bool
	ErrorPolicy state.ErrorPolicy
	WatchBuffer int

	// KeyField names the field that receives the child key in list
	// elements. Empty means DefaultKeyField; "-" disables injection.
	KeyField string

	// StartList is the initial value of NodeListState.
	StartList []T
}

func (o Options[T]) keyField() string {
	switch o.KeyField {
	case "":
		return DefaultKeyField
	case "-":
		return ""
	default:
		return o.KeyField
	}
}

func stateOptions[T, V any](o Options[T], start *V) state.Options[V] {
	return state.Options[V]{
		Once:        o.Once,
		StartValue:  start,
		Log:         o.Log,
		ErrorPolicy: o.ErrorPolicy,
		WatchBuffer: o.WatchBuffer,
	}
}
