package firestore

import "github.com/looplj/firelive/state"

// DefaultIDField receives the document id in collection elements.
const DefaultIDField = "id"

// Options configures a firestore container.
type Options[T any] struct {
	Once        bool
	StartValue  *T
	Log         bool
	ErrorPolicy state.ErrorPolicy
	WatchBuffer int

	// IDField names the field that receives each element's document id.
	// Empty means DefaultIDField; "-" disables injection.
	IDField string

	// RefField names the field that receives each element's Ref. Empty
	// disables injection.
	RefField string

	// StartList is the initial value of collection containers; StartValue
	// is used by DocState.
	StartList []T
}

func (o Options[T]) idField() string {
	switch o.IDField {
	case "":
		return DefaultIDField
	case "-":
		return ""
	default:
		return o.IDField
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
