// Package xjson holds small helpers around encoding/json raw messages.
package xjson

import (
	"bytes"
	"encoding/json"
)

var (
	NullJSON       = json.RawMessage("null")
	EmptyJSON      = json.RawMessage("{}")
	EmptyArrayJSON = json.RawMessage("[]")
)

// Kind is the JSON type of a raw message.
type Kind int

const (
	KindNull Kind = iota
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

// KindOf inspects the first significant byte of raw. Empty input is null.
func KindOf(raw json.RawMessage) Kind {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return KindNull
	}

	switch trimmed[0] {
	case '{':
		return KindObject
	case '[':
		return KindArray
	case '"':
		return KindString
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	default:
		return KindNumber
	}
}

func IsNull(raw json.RawMessage) bool {
	return KindOf(raw) == KindNull
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}

func MustMarshalString(v any) string {
	return string(MustMarshal(v))
}
