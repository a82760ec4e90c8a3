package xjson

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
)

// Compares json.RawMessage by decoded value rather than bytes.
var rawMessageComparer = cmp.Comparer(func(x, y json.RawMessage) bool {
	if len(x) == 0 && len(y) == 0 {
		return true
	}

	if len(x) == 0 || len(y) == 0 {
		return false
	}

	var xVal, yVal any
	if err := json.Unmarshal(x, &xVal); err != nil {
		return false
	}

	if err := json.Unmarshal(y, &yVal); err != nil {
		return false
	}

	return cmp.Equal(xVal, yVal)
})

// Equal reports semantic equality; json.RawMessage values anywhere in a and b
// are compared by content, ignoring key order and whitespace.
func Equal(a, b any) bool {
	return cmp.Equal(a, b, rawMessageComparer)
}
