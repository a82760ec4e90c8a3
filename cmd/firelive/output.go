package main

import (
	"bytes"
	"fmt"

	"github.com/andreazorzetto/yh/highlight"
	"github.com/hokaccha/go-prettyjson"
	"gopkg.in/yaml.v3"

	"github.com/looplj/firelive/state"
)

func render(v any, format string) (string, error) {
	switch format {
	case "json":
		b, err := prettyjson.Marshal(v)
		if err != nil {
			return "", err
		}

		return string(b), nil
	case "yml", "yaml", "":
		b, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}

		return highlight.Highlight(bytes.NewBuffer(b))
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// snapshotView is the printed form of a container snapshot.
type snapshotView struct {
	Value   any          `json:"value" yaml:"value"`
	Loading bool         `json:"loading" yaml:"loading"`
	Error   *state.Error `json:"error,omitempty" yaml:"error,omitempty"`
}

func viewOf[T any](snap state.Snapshot[T]) snapshotView {
	v := snapshotView{Loading: snap.Loading, Error: snap.Err}
	if snap.Defined {
		v.Value = snap.Value
	}

	return v
}
