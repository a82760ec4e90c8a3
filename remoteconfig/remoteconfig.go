// Package remoteconfig exposes Remote Config activation and parameter values
// as containers. Every container performs a single read; runtimes without
// Remote Config support produce an absent (nil) value without an error.
package remoteconfig

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/looplj/firelive/internal/pkg/xcontext"
)

const sdkName = "remoteconfig"

// ValueSource tells where a parameter value came from.
type ValueSource string

const (
	// SourceStatic is the type default: the key has no default and no
	// remote value.
	SourceStatic  ValueSource = "static"
	SourceDefault ValueSource = "default"
	SourceRemote  ValueSource = "remote"
)

// Value is a raw parameter value.
type Value struct {
	Raw    string      `json:"raw" yaml:"raw"`
	Source ValueSource `json:"source" yaml:"source"`
}

var truthy = []string{"1", "true", "t", "yes", "y", "on"}

// Bool reports whether the value is one of the accepted truthy spellings.
func (v Value) Bool() bool {
	return lo.Contains(truthy, strings.ToLower(strings.TrimSpace(v.Raw)))
}

// Number parses the value as a float. Unparseable values are 0.
func (v Value) Number() float64 {
	return cast.ToFloat64(strings.TrimSpace(v.Raw))
}

func (v Value) String() string { return v.Raw }

// RemoteConfig is the backend used by the containers.
type RemoteConfig interface {
	// Supported reports whether Remote Config can run in this process.
	Supported(ctx context.Context) (bool, error)

	// FetchAndActivate fetches the latest template and makes it the active
	// one. It reports whether the active config changed.
	FetchAndActivate(ctx context.Context) (bool, error)

	// Value returns a parameter from the active config.
	Value(ctx context.Context, key string) (Value, error)
}

// NewContext returns a copy of ctx carrying RemoteConfig. Adapters built with a nil
// handle look it up with FromContext.
func NewContext(ctx context.Context, h RemoteConfig) context.Context {
	return xcontext.WithValue(ctx, h)
}

// FromContext returns the RemoteConfig carried by ctx, or nil.
func FromContext(ctx context.Context) RemoteConfig {
	h, _ := xcontext.Value[RemoteConfig](ctx)
	return h
}

func resolve(ctx context.Context, h RemoteConfig) RemoteConfig {
	if h != nil {
		return h
	}

	return FromContext(ctx)
}
