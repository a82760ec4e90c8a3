package remoteconfig

import (
	"context"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/state"
)

type Options struct {
	Log         bool
	ErrorPolicy state.ErrorPolicy
	WatchBuffer int
}

func stateOptions[T any](opts Options) state.Options[T] {
	return state.Options[T]{
		Log:         opts.Log,
		ErrorPolicy: opts.ErrorPolicy,
		WatchBuffer: opts.WatchBuffer,
	}
}

// fetch reads once through read. An unsupported runtime yields nil.
func fetch[T any](rc RemoteConfig, read func(ctx context.Context) (T, error)) state.Source[*T] {
	return state.FromFunc(func(ctx context.Context) (*T, error) {
		ok, err := rc.Supported(ctx)
		if err != nil {
			return nil, err
		}

		if !ok {
			log.Debug(ctx, "remote config is not supported")
			return nil, nil
		}

		v, err := read(ctx)
		if err != nil {
			return nil, err
		}

		return &v, nil
	})
}

// connect reads the parameter key and converts it with as.
func connect[T any](ctx context.Context, name string, rc RemoteConfig, key string, opts Options, as func(Value) T) *state.State[*T] {
	so := stateOptions[*T](opts)

	if rc = resolve(ctx, rc); rc == nil {
		return state.Disconnected(name, sdkName, so)
	}

	values := fetch(rc, func(ctx context.Context) (Value, error) {
		return rc.Value(ctx, key)
	})

	src := state.Map(values, func(v *Value) (*T, error) {
		if v == nil {
			return nil, nil
		}

		t := as(*v)

		return &t, nil
	})

	return state.Connect(ctx, name, src, so)
}

// ActivationState fetches and activates the latest config. Its value is true
// once activation finished.
type ActivationState struct {
	*state.State[*bool]
}

func NewActivationState(ctx context.Context, rc RemoteConfig, opts Options) *ActivationState {
	so := stateOptions[*bool](opts)

	if rc = resolve(ctx, rc); rc == nil {
		return &ActivationState{State: state.Disconnected("RemoteConfigActivation", sdkName, so)}
	}

	src := fetch(rc, func(ctx context.Context) (bool, error) {
		if _, err := rc.FetchAndActivate(ctx); err != nil {
			return false, err
		}

		return true, nil
	})

	return &ActivationState{State: state.Connect(ctx, "RemoteConfigActivation", src, so)}
}

// Active reports whether activation finished.
func (s *ActivationState) Active() bool {
	v := s.Get()
	return v != nil && *v
}

type keyed struct {
	key string
}

func (k keyed) Key() string { return k.key }

// ValueState holds the raw value of one parameter together with its source.
type ValueState struct {
	*state.State[*Value]
	keyed
}

func NewValueState(ctx context.Context, rc RemoteConfig, key string, opts Options) *ValueState {
	return &ValueState{
		State: connect(ctx, "RemoteConfigValue", rc, key, opts, func(v Value) Value { return v }),
		keyed: keyed{key: key},
	}
}

type BooleanState struct {
	*state.State[*bool]
	keyed
}

func NewBooleanState(ctx context.Context, rc RemoteConfig, key string, opts Options) *BooleanState {
	return &BooleanState{
		State: connect(ctx, "RemoteConfigBoolean", rc, key, opts, Value.Bool),
		keyed: keyed{key: key},
	}
}

type NumberState struct {
	*state.State[*float64]
	keyed
}

func NewNumberState(ctx context.Context, rc RemoteConfig, key string, opts Options) *NumberState {
	return &NumberState{
		State: connect(ctx, "RemoteConfigNumber", rc, key, opts, Value.Number),
		keyed: keyed{key: key},
	}
}

type StringState struct {
	*state.State[*string]
	keyed
}

func NewStringState(ctx context.Context, rc RemoteConfig, key string, opts Options) *StringState {
	return &StringState{
		State: connect(ctx, "RemoteConfigString", rc, key, opts, Value.String),
		keyed: keyed{key: key},
	}
}
