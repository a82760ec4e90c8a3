package state

import (
	"fmt"
	"sync/atomic"
)

// ErrorPolicy decides whether a successful push clears a stored error.
type ErrorPolicy int

const (
	// ErrorPolicyDefault resolves to the process default set by Configure.
	ErrorPolicyDefault ErrorPolicy = iota
	// KeepError leaves the first failure in place until Close.
	KeepError
	// ClearOnNext clears the error on the next successful push.
	ClearOnNext
)

func (p ErrorPolicy) String() string {
	switch p {
	case KeepError:
		return "keep"
	case ClearOnNext:
		return "clear_on_next"
	default:
		return "default"
	}
}

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", "default":
		return ErrorPolicyDefault, nil
	case "keep":
		return KeepError, nil
	case "clear_on_next":
		return ClearOnNext, nil
	default:
		return ErrorPolicyDefault, fmt.Errorf("unknown error policy %q", s)
	}
}

// Options configures a container.
type Options[T any] struct {
	// Once detaches right after subscribing, keeping only values delivered
	// synchronously by the source.
	Once bool

	// StartValue is the value before the first push, and the permanent value
	// of a disconnected container.
	StartValue *T

	// Log emits a debug entry per push.
	Log bool

	ErrorPolicy ErrorPolicy

	// WatchBuffer is the channel capacity for Watch. Zero uses the process
	// default.
	WatchBuffer int

	// Settled reports whether a pushed value ends loading. Nil means every
	// push does.
	Settled func(T) bool
}

// Config holds process-wide defaults, usually loaded from the state section
// of the configuration file.
type Config struct {
	ErrorPolicy           string `conf:"error_policy" yaml:"error_policy" json:"error_policy"`
	MissingHandleWarnings string `conf:"missing_handle_warnings" yaml:"missing_handle_warnings" json:"missing_handle_warnings"`
	WatchBuffer           int    `conf:"watch_buffer" yaml:"watch_buffer" json:"watch_buffer"`
}

func DefaultConfig() Config {
	return Config{
		ErrorPolicy:           KeepError.String(),
		MissingHandleWarnings: WarnAuto.String(),
		WatchBuffer:           16,
	}
}

var (
	defaultPolicy      atomic.Int64
	defaultWatchBuffer atomic.Int64
)

//nolint:gochecknoinits // process defaults.
func init() {
	defaultPolicy.Store(int64(KeepError))
	defaultWatchBuffer.Store(16)
}

// Configure applies cfg to containers constructed afterwards.
func Configure(cfg Config) error {
	policy, err := ParseErrorPolicy(cfg.ErrorPolicy)
	if err != nil {
		return err
	}

	mode, err := ParseWarnMode(cfg.MissingHandleWarnings)
	if err != nil {
		return err
	}

	if policy == ErrorPolicyDefault {
		policy = KeepError
	}

	defaultPolicy.Store(int64(policy))
	SetWarnMode(mode)

	if cfg.WatchBuffer > 0 {
		defaultWatchBuffer.Store(int64(cfg.WatchBuffer))
	}

	return nil
}

func (o Options[T]) policy() ErrorPolicy {
	if o.ErrorPolicy == ErrorPolicyDefault {
		return ErrorPolicy(defaultPolicy.Load())
	}

	return o.ErrorPolicy
}

func (o Options[T]) settled(v T) bool {
	return o.Settled == nil || o.Settled(v)
}

func (o Options[T]) watchBuffer() int {
	if o.WatchBuffer > 0 {
		return o.WatchBuffer
	}

	return int(defaultWatchBuffer.Load())
}
