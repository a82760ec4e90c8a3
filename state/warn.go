package state

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

// WarnMode controls missing-handle warnings.
type WarnMode int32

const (
	// WarnAuto warns only when stderr is a terminal.
	WarnAuto WarnMode = iota
	WarnAlways
	WarnNever
)

func (m WarnMode) String() string {
	switch m {
	case WarnAlways:
		return "always"
	case WarnNever:
		return "never"
	default:
		return "auto"
	}
}

func ParseWarnMode(s string) (WarnMode, error) {
	switch s {
	case "", "auto":
		return WarnAuto, nil
	case "always":
		return WarnAlways, nil
	case "never":
		return WarnNever, nil
	default:
		return WarnAuto, fmt.Errorf("unknown warn mode %q", s)
	}
}

var (
	warnMode atomic.Int32

	interactive = sync.OnceValue(func() bool {
		return term.IsTerminal(int(os.Stderr.Fd()))
	})
)

func SetWarnMode(m WarnMode) {
	warnMode.Store(int32(m))
}

func shouldWarn() bool {
	switch WarnMode(warnMode.Load()) {
	case WarnAlways:
		return true
	case WarnNever:
		return false
	default:
		return interactive()
	}
}
