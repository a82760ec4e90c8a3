package storage

import (
	"context"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/state"
)

// DownloadURLState resolves a download URL once.
type DownloadURLState struct {
	*state.State[string]

	ref Ref
}

func NewDownloadURLState(ctx context.Context, st Storage, path string, opts Options) *DownloadURLState {
	s := &DownloadURLState{ref: NewRef(path)}
	st = resolve(ctx, st)

	if st == nil {
		s.State = state.Disconnected("DownloadURLState", sdkName, stateOptions[string](opts))
		return s
	}

	src := state.FromFunc(func(ctx context.Context) (string, error) {
		return st.DownloadURL(ctx, s.ref)
	})
	s.State = state.Connect(log.WithFields(ctx, log.String("path", s.ref.String())), "DownloadURLState", src, stateOptions[string](opts))

	return s
}

func (s *DownloadURLState) Ref() Ref { return s.ref }

// URL returns the resolved URL, empty until it is known.
func (s *DownloadURLState) URL() string { return s.Get() }

// ListState lists one level under a prefix once.
type ListState struct {
	*state.State[*ListResult]

	ref Ref
}

func NewListState(ctx context.Context, st Storage, path string, opts Options) *ListState {
	s := &ListState{ref: NewRef(path)}
	st = resolve(ctx, st)

	if st == nil {
		s.State = state.Disconnected("StorageListState", sdkName, stateOptions[*ListResult](opts))
		return s
	}

	src := state.FromFunc(func(ctx context.Context) (*ListResult, error) {
		res, err := st.List(ctx, s.ref, opts.ListOptions)
		if err != nil {
			return nil, err
		}

		return &res, nil
	})
	s.State = state.Connect(log.WithFields(ctx, log.String("path", s.ref.String())), "StorageListState", src, stateOptions[*ListResult](opts))

	return s
}

func (s *ListState) Ref() Ref { return s.ref }
