// Package storage exposes blob reads and uploads as containers: download
// URLs, one level listings and upload tasks with progress.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/looplj/firelive/internal/pkg/xcontext"
	"github.com/looplj/firelive/state"
)

const sdkName = "storage"

// Ref points at an object or a prefix. The zero Ref is the bucket root.
type Ref struct {
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
}

// NewRef normalizes path: leading, trailing and repeated slashes are dropped.
func NewRef(path string) Ref {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return Ref{}
	}

	return Ref{Path: strings.Join(parts, "/"), Name: parts[len(parts)-1]}
}

func (r Ref) String() string { return "/" + r.Path }

func (r Ref) Root() bool { return r.Path == "" }

func (r Ref) Child(path string) Ref {
	if r.Root() {
		return NewRef(path)
	}

	return NewRef(r.Path + "/" + path)
}

func (r Ref) Parent() Ref {
	i := strings.LastIndexByte(r.Path, '/')
	if i < 0 {
		return Ref{}
	}

	return NewRef(r.Path[:i])
}

type ListOptions struct {
	// MaxResults bounds one page. Zero lists everything.
	MaxResults int
	PageToken  string
}

// ListResult is one level of a listing.
type ListResult struct {
	Prefixes      []Ref  `json:"prefixes" yaml:"prefixes"`
	Items         []Ref  `json:"items" yaml:"items"`
	NextPageToken string `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

type Metadata struct {
	ContentType  string
	CacheControl string
	Custom       map[string]string
}

// Storage is the backend used by the containers.
type Storage interface {
	DownloadURL(ctx context.Context, ref Ref) (string, error)
	List(ctx context.Context, ref Ref, opts ListOptions) (ListResult, error)

	// Upload writes r to ref. progress, when not nil, receives the number of
	// bytes written so far.
	Upload(ctx context.Context, ref Ref, r io.Reader, md *Metadata, progress func(int64)) error
}

type Options struct {
	Log         bool
	ErrorPolicy state.ErrorPolicy
	WatchBuffer int

	// ListOptions applies to ListState.
	ListOptions ListOptions
}

func stateOptions[T any](o Options) state.Options[T] {
	return state.Options[T]{
		Log:         o.Log,
		ErrorPolicy: o.ErrorPolicy,
		WatchBuffer: o.WatchBuffer,
	}
}

// NewContext returns a copy of ctx carrying Storage. Adapters built with a nil
// handle look it up with FromContext.
func NewContext(ctx context.Context, h Storage) context.Context {
	return xcontext.WithValue(ctx, h)
}

// FromContext returns the Storage carried by ctx, or nil.
func FromContext(ctx context.Context) Storage {
	h, _ := xcontext.Value[Storage](ctx)
	return h
}

func resolve(ctx context.Context, h Storage) Storage {
	if h != nil {
		return h
	}

	return FromContext(ctx)
}
