// Package afs implements storage.Storage on an afero filesystem: a local
// directory, memory, or an S3 bucket through afero-s3.
package afs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"

	"github.com/spf13/afero"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/state"
	"github.com/looplj/firelive/storage"
)

type Backend struct {
	fs      afero.Fs
	baseURL string
}

// New builds a Backend on afs. Download URLs are baseURL joined with the
// object path; an empty baseURL produces file URLs.
func New(afs afero.Fs, baseURL string) *Backend {
	return &Backend{fs: afs, baseURL: baseURL}
}

func name(ref storage.Ref) string {
	return "/" + ref.Path
}

func (b *Backend) DownloadURL(_ context.Context, ref storage.Ref) (string, error) {
	info, err := b.fs.Stat(name(ref))
	if err != nil {
		return "", wrap(err)
	}

	if info.IsDir() {
		return "", state.NewError(state.CodeInvalidArgument, ref.String()+" is a prefix")
	}

	if b.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: name(ref)}).String(), nil
	}

	return url.JoinPath(b.baseURL, ref.Path)
}

// List reads one directory. Every page carries all prefixes; page tokens
// are the last returned item name.
func (b *Backend) List(_ context.Context, ref storage.Ref, opts storage.ListOptions) (storage.ListResult, error) {
	entries, err := afero.ReadDir(b.fs, name(ref))
	if err != nil {
		return storage.ListResult{}, wrap(err)
	}

	var res storage.ListResult

	for _, e := range entries {
		child := ref.Child(e.Name())

		if e.IsDir() {
			res.Prefixes = append(res.Prefixes, child)
			continue
		}

		if opts.PageToken != "" && e.Name() <= opts.PageToken {
			continue
		}

		if opts.MaxResults > 0 && len(res.Items) == opts.MaxResults {
			res.NextPageToken = res.Items[len(res.Items)-1].Name
			continue
		}

		res.Items = append(res.Items, child)
	}

	return res, nil
}

func (b *Backend) Upload(ctx context.Context, ref storage.Ref, r io.Reader, md *storage.Metadata, progress func(int64)) error {
	if ref.Root() {
		return state.NewError(state.CodeInvalidArgument, "cannot upload to the bucket root")
	}

	if err := b.fs.MkdirAll(path.Dir(name(ref)), 0o755); err != nil {
		return wrap(err)
	}

	f, err := b.fs.Create(name(ref))
	if err != nil {
		return wrap(err)
	}

	_, err = io.Copy(&progressWriter{ctx: ctx, w: f, progress: progress}, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		if rerr := b.fs.Remove(name(ref)); rerr != nil {
			log.Warn(ctx, "partial upload not removed", log.String("path", ref.String()), log.Cause(rerr))
		}

		return wrap(err)
	}

	if md != nil && md.ContentType != "" {
		log.Debug(ctx, "metadata is not stored by the filesystem backend", log.String("content_type", md.ContentType))
	}

	return nil
}

type progressWriter struct {
	ctx      context.Context
	w        io.Writer
	n        int64
	progress func(int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := p.w.Write(b)
	p.n += int64(n)

	if p.progress != nil && n > 0 {
		p.progress(p.n)
	}

	return n, err
}

func wrap(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return state.WrapError(state.CodeNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return state.WrapError(state.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return state.WrapError(state.CodeCancelled, err)
	default:
		return state.WrapError(state.CodeUnknown, fmt.Errorf("filesystem: %w", err))
	}
}

var _ storage.Storage = (*Backend)(nil)
