// Package gcs implements storage.Storage on a Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xcache"
	"github.com/looplj/firelive/state"
	fstorage "github.com/looplj/firelive/storage"
)

type Config struct {
	// SignedURLTTL is the lifetime of download URLs.
	SignedURLTTL time.Duration `conf:"signed_url_ttl" yaml:"signed_url_ttl" json:"signed_url_ttl"`

	// GoogleAccessID is the signing service account. Empty uses the
	// credentials of the client.
	GoogleAccessID string `conf:"google_access_id" yaml:"google_access_id" json:"google_access_id"`
}

type Backend struct {
	bucket *storage.BucketHandle
	cfg    Config
	urls   xcache.Cache[string]
}

// New builds a Backend. urls caches signed URLs; nil disables caching.
func New(bucket *storage.BucketHandle, cfg Config, urls xcache.Cache[string]) *Backend {
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = time.Hour
	}

	if urls == nil {
		urls = xcache.NewNoop[string]()
	}

	return &Backend{bucket: bucket, cfg: cfg, urls: urls}
}

// DownloadURL returns a V4 signed GET URL. URLs are cached for half their
// lifetime.
func (b *Backend) DownloadURL(ctx context.Context, ref fstorage.Ref) (string, error) {
	if url, err := b.urls.Get(ctx, ref.Path); err == nil && url != "" {
		return url, nil
	}

	if _, err := b.bucket.Object(ref.Path).Attrs(ctx); err != nil {
		return "", wrap(err)
	}

	url, err := b.bucket.SignedURL(ref.Path, &storage.SignedURLOptions{
		GoogleAccessID: b.cfg.GoogleAccessID,
		Method:         http.MethodGet,
		Expires:        time.Now().Add(b.cfg.SignedURLTTL),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", ref.Path, err)
	}

	if err := b.urls.Set(ctx, ref.Path, url, xcache.WithExpiration(b.cfg.SignedURLTTL/2)); err != nil {
		log.Debug(ctx, "signed url not cached", log.String("path", ref.Path), log.Cause(err))
	}

	return url, nil
}

// List lists one level under ref, using "/" as the delimiter.
func (b *Backend) List(ctx context.Context, ref fstorage.Ref, opts fstorage.ListOptions) (fstorage.ListResult, error) {
	q := &storage.Query{Delimiter: "/"}
	if !ref.Root() {
		q.Prefix = ref.Path + "/"
	}

	if err := q.SetAttrSelection([]string{"Name", "Prefix"}); err != nil {
		return fstorage.ListResult{}, err
	}

	it := b.bucket.Objects(ctx, q)

	var (
		res   fstorage.ListResult
		attrs []*storage.ObjectAttrs
	)

	if opts.MaxResults > 0 {
		next, err := iterator.NewPager(it, opts.MaxResults, opts.PageToken).NextPage(&attrs)
		if err != nil {
			return fstorage.ListResult{}, wrap(err)
		}

		res.NextPageToken = next
	} else {
		for {
			a, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}

			if err != nil {
				return fstorage.ListResult{}, wrap(err)
			}

			attrs = append(attrs, a)
		}
	}

	for _, a := range attrs {
		if a.Prefix != "" {
			res.Prefixes = append(res.Prefixes, fstorage.NewRef(strings.TrimSuffix(a.Prefix, "/")))
			continue
		}

		res.Items = append(res.Items, fstorage.NewRef(a.Name))
	}

	return res, nil
}

func (b *Backend) Upload(ctx context.Context, ref fstorage.Ref, r io.Reader, md *fstorage.Metadata, progress func(int64)) error {
	w := b.bucket.Object(ref.Path).NewWriter(ctx)
	w.ProgressFunc = progress

	if md != nil {
		w.ContentType = md.ContentType
		w.CacheControl = md.CacheControl
		w.Metadata = md.Custom
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return wrap(err)
	}

	if err := w.Close(); err != nil {
		return wrap(err)
	}

	_ = b.urls.Delete(ctx, ref.Path)

	return nil
}

var httpCodes = map[int]state.Code{
	http.StatusBadRequest:      state.CodeInvalidArgument,
	http.StatusUnauthorized:    "unauthenticated",
	http.StatusForbidden:       state.CodePermissionDenied,
	http.StatusNotFound:        state.CodeNotFound,
	http.StatusConflict:        "aborted",
	http.StatusTooManyRequests: "resource-exhausted",
}

func wrap(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return state.WrapError(state.CodeNotFound, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if code, ok := httpCodes[gerr.Code]; ok {
			return state.WrapError(code, err)
		}
	}

	return state.FromError(err)
}

var _ fstorage.Storage = (*Backend)(nil)
