package storage

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/looplj/firelive/state"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]*Metadata

	err error

	// block makes uploads wait for the context after the first chunk.
	block bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, meta: map[string]*Metadata{}}
}

func (m *memStorage) put(path, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[path] = []byte(data)
}

func (m *memStorage) DownloadURL(_ context.Context, ref Ref) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	if _, ok := m.objects[ref.Path]; !ok {
		return "", state.NewError(state.CodeNotFound, "object "+ref.Path+" does not exist")
	}

	return "https://storage.test/" + ref.Path, nil
}

func (m *memStorage) List(_ context.Context, ref Ref, opts ListOptions) (ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return ListResult{}, m.err
	}

	prefix := ""
	if !ref.Root() {
		prefix = ref.Path + "/"
	}

	var (
		res      ListResult
		prefixes = map[string]bool{}
		names    []string
	)

	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	for _, name := range names {
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			p := prefix + rest[:i]
			if !prefixes[p] {
				prefixes[p] = true
				res.Prefixes = append(res.Prefixes, NewRef(p))
			}

			continue
		}

		res.Items = append(res.Items, NewRef(name))
	}

	if opts.MaxResults > 0 && len(res.Items) > opts.MaxResults {
		res.Items = res.Items[:opts.MaxResults]
		res.NextPageToken = res.Items[len(res.Items)-1].Path
	}

	return res, nil
}

func (m *memStorage) Upload(ctx context.Context, ref Ref, r io.Reader, md *Metadata, progress func(int64)) error {
	m.mu.Lock()
	err, block := m.err, m.block
	m.mu.Unlock()

	if err != nil {
		return err
	}

	var (
		buf   bytes.Buffer
		chunk = make([]byte, 4)
	)

	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])

			if progress != nil {
				progress(int64(buf.Len()))
			}

			if block {
				<-ctx.Done()
				return ctx.Err()
			}
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return rerr
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[ref.Path] = buf.Bytes()
	m.meta[ref.Path] = md

	return nil
}
