package sdk

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/firelive/remoteconfig"
	"github.com/looplj/firelive/state"
	"github.com/looplj/firelive/storage"
)

type stubStorage struct{ name string }

func (s stubStorage) DownloadURL(_ context.Context, ref storage.Ref) (string, error) {
	return "https://" + s.name + "/" + ref.Path, nil
}

func (stubStorage) List(context.Context, storage.Ref, storage.ListOptions) (storage.ListResult, error) {
	return storage.ListResult{}, nil
}

func (stubStorage) Upload(context.Context, storage.Ref, io.Reader, *storage.Metadata, func(int64)) error {
	return nil
}

type stubRC struct{}

func (stubRC) Supported(context.Context) (bool, error)        { return false, nil }
func (stubRC) FetchAndActivate(context.Context) (bool, error) { return false, nil }

func (stubRC) Value(context.Context, string) (remoteconfig.Value, error) {
	return remoteconfig.Value{}, nil
}

func TestGet_Unset(t *testing.T) {
	h := Get(context.Background())
	assert.True(t, h.Empty())
	assert.Empty(t, h.Names())
}

func TestSet_ReplacesWholesale(t *testing.T) {
	ctx := Set(context.Background(), Handles{Storage: stubStorage{name: "a"}, RemoteConfig: stubRC{}})
	ctx = Set(ctx, Handles{Storage: stubStorage{name: "b"}})

	h := Get(ctx)
	assert.Equal(t, stubStorage{name: "b"}, h.Storage)
	assert.Nil(t, h.RemoteConfig)
}

func TestUpdate_Merges(t *testing.T) {
	parent := Set(context.Background(), Handles{Storage: stubStorage{name: "a"}})

	child, merged := Update(parent, Handles{RemoteConfig: stubRC{}})

	assert.Equal(t, stubStorage{name: "a"}, merged.Storage)
	assert.NotNil(t, merged.RemoteConfig)
	assert.Equal(t, merged, Get(child))
	assert.Equal(t, []string{"storage", "remoteconfig"}, merged.Names())

	// The parent scope is unchanged.
	assert.Nil(t, Get(parent).RemoteConfig)

	// Descendants see the merged set.
	grandchild, cancel := context.WithCancel(child)
	defer cancel()

	assert.Equal(t, merged, Get(grandchild))
}

func TestUpdate_NilFieldsKeepExisting(t *testing.T) {
	ctx := Set(context.Background(), Handles{Storage: stubStorage{name: "a"}})

	_, merged := Update(ctx, Handles{})
	assert.Equal(t, stubStorage{name: "a"}, merged.Storage)
	assert.False(t, merged.Empty())
}

func TestHandles_WithAdapters(t *testing.T) {
	ctx := Set(context.Background(), Handles{})

	s := storage.NewDownloadURLState(ctx, Get(ctx).Storage, "a.png", storage.Options{})
	assert.False(t, s.Connected())
	assert.False(t, s.Loading())
	assert.Nil(t, s.Err())

	var code state.Code = state.MissingSDK("storage")
	assert.Equal(t, state.CodeMissingStorage, code)
}

func TestAdapters_FallBackToContext(t *testing.T) {
	ctx := Set(context.Background(), Handles{Storage: stubStorage{name: "cdn"}, RemoteConfig: stubRC{}})

	s := storage.NewDownloadURLState(ctx, nil, "avatars/42.png", storage.Options{})
	defer s.Close()

	assert.True(t, s.Connected())
	require.Eventually(t, func() bool { return !s.Loading() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://cdn/avatars/42.png", s.URL())

	flag := remoteconfig.NewBooleanState(ctx, nil, "beta", remoteconfig.Options{})
	defer flag.Close()

	assert.True(t, flag.Connected())
	require.Eventually(t, func() bool { return !flag.Loading() }, time.Second, 5*time.Millisecond)
	assert.Nil(t, flag.Get())

	// An explicit handle wins over the context.
	own := storage.NewDownloadURLState(ctx, stubStorage{name: "own"}, "a.png", storage.Options{})
	defer own.Close()

	require.Eventually(t, func() bool { return !own.Loading() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://own/a.png", own.URL())

	// Set with a nil field hides the parent's handle.
	hidden := Set(ctx, Handles{})
	assert.False(t, storage.NewDownloadURLState(hidden, nil, "a.png", storage.Options{}).Connected())
}
