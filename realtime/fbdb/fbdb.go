// Package fbdb implements realtime.Database on the Firebase Admin Realtime
// Database client.
//
// The Admin SDK has no streaming listeners, so Watch polls the node through a
// live.Cache and pushes only when the value changes. Writes made through a
// Backend publish a reload event for the written path, which makes overlapping
// watches refresh after the debounce delay instead of waiting for the next
// poll. With a redis watcher the events reach every process.
package fbdb

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/v4/db"

	"github.com/looplj/firelive/internal/fberr"
	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/watcher"
	"github.com/looplj/firelive/internal/pkg/xcache/live"
	"github.com/looplj/firelive/internal/pkg/xjson"
	"github.com/looplj/firelive/realtime"
	"github.com/looplj/firelive/state"
)

// Config is the realtime section of the configuration file.
type Config struct {
	PollInterval time.Duration `conf:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	Debounce     time.Duration `conf:"debounce" yaml:"debounce" json:"debounce"`
}

func DefaultConfig() Config {
	return Config{PollInterval: 5 * time.Second, Debounce: 200 * time.Millisecond}
}

// Node is the subset of *db.Ref used by the backend.
type Node interface {
	Get(ctx context.Context, v any) error
	Set(ctx context.Context, v any) error
	Update(ctx context.Context, v map[string]any) error
	Delete(ctx context.Context) error
}

// Client resolves paths to nodes. *db.Client satisfies it through NewClient.
type Client interface {
	Node(path string) Node
}

type dbClient struct {
	client *db.Client
}

// NewClient adapts the Admin SDK client.
func NewClient(client *db.Client) Client {
	return dbClient{client: client}
}

func (c dbClient) Node(path string) Node {
	return c.client.NewRef("/" + path)
}

type Backend struct {
	client Client
	cfg    Config
	events watcher.Notifier[live.Event]
}

// New builds a Backend. events may be nil, in which case write
// notifications stay in process.
func New(client Client, cfg Config, events watcher.Notifier[live.Event]) *Backend {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}

	if events == nil {
		events = watcher.NewMemory[live.Event](watcher.MemoryOptions{Buffer: 16})
	}

	return &Backend{client: client, cfg: cfg, events: events}
}

func (b *Backend) read(ctx context.Context, ref realtime.Ref) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := b.client.Node(ref.Path).Get(ctx, &raw); err != nil {
		return nil, fberr.Wrap(err)
	}

	if len(raw) == 0 {
		raw = xjson.NullJSON
	}

	return raw, nil
}

// Watch delivers the node value after the first read and after every
// change observed by polling or write events. Failed polls are reported
// once per failure streak; polling continues.
func (b *Backend) Watch(ctx context.Context, ref realtime.Ref, onNext func(realtime.Snapshot), onError func(error)) state.Unsubscribe {
	var (
		mu      sync.Mutex
		failing bool
	)

	fail := func(err error) {
		mu.Lock()
		report := !failing
		failing = true
		mu.Unlock()

		if report {
			onError(err)
		}
	}

	cache := live.NewCache(live.Options[json.RawMessage]{
		Name: "rtdb " + ref.String(),
		RefreshFunc: func(ctx context.Context, current json.RawMessage, _ time.Time) (json.RawMessage, time.Time, bool, error) {
			raw, err := b.read(ctx, ref)
			if err != nil {
				return current, time.Time{}, false, err
			}

			mu.Lock()
			failing = false
			mu.Unlock()

			return raw, time.Now(), current == nil || !xjson.Equal(current, raw), nil
		},
		OnSwap: func(_, next json.RawMessage) {
			onNext(realtime.Snapshot{Ref: ref, Value: next})
		},
		OnError:         fail,
		RefreshInterval: b.cfg.PollInterval,
		DebounceDelay:   b.cfg.Debounce,
		Watcher:         b.events,
		Match: func(e live.Event) bool {
			return Overlaps(e.Path, ref.Path)
		},
	})

	loadCtx, cancel := context.WithCancel(ctx)

	go func() {
		if err := cache.Load(loadCtx, true); err != nil && loadCtx.Err() == nil {
			fail(err)
		}
	}()

	stop := context.AfterFunc(ctx, cache.Stop)

	return func() {
		stop()
		cancel()
		cache.Stop()
	}
}

func (b *Backend) Get(ctx context.Context, ref realtime.Ref) (realtime.Snapshot, error) {
	raw, err := b.read(ctx, ref)
	if err != nil {
		return realtime.Snapshot{}, err
	}

	return realtime.Snapshot{Ref: ref, Value: raw}, nil
}

func (b *Backend) Set(ctx context.Context, ref realtime.Ref, value any) error {
	if err := b.client.Node(ref.Path).Set(ctx, value); err != nil {
		return err
	}

	b.notify(ctx, ref)

	return nil
}

func (b *Backend) Update(ctx context.Context, ref realtime.Ref, partial map[string]any) error {
	if err := b.client.Node(ref.Path).Update(ctx, partial); err != nil {
		return err
	}

	b.notify(ctx, ref)

	return nil
}

func (b *Backend) Remove(ctx context.Context, ref realtime.Ref) error {
	if err := b.client.Node(ref.Path).Delete(ctx); err != nil {
		return err
	}

	b.notify(ctx, ref)

	return nil
}

func (b *Backend) notify(ctx context.Context, ref realtime.Ref) {
	if err := b.events.Notify(ctx, live.NewForceRefreshEvent(ref.Path)); err != nil {
		log.Warn(ctx, "rtdb write notification failed", log.String("path", ref.String()), log.Cause(err))
	}
}

// Overlaps reports whether a write at a affects a watch on b or the other
// way round. The root overlaps everything.
func Overlaps(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}

	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

var _ realtime.Database = (*Backend)(nil)
