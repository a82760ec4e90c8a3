// Package live provides an in-memory value that is refreshed by polling and
// by watcher signals, reporting every change through OnSwap.
package live

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/watcher"
)

// RefreshFunc loads fresh data. It receives the current value and its update
// time (zero on forced loads) and reports whether anything changed.
type RefreshFunc[T any] func(ctx context.Context, current T, lastUpdate time.Time) (next T, updatedAt time.Time, changed bool, err error)

// Options configures a Cache.
type Options[T any] struct {
	// Name is used in log entries.
	Name string

	RefreshFunc RefreshFunc[T]

	// OnSwap runs after every change with the previous and new value.
	//nolint:predeclared // Checked.
	OnSwap func(old, new T)

	// OnError runs when a background refresh fails.
	OnError func(err error)

	InitialValue T

	// RefreshInterval must be greater than zero.
	RefreshInterval time.Duration

	// DebounceDelay batches watcher triggers. Defaults to 500ms.
	DebounceDelay time.Duration

	// RefreshTimeout bounds each refresh. Defaults to 30s.
	RefreshTimeout time.Duration

	Watcher watcher.Watcher[Event]

	// Match filters watcher events; nil accepts all.
	Match func(Event) bool
}

// Cache holds a value that is reloaded periodically and on demand. Values
// returned by GetData must be treated as immutable.
type Cache[T any] struct {
	mu         sync.RWMutex
	data       T
	lastUpdate time.Time

	sf       singleflight.Group
	reloadMu sync.Mutex

	opts Options[T]

	asyncReloadCh chan struct{}
	ticker        *time.Ticker

	stopCh    chan struct{}
	stopOnce  sync.Once
	watchStop func()
}

// NewCache starts the background workers. It does not perform an initial
// load; call Load for that.
func NewCache[T any](opts Options[T]) *Cache[T] {
	if opts.RefreshFunc == nil {
		panic("live.Cache: RefreshFunc is required")
	}

	if opts.RefreshInterval <= 0 {
		panic("live.Cache: RefreshInterval must be greater than zero")
	}

	if opts.DebounceDelay == 0 {
		opts.DebounceDelay = 500 * time.Millisecond
	}

	if opts.RefreshTimeout == 0 {
		opts.RefreshTimeout = 30 * time.Second
	}

	c := &Cache[T]{
		data:          opts.InitialValue,
		opts:          opts,
		asyncReloadCh: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		ticker:        time.NewTicker(opts.RefreshInterval),
	}

	go c.worker()

	if opts.Watcher != nil {
		ch, stop := opts.Watcher.Watch()
		c.watchStop = stop

		go c.watchWorker(ch)
	}

	log.Debug(context.Background(), "live cache started",
		log.String("name", c.opts.Name),
		log.Duration("interval", opts.RefreshInterval))

	return c
}

func (c *Cache[T]) GetData() T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.data
}

func (c *Cache[T]) GetLastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdate
}

// Load refreshes synchronously. Concurrent callers share one refresh.
func (c *Cache[T]) Load(ctx context.Context, force bool) error {
	_, err, shared := c.sf.Do("load", func() (any, error) {
		return nil, c.load(ctx, force)
	})

	if shared {
		log.Debug(ctx, "live cache load shared", log.String("name", c.opts.Name))
	}

	return err
}

func (c *Cache[T]) load(ctx context.Context, force bool) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	c.mu.RLock()
	current := c.data
	lastUpdate := c.lastUpdate
	c.mu.RUnlock()

	if force {
		lastUpdate = time.Time{}
	}

	next, updatedAt, changed, err := c.opts.RefreshFunc(ctx, current, lastUpdate)
	if err != nil {
		return err
	}

	if !changed && !force {
		return nil
	}

	c.mu.Lock()
	old := c.data
	c.data = next
	c.lastUpdate = updatedAt
	c.mu.Unlock()

	if c.opts.OnSwap != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error(ctx, "live cache OnSwap panicked",
						log.String("name", c.opts.Name),
						log.Any("panic", r))
				}
			}()

			c.opts.OnSwap(old, next)
		}()
	}

	return nil
}

// TriggerAsyncReload schedules a debounced background reload.
func (c *Cache[T]) TriggerAsyncReload() {
	select {
	case c.asyncReloadCh <- struct{}{}:
	default:
	}
}

// Stop ends the background workers. It is safe to call more than once.
func (c *Cache[T]) Stop() {
	c.stopOnce.Do(func() {
		if c.watchStop != nil {
			c.watchStop()
		}

		close(c.stopCh)
		c.ticker.Stop()

		log.Debug(context.Background(), "live cache stopped", log.String("name", c.opts.Name))
	})
}

func (c *Cache[T]) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Cache[T]) worker() {
	var (
		debounce   *time.Timer
		debounceCh <-chan time.Time
	)

	for {
		select {
		case <-c.stopCh:
			if debounce != nil {
				debounce.Stop()
			}

			return
		case <-c.ticker.C:
			c.refresh("periodic")
		case <-c.asyncReloadCh:
			if debounce == nil {
				debounce = time.NewTimer(c.opts.DebounceDelay)
				debounceCh = debounce.C
			} else {
				debounce.Reset(c.opts.DebounceDelay)
			}
		case <-debounceCh:
			c.refresh("async")
		}
	}
}

func (c *Cache[T]) refresh(source string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(context.Background(), "live cache refresh panicked",
				log.String("name", c.opts.Name),
				log.String("source", source),
				log.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RefreshTimeout)
	defer cancel()

	err := c.Load(ctx, false)
	if err == nil || c.stopped() {
		return
	}

	log.Warn(ctx, "live cache refresh failed",
		log.String("name", c.opts.Name),
		log.String("source", source),
		log.Cause(err))

	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

func (c *Cache[T]) watchWorker(ch <-chan Event) {
	for {
		select {
		case <-c.stopCh:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}

			if c.opts.Match != nil && !c.opts.Match(event) {
				continue
			}

			switch event.Type {
			case EventForceRefresh:
				c.TriggerAsyncReload()
			case EventRefresh:
				if event.UpdatedAt.IsZero() || event.UpdatedAt.After(c.GetLastUpdate()) {
					c.TriggerAsyncReload()
				}
			}
		}
	}
}
