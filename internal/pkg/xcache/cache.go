// Package xcache exposes typed caches backed by gocache.
package xcache

import (
	"time"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
)

// Cache is the gocache cache interface: Get, Set, Delete, Invalidate, Clear,
// GetType.
type Cache[T any] = cachelib.CacheInterface[T]

type Option = store.Option

func WithExpiration(expiration time.Duration) Option {
	return store.WithExpiration(expiration)
}

// NewMemory builds an in-process cache on patrickmn/go-cache.
func NewMemory[T any](expiration, cleanupInterval time.Duration) Cache[T] {
	client := gocache.New(expiration, cleanupInterval)
	return cachelib.New[T](gocache_store.NewGoCache(client, store.WithExpiration(expiration)))
}

// NewFromConfig returns a memory cache, or a noop cache when caching is off.
func NewFromConfig[T any](cfg Config) Cache[T] {
	switch cfg.Mode {
	case ModeMemory:
		return NewMemory[T](
			defaultIfZero(cfg.Expiration, 5*time.Minute),
			defaultIfZero(cfg.CleanupInterval, 10*time.Minute),
		)
	default:
		return NewNoop[T]()
	}
}

func defaultIfZero(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}

	return d
}
