// Package fbrc implements remoteconfig.RemoteConfig on the server side Remote
// Config templates of the Firebase Admin SDK.
package fbrc

import (
	"context"
	"sync"

	"firebase.google.com/go/v4/remoteconfig"
	"golang.org/x/sync/singleflight"

	"github.com/looplj/firelive/internal/fberr"
	"github.com/looplj/firelive/internal/log"
	rc "github.com/looplj/firelive/remoteconfig"
)

// Config is the remote_config section of the configuration file.
type Config struct {
	// Defaults are the in-app defaults used when a parameter has no remote
	// value.
	Defaults map[string]any `conf:"defaults" yaml:"defaults" json:"defaults"`

	// Signals is the evaluation context for template conditions, e.g.
	// randomizationId.
	Signals map[string]any `conf:"signals" yaml:"signals" json:"signals"`
}

// evaluated is the part of *remoteconfig.ServerConfig the backend reads.
type evaluated interface {
	GetString(key string) string
	GetValueSource(key string) remoteconfig.ValueSource
}

type fetchFunc func(ctx context.Context) (evaluated, error)

type Backend struct {
	fetch fetchFunc

	sf     singleflight.Group
	mu     sync.RWMutex
	active evaluated
}

func New(client *remoteconfig.Client, cfg Config) *Backend {
	return newBackend(func(ctx context.Context) (evaluated, error) {
		tmpl, err := client.GetServerTemplate(ctx, cfg.Defaults)
		if err != nil {
			return nil, err
		}

		return tmpl.Evaluate(cfg.Signals)
	})
}

func newBackend(fetch fetchFunc) *Backend {
	return &Backend{fetch: fetch}
}

// Supported is always true on the server.
func (b *Backend) Supported(context.Context) (bool, error) {
	return true, nil
}

// FetchAndActivate loads and evaluates the current template. Concurrent
// callers share one fetch.
func (b *Backend) FetchAndActivate(ctx context.Context) (bool, error) {
	v, err, _ := b.sf.Do("fetch", func() (any, error) {
		cfg, err := b.fetch(ctx)
		if err != nil {
			return false, fberr.Wrap(err)
		}

		b.mu.Lock()
		b.active = cfg
		b.mu.Unlock()

		log.Debug(ctx, "remote config activated")

		return true, nil
	})
	if err != nil {
		return false, err
	}

	return v.(bool), nil
}

// Value reads key from the active config, activating first when nothing was
// activated yet.
func (b *Backend) Value(ctx context.Context, key string) (rc.Value, error) {
	b.mu.RLock()
	cfg := b.active
	b.mu.RUnlock()

	if cfg == nil {
		if _, err := b.FetchAndActivate(ctx); err != nil {
			return rc.Value{}, err
		}

		b.mu.RLock()
		cfg = b.active
		b.mu.RUnlock()
	}

	return rc.Value{Raw: cfg.GetString(key), Source: source(cfg.GetValueSource(key))}, nil
}

func source(s remoteconfig.ValueSource) rc.ValueSource {
	switch s {
	case remoteconfig.Remote:
		return rc.SourceRemote
	case remoteconfig.Default:
		return rc.SourceDefault
	default:
		return rc.SourceStatic
	}
}

var _ rc.RemoteConfig = (*Backend)(nil)
