package watcher

import (
	"context"
	"errors"

	"github.com/looplj/firelive/internal/pkg/xredis"
)

const (
	ModeMemory = "memory"
	ModeRedis  = "redis"
)

type Config struct {
	Mode   string        `conf:"mode" yaml:"mode" json:"mode"`
	Buffer int           `conf:"buffer" yaml:"buffer" json:"buffer"`
	Redis  xredis.Config `conf:"redis" yaml:"redis" json:"redis"`
}

// New builds a Notifier for cfg. channel names the redis pub/sub channel and
// is ignored in memory mode.
func New[T any](ctx context.Context, cfg Config, channel string) (Notifier[T], error) {
	switch cfg.Mode {
	case ModeRedis:
		if channel == "" {
			return nil, errors.New("watcher: channel is required in redis mode")
		}

		client, err := xredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}

		return NewRedis[T](client, RedisOptions{
			Channel: cfg.Redis.Channel(channel),
			Buffer:  cfg.Buffer,
		})
	case ModeMemory, "":
		return NewMemory[T](MemoryOptions{Buffer: cfg.Buffer}), nil
	default:
		return nil, errors.New("watcher: unknown mode " + cfg.Mode)
	}
}
