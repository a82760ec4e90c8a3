package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/looplj/firelive/internal/log"
)

type RedisOptions struct {
	Channel string
	Buffer  int
}

// Redis publishes JSON-encoded values on a pub/sub channel. The underlying
// subscription is opened on the first Watch and closed with the last stop.
type Redis[T any] struct {
	client  *redis.Client
	channel string
	local   *Memory[T]

	mu     sync.Mutex
	active int
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRedis[T any](client *redis.Client, opts RedisOptions) (*Redis[T], error) {
	if client == nil {
		return nil, errors.New("watcher: redis client is required")
	}

	if opts.Channel == "" {
		return nil, errors.New("watcher: redis channel is required")
	}

	return &Redis[T]{
		client:  client,
		channel: opts.Channel,
		local:   NewMemory[T](MemoryOptions{Buffer: opts.Buffer}),
	}, nil
}

func (w *Redis[T]) Watch() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch, stop := w.local.Watch()

	w.active++
	if w.active == 1 {
		w.startLocked()
	}

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			stop()

			w.mu.Lock()
			defer w.mu.Unlock()

			w.active--
			if w.active == 0 {
				w.stopLocked()
			}
		})
	}
}

func (w *Redis[T]) Notify(ctx context.Context, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return w.client.Publish(ctx, w.channel, payload).Err()
}

func (w *Redis[T]) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.pubsub = w.client.Subscribe(ctx, w.channel)

	// Wait for the subscription confirmation so that a Notify issued right
	// after Watch is not lost.
	_, _ = w.pubsub.Receive(ctx)

	go w.receive(ctx, w.pubsub)
}

func (w *Redis[T]) receive(ctx context.Context, ps *redis.PubSub) {
	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}

			log.Warn(ctx, "redis watcher receive failed", log.String("channel", w.channel), log.Cause(err))

			continue
		}

		var v T
		if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
			log.Warn(ctx, "redis watcher decode failed",
				log.String("channel", w.channel),
				log.String("payload", msg.Payload),
				log.Cause(err))

			continue
		}

		_ = w.local.Notify(ctx, v)
	}
}

func (w *Redis[T]) stopLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}

	if w.pubsub != nil {
		_ = w.pubsub.Close()
		w.pubsub = nil
	}
}
