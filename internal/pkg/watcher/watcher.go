// Package watcher fans a stream of values out to any number of channel
// subscribers, in process or across processes through redis pub/sub.
//
// Delivery is best effort: a subscriber whose buffer is full misses the value.
// Consumers that need every update should observe the source directly.
package watcher

import "context"

// Watcher hands out subscriptions. The returned stop function must be called
// exactly once; it closes the channel.
type Watcher[T any] interface {
	Watch() (<-chan T, func())
}

// Notifier is a Watcher that also publishes.
type Notifier[T any] interface {
	Watcher[T]

	Notify(ctx context.Context, v T) error
}
