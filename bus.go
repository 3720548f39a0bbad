package eventrelay

import (
	"context"

	"github.com/coregx/eventrelay/model"
)

// SubscriptionState represents the lifecycle state of a channel subscription.
type SubscriptionState string

const (
	// StateConnecting indicates the subscription has been requested but the
	// underlying channel has not acknowledged it yet.
	StateConnecting SubscriptionState = "connecting"

	// StateListening indicates the subscription is acknowledged and events
	// published to the channel are being delivered.
	StateListening SubscriptionState = "listening"

	// StateClosed indicates the subscription was closed, either explicitly or
	// by unrecoverable connection loss. Events published while closed are
	// simply not observed (the channel is not durable).
	StateClosed SubscriptionState = "closed"
)

// Bus defines the publish/subscribe channel interface that decouples
// publishers from subscribers.
//
// The bus gives no durability guarantee: an event published while no
// subscriber is listening is dropped. Within a single subscription, events
// are delivered in publish order (FIFO) as long as the underlying channel
// preserves order.
//
// Implementations must be safe for concurrent publish and subscribe.
type Bus interface {
	// Publish sends the event on the named channel to all current subscribers.
	// It is non-blocking from the publisher's perspective: it does not wait
	// for subscriber processing, and it returns nil even when no subscriber
	// is attached (the event is then lost).
	Publish(ctx context.Context, channel string, event model.Event) error

	// Subscribe attaches to the named channel and returns a subscription
	// delivering every event published after the subscription begins.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is a continuous stream of events from one channel.
// The stream is unbounded until closed.
type Subscription interface {
	// Events returns the stream of events. The channel is closed when the
	// subscription is closed.
	Events() <-chan model.Event

	// State returns the current lifecycle state of the subscription.
	State() SubscriptionState

	// Close detaches from the channel and releases the subscription.
	// Closing an already closed subscription is a no-op.
	Close() error
}
