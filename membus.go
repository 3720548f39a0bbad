package eventrelay

import (
	"context"
	"fmt"
	"sync"

	"github.com/coregx/eventrelay/model"
)

// MemoryBus is an in-process, in-memory Bus implementation.
//
// Each subscription owns a buffered Go channel. Publish fans the event out to
// every subscription of the named channel without blocking: if a subscriber's
// buffer is full, the event is dropped for that subscriber and logged. This
// matches the non-durable contract of Bus — slow or absent consumers never
// exert backpressure on publishers.
//
// Thread safety: safe for concurrent publish and subscribe.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	buffer int
	logger Logger
}

// MemoryBusOption is a function that configures a MemoryBus.
type MemoryBusOption func(*MemoryBus) error

// NewMemoryBus creates a new in-memory bus with the provided options.
//
// Optional options:
//   - WithBusLogger: logger instance (default: NoopLogger)
//   - WithBusBuffer: per-subscription buffer size (default: 16)
//
// Example:
//
//	bus, err := eventrelay.NewMemoryBus(
//	    eventrelay.WithBusLogger(logger),
//	    eventrelay.WithBusBuffer(64),
//	)
func NewMemoryBus(opts ...MemoryBusOption) (*MemoryBus, error) {
	b := &MemoryBus{
		subs:   make(map[string][]*memorySubscription),
		buffer: 16,
		logger: &NoopLogger{},
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply bus option", err)
		}
	}

	return b, nil
}

// WithBusLogger sets the logger instance for the bus.
func WithBusLogger(logger Logger) MemoryBusOption {
	return func(b *MemoryBus) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		b.logger = logger
		return nil
	}
}

// WithBusBuffer sets the per-subscription buffer size.
// Must be > 0. Larger buffers absorb bursts at the cost of memory;
// events beyond the buffer are dropped for that subscriber.
func WithBusBuffer(size int) MemoryBusOption {
	return func(b *MemoryBus) error {
		if size <= 0 {
			return fmt.Errorf("buffer size must be > 0, got %d", size)
		}
		b.buffer = size
		return nil
	}
}

// Publish sends the event to all current subscribers of the named channel.
// Publishing to a channel with no subscribers is not an error; the event is
// dropped, matching the non-durable contract.
func (b *MemoryBus) Publish(_ context.Context, channel string, event model.Event) error {
	if channel == "" {
		return NewError(ErrCodeValidation, "channel name is required")
	}
	if err := event.Validate(); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "invalid event", err)
	}

	b.mu.RLock()
	subs := b.subs[channel]
	delivered := 0
	for _, sub := range subs {
		select {
		case sub.events <- event:
			delivered++
		default:
			b.logger.Warnf("Dropped event %q on channel %q: subscriber buffer full", event.Type, channel)
		}
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debugf("No subscribers on channel %q, event %q dropped", channel, event.Type)
		return nil
	}

	b.logger.Debugf("Published event %q to %d/%d subscribers on channel %q",
		event.Type, delivered, len(subs), channel)
	return nil
}

// Subscribe attaches to the named channel. The returned subscription is
// Listening immediately: the in-memory channel needs no remote acknowledgment.
func (b *MemoryBus) Subscribe(_ context.Context, channel string) (Subscription, error) {
	if channel == "" {
		return nil, NewError(ErrCodeValidation, "channel name is required")
	}

	sub := &memorySubscription{
		bus:     b,
		channel: channel,
		events:  make(chan model.Event, b.buffer),
		state:   StateConnecting,
	}

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	sub.state = StateListening
	b.mu.Unlock()

	b.logger.Infof("Subscribed to channel %q", channel)
	return sub, nil
}

// memorySubscription is the MemoryBus implementation of Subscription.
type memorySubscription struct {
	bus     *MemoryBus
	channel string
	events  chan model.Event
	state   SubscriptionState
	once    sync.Once
}

// Events returns the subscription's event stream.
func (s *memorySubscription) Events() <-chan model.Event {
	return s.events
}

// State returns the current subscription state.
func (s *memorySubscription) State() SubscriptionState {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	return s.state
}

// Close detaches the subscription from the bus and closes the event stream.
func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		subs := s.bus.subs[s.channel]
		for i, sub := range subs {
			if sub == s {
				s.bus.subs[s.channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.state = StateClosed
		close(s.events)
		s.bus.mu.Unlock()

		s.bus.logger.Infof("Unsubscribed from channel %q", s.channel)
	})
	return nil
}
