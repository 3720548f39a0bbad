// Package redis provides Redis-backed adapters for the event relay:
// a Pub/Sub Bus and a SETNX-based processed-key store.
//
// Redis Pub/Sub matches the relay's non-durable channel contract exactly:
// messages published while no subscriber is connected are lost, and each
// subscription receives messages in publish order.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/coregx/eventrelay"
	"github.com/coregx/eventrelay/model"
)

// Bus implements eventrelay.Bus on top of Redis Pub/Sub.
type Bus struct {
	client *redis.Client
	logger eventrelay.Logger
}

// NewBus creates a Redis-backed bus using the given client.
// The logger defaults to eventrelay.NoopLogger when nil.
func NewBus(client *redis.Client, logger eventrelay.Logger) (*Bus, error) {
	if client == nil {
		return nil, eventrelay.NewError(eventrelay.ErrCodeConfiguration, "redis client is required")
	}
	if logger == nil {
		logger = &eventrelay.NoopLogger{}
	}
	return &Bus{client: client, logger: logger}, nil
}

// Publish serializes the event as JSON and publishes it on the named channel.
// Redis reports how many subscribers received it; zero receivers is not an
// error (the event is simply lost, per the non-durable contract).
func (b *Bus) Publish(ctx context.Context, channel string, event model.Event) error {
	if channel == "" {
		return eventrelay.NewError(eventrelay.ErrCodeValidation, "channel name is required")
	}
	if err := event.Validate(); err != nil {
		return eventrelay.NewErrorWithCause(eventrelay.ErrCodeValidation, "invalid event", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return eventrelay.NewErrorWithCause(eventrelay.ErrCodeBus, "failed to serialize event", err)
	}

	receivers, err := b.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return eventrelay.NewErrorWithCause(eventrelay.ErrCodeBus,
			fmt.Sprintf("failed to publish on channel %q", channel), err)
	}

	b.logger.Debugf("Published event %q to %d subscribers on channel %q", event.Type, receivers, channel)
	return nil
}

// Subscribe attaches to the named channel. The subscription transitions from
// Connecting to Listening once Redis acknowledges the SUBSCRIBE command.
func (b *Bus) Subscribe(ctx context.Context, channel string) (eventrelay.Subscription, error) {
	if channel == "" {
		return nil, eventrelay.NewError(eventrelay.ErrCodeValidation, "channel name is required")
	}

	sub := &subscription{
		pubsub:  b.client.Subscribe(ctx, channel),
		channel: channel,
		events:  make(chan model.Event, 16),
		state:   eventrelay.StateConnecting,
		logger:  b.logger,
	}

	// Wait for the subscription acknowledgment before reporting Listening.
	if _, err := sub.pubsub.Receive(ctx); err != nil {
		_ = sub.pubsub.Close()
		return nil, eventrelay.NewErrorWithCause(eventrelay.ErrCodeBus,
			fmt.Sprintf("failed to subscribe to channel %q", channel), err)
	}
	sub.setState(eventrelay.StateListening)

	go sub.pump()

	b.logger.Infof("Subscribed to channel %q", channel)
	return sub, nil
}

// subscription is the Redis implementation of eventrelay.Subscription.
type subscription struct {
	pubsub  *redis.PubSub
	channel string
	events  chan model.Event
	logger  eventrelay.Logger

	mu    sync.RWMutex
	state eventrelay.SubscriptionState
	once  sync.Once
}

// pump drains the Redis message stream into the event channel until the
// underlying PubSub is closed. Malformed payloads are logged and skipped.
func (s *subscription) pump() {
	for msg := range s.pubsub.Channel() {
		var event model.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warnf("Dropping malformed event on channel %q: %v", s.channel, err)
			continue
		}
		s.events <- event
	}

	// Connection loss or explicit close both end here.
	s.setState(eventrelay.StateClosed)
	close(s.events)
}

// Events returns the subscription's event stream.
func (s *subscription) Events() <-chan model.Event {
	return s.events
}

// State returns the current subscription state.
func (s *subscription) State() eventrelay.SubscriptionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close unsubscribes from the channel and releases the subscription.
func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

func (s *subscription) setState(state eventrelay.SubscriptionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
