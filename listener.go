package eventrelay

import (
	"context"
	"fmt"
	"sync"

	"github.com/coregx/eventrelay/model"
)

// Handler processes a single dispatched event.
// Returning an error marks the event as failed for logging purposes only:
// the listener never redelivers and never stops on handler errors.
type Handler func(ctx context.Context, event model.Event) error

// Listener is the long-lived subscriber loop of the event relay.
// It drains one channel subscription and dispatches each event to the handler
// registered for its event type.
//
// Dispatch is synchronous with respect to the loop: the next event is not
// pulled until the current handler returns, so a slow handler directly
// throttles consumption. There is no internal worker pool — a deliberate
// simplification inherited from the design.
//
// Failure policy:
//   - A handler error is caught at the loop boundary and logged; the loop
//     continues and the event is not redelivered (at-most-once once dispatched).
//   - A handler panic is recovered and logged the same way.
//   - Unknown event types fall through to a default handler; by default a
//     no-op that logs at debug level.
//
// Lifecycle: Run blocks until the context is canceled or the subscription is
// closed. The listener owns its subscription and releases it on exit.
type Listener struct {
	bus            Bus
	channel        string
	handlers       map[string]Handler
	defaultHandler Handler
	logger         Logger

	mu  sync.RWMutex
	sub Subscription
}

// ListenerOption is a function that configures a Listener.
type ListenerOption func(*Listener) error

// NewListener creates a new Listener with the provided options.
//
// Required options:
//   - WithListenerBus: the bus to subscribe on
//   - WithListenerChannel: the channel name to drain
//   - WithListenerLogger: logger instance
//
// Optional options:
//   - WithEventHandler: handler for a specific event type (repeatable)
//   - WithDefaultHandler: handler for unregistered event types
//
// Example:
//
//	listener, err := eventrelay.NewListener(
//	    eventrelay.WithListenerBus(bus),
//	    eventrelay.WithListenerChannel("library_events"),
//	    eventrelay.WithListenerLogger(logger),
//	    eventrelay.WithEventHandler("BookBorrowed", notifyBorrower),
//	)
func NewListener(opts ...ListenerOption) (*Listener, error) {
	l := &Listener{
		handlers: make(map[string]Handler),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply listener option", err)
		}
	}

	// Validate required dependencies
	if l.bus == nil {
		return nil, NewError(ErrCodeConfiguration, "Bus is required (use WithListenerBus)")
	}
	if l.channel == "" {
		return nil, NewError(ErrCodeConfiguration, "channel is required (use WithListenerChannel)")
	}
	if l.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithListenerLogger)")
	}

	if l.defaultHandler == nil {
		l.defaultHandler = func(_ context.Context, event model.Event) error {
			l.logger.Debugf("No handler registered for event type %q, ignoring", event.Type)
			return nil
		}
	}

	return l, nil
}

// WithListenerBus sets the bus to subscribe on.
func WithListenerBus(bus Bus) ListenerOption {
	return func(l *Listener) error {
		if bus == nil {
			return fmt.Errorf("bus cannot be nil")
		}
		l.bus = bus
		return nil
	}
}

// WithListenerChannel sets the channel name the listener drains.
func WithListenerChannel(channel string) ListenerOption {
	return func(l *Listener) error {
		if channel == "" {
			return fmt.Errorf("channel cannot be empty")
		}
		l.channel = channel
		return nil
	}
}

// WithListenerLogger sets the logger instance for the listener.
func WithListenerLogger(logger Logger) ListenerOption {
	return func(l *Listener) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		l.logger = logger
		return nil
	}
}

// WithEventHandler registers a handler for a specific event type.
// May be repeated; registering the same type twice is a configuration error.
func WithEventHandler(eventType string, handler Handler) ListenerOption {
	return func(l *Listener) error {
		if eventType == "" {
			return fmt.Errorf("event type cannot be empty")
		}
		if handler == nil {
			return fmt.Errorf("handler cannot be nil")
		}
		if _, exists := l.handlers[eventType]; exists {
			return fmt.Errorf("handler already registered for event type %q", eventType)
		}
		l.handlers[eventType] = handler
		return nil
	}
}

// WithDefaultHandler sets the handler invoked for event types with no
// registered handler. The default is a debug-logging no-op.
func WithDefaultHandler(handler Handler) ListenerOption {
	return func(l *Listener) error {
		if handler == nil {
			return fmt.Errorf("handler cannot be nil")
		}
		l.defaultHandler = handler
		return nil
	}
}

// Run subscribes to the configured channel and processes events until the
// context is canceled or the subscription is closed.
//
// This method blocks and should typically be run in a goroutine:
//
//	go func() {
//	    if err := listener.Run(ctx); err != nil {
//	        log.Fatalf("listener: %v", err)
//	    }
//	}()
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.bus.Subscribe(ctx, l.channel)
	if err != nil {
		return NewErrorWithCause(ErrCodeBus, fmt.Sprintf("failed to subscribe to channel %q", l.channel), err)
	}

	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()

	defer func() {
		if closeErr := sub.Close(); closeErr != nil {
			l.logger.Warnf("Failed to close subscription on channel %q: %v", l.channel, closeErr)
		}
	}()

	l.logger.Infof("Listener started on channel %q (%d handlers registered)", l.channel, len(l.handlers))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Listener stopped")
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				l.logger.Infof("Subscription on channel %q closed, listener stopping", l.channel)
				return nil
			}
			l.dispatch(ctx, event)
		}
	}
}

// State reports the lifecycle state of the listener's subscription.
// Returns StateConnecting before Run has subscribed.
func (l *Listener) State() SubscriptionState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sub == nil {
		return StateConnecting
	}
	return l.sub.State()
}

// dispatch routes one event to its handler. Handler faults never escape:
// errors and panics are logged and the loop moves on.
func (l *Listener) dispatch(ctx context.Context, event model.Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("Handler panicked on event %q: %v", event.Type, r)
		}
	}()

	handler, ok := l.handlers[event.Type]
	if !ok {
		handler = l.defaultHandler
	}

	if err := handler(ctx, event); err != nil {
		l.logger.Errorf("Handler failed on event %q: %v", event.Type, err)
		return
	}

	l.logger.Debugf("Dispatched event %q on channel %q", event.Type, l.channel)
}
