package eventrelay

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coregx/eventrelay/retry"
)

// Option is a function that configures a WebhookSender.
// Used with the Options Pattern for flexible service construction.
//
// Example:
//
//	sender, err := eventrelay.NewWebhookSender(
//	    eventrelay.WithSenderLogger(logger),
//	    eventrelay.WithRetryStrategy(retry.DefaultStrategy()), // optional
//	)
type Option func(*WebhookSender) error

// NewWebhookSender creates a new webhook sender with the provided options.
//
// Required options:
//   - WithSenderLogger: logger instance
//
// Optional options:
//   - WithRetryStrategy: custom retry strategy (default: retry.DefaultStrategy())
//   - WithHTTPClient: custom HTTP client (default: 10s timeout)
//   - WithSenderNotifications: delivery failure / dead-letter notifications
//   - WithKeyGenerator: custom idempotency key generator (default: UUIDv4)
func NewWebhookSender(opts ...Option) (*WebhookSender, error) {
	// Default configuration
	s := &WebhookSender{
		client:        &http.Client{Timeout: 10 * time.Second},
		strategy:      retry.DefaultStrategy(),
		notifications: &NoOpNotificationService{},
		newKey:        uuid.NewString,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	// Validate required dependencies
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithSenderLogger)")
	}
	if s.strategy.MaxAttempts <= 0 {
		return nil, NewError(ErrCodeConfiguration, "retry strategy must allow at least one attempt")
	}

	return s, nil
}

// WithSenderLogger sets the logger instance for the sender.
// Logger is required and must not be nil.
//
// Use NoopLogger for silent operation or implement Logger interface
// to integrate with your logging system (zap, logrus, etc.).
func WithSenderLogger(logger Logger) Option {
	return func(s *WebhookSender) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithRetryStrategy sets a custom retry strategy for the sender.
// This is an optional configuration - if not provided, retry.DefaultStrategy()
// will be used (5 attempts, 1s → 2s → 4s → 8s unjittered backoff).
func WithRetryStrategy(strategy retry.Strategy) Option {
	return func(s *WebhookSender) error {
		s.strategy = strategy
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for delivery attempts.
// This is an optional configuration - the default client has a 10 second
// timeout. The client's timeout bounds each individual attempt; the overall
// Send call is bounded only by the caller's context.
func WithHTTPClient(client *http.Client) Option {
	return func(s *WebhookSender) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		s.client = client
		return nil
	}
}

// WithSenderNotifications sets an optional notification service for the sender.
// This is an optional configuration - if not provided, NoOpNotificationService
// will be used (no notifications).
//
// The notification service receives callbacks for:
//   - Delivery failures (every failed attempt)
//   - Dead letters (when a delivery exhausts its retries)
//
// Use this to integrate with alerting systems (email, Slack, PagerDuty, etc.).
func WithSenderNotifications(service NotificationService) Option {
	return func(s *WebhookSender) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		s.notifications = service
		return nil
	}
}

// WithKeyGenerator sets a custom idempotency key generator.
// This is an optional configuration - the default generates UUIDv4 keys.
// Primarily useful for deterministic keys in tests.
func WithKeyGenerator(generator func() string) Option {
	return func(s *WebhookSender) error {
		if generator == nil {
			return fmt.Errorf("key generator cannot be nil")
		}
		s.newKey = generator
		return nil
	}
}
