package eventrelay

import (
	"context"

	"github.com/coregx/eventrelay/model"
)

// NotificationService defines an optional interface for observing delivery
// failures. The core does not park dead letters itself — it hands them to
// this interface so the integrator can alert, store, or replay them.
//
// Implementations might send emails, Slack messages, or log to monitoring systems.
type NotificationService interface {
	// NotifyDeliveryFailure is called after every failed delivery attempt
	// (transient or permanent). This is informational and happens before any
	// dead-letter decision.
	NotifyDeliveryFailure(ctx context.Context, delivery *model.Delivery, attempt model.Attempt) error

	// NotifyDeadLetter is called when a delivery exhausts all retry attempts.
	// The dead letter carries the payload and full failure diagnostics.
	NotifyDeadLetter(ctx context.Context, letter model.DeadLetter) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
// Use this when notifications are not needed.
type NoOpNotificationService struct{}

// NotifyDeliveryFailure does nothing.
func (n *NoOpNotificationService) NotifyDeliveryFailure(_ context.Context, _ *model.Delivery, _ model.Attempt) error {
	return nil
}

// NotifyDeadLetter does nothing.
func (n *NoOpNotificationService) NotifyDeadLetter(_ context.Context, _ model.DeadLetter) error {
	return nil
}

// LoggingNotificationService is a simple implementation that logs notifications.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyDeliveryFailure logs the failed attempt.
func (n *LoggingNotificationService) NotifyDeliveryFailure(_ context.Context, delivery *model.Delivery, attempt model.Attempt) error {
	n.logger.Warnf("⚠️ Delivery attempt failed: key=%s, url=%s, attempt=%d, status=%d, error=%s",
		delivery.IdempotencyKey, delivery.EndpointURL, attempt.Number, attempt.StatusCode, attempt.Error)
	return nil
}

// NotifyDeadLetter logs the exhausted delivery.
func (n *LoggingNotificationService) NotifyDeadLetter(_ context.Context, letter model.DeadLetter) error {
	n.logger.Errorf("⚠️ Delivery dead-lettered: key=%s, url=%s, attempts=%d, last_status=%d, last_error=%s",
		letter.IdempotencyKey, letter.EndpointURL, letter.AttemptCount, letter.LastStatusCode, letter.LastError)
	return nil
}
