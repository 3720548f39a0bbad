package eventrelay

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/coregx/eventrelay/model"
)

// DeliveryHandler applies the business effect of an accepted inbound delivery
// (e.g., update an order's status from the payload).
type DeliveryHandler func(ctx context.Context, idempotencyKey string, payload []byte) error

// WebhookReceiver accepts inbound webhook deliveries, deduplicates them by
// idempotency key, and optionally simulates transient faults.
//
// Processing of one delivery:
//  1. If the key was already processed: Duplicate. Duplicates are a success
//     path — the sender sees HTTP 200 and stops retrying.
//  2. With the configured failure rate: TransientFailure, WITHOUT committing
//     the key, so a later retry of the same delivery can still succeed.
//  3. Otherwise the key is committed atomically and the business effect is
//     applied: Accepted.
//
// The commit uses ProcessedKeyStore.InsertIfAbsent as a single atomic
// operation, so two concurrent attempts with the same key can never both
// apply the business effect — exactly one observes Accepted, the rest
// observe Duplicate.
//
// Thread safety: safe for concurrent use across distinct and identical keys;
// no serialization happens across distinct keys.
type WebhookReceiver struct {
	store       ProcessedKeyStore
	handler     DeliveryHandler
	failureRate float64
	random      func() float64
	logger      Logger
}

// ReceiverOption is a function that configures a WebhookReceiver.
type ReceiverOption func(*WebhookReceiver) error

// NewWebhookReceiver creates a new webhook receiver with the provided options.
//
// Required options:
//   - WithReceiverStore: processed-key store for deduplication
//   - WithReceiverLogger: logger instance
//
// Optional options:
//   - WithDeliveryHandler: business effect applied on acceptance (default: none)
//   - WithFailureRate: simulated transient failure probability (default: 0.3)
//
// Example:
//
//	receiver, err := eventrelay.NewWebhookReceiver(
//	    eventrelay.WithReceiverStore(eventrelay.NewMemoryKeyStore(10000)),
//	    eventrelay.WithReceiverLogger(logger),
//	    eventrelay.WithDeliveryHandler(applyOrderUpdate),
//	)
func NewWebhookReceiver(opts ...ReceiverOption) (*WebhookReceiver, error) {
	r := &WebhookReceiver{
		failureRate: 0.3,
		random:      rand.Float64,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply receiver option", err)
		}
	}

	// Validate required dependencies
	if r.store == nil {
		return nil, NewError(ErrCodeConfiguration, "ProcessedKeyStore is required (use WithReceiverStore)")
	}
	if r.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithReceiverLogger)")
	}

	return r, nil
}

// WithReceiverStore sets the processed-key store used for deduplication.
func WithReceiverStore(store ProcessedKeyStore) ReceiverOption {
	return func(r *WebhookReceiver) error {
		if store == nil {
			return fmt.Errorf("store cannot be nil")
		}
		r.store = store
		return nil
	}
}

// WithReceiverLogger sets the logger instance for the receiver.
func WithReceiverLogger(logger Logger) ReceiverOption {
	return func(r *WebhookReceiver) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithDeliveryHandler sets the business effect applied when a delivery is
// accepted. The handler runs after the key is committed, so it executes at
// most once per distinct idempotency key no matter how often the sender
// retries.
func WithDeliveryHandler(handler DeliveryHandler) ReceiverOption {
	return func(r *WebhookReceiver) error {
		if handler == nil {
			return fmt.Errorf("handler cannot be nil")
		}
		r.handler = handler
		return nil
	}
}

// WithFailureRate sets the simulated transient failure probability.
// Must be in [0, 1]. Use 0 to disable fault injection.
func WithFailureRate(rate float64) ReceiverOption {
	return func(r *WebhookReceiver) error {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("failure rate must be in [0, 1], got %v", rate)
		}
		r.failureRate = rate
		return nil
	}
}

// withRandomSource overrides the random source used for fault injection.
// Unexported: only tests need deterministic failures.
func withRandomSource(random func() float64) ReceiverOption {
	return func(r *WebhookReceiver) error {
		r.random = random
		return nil
	}
}

// HandleDelivery processes one inbound delivery attempt and returns its
// receipt status. An error is returned only for invalid input or a failing
// key store; simulated faults and duplicates are regular statuses.
func (r *WebhookReceiver) HandleDelivery(ctx context.Context, idempotencyKey string, payload []byte) (model.ReceiptStatus, error) {
	if idempotencyKey == "" {
		return "", NewError(ErrCodeValidation, "idempotency key is required")
	}

	// Fast path: already processed
	seen, err := r.store.Contains(ctx, idempotencyKey)
	if err != nil {
		return "", NewErrorWithCause(ErrCodeStorage, "failed to check processed keys", err)
	}
	if seen {
		r.logger.Infof("Duplicate delivery ignored (key=%s)", idempotencyKey)
		return model.ReceiptDuplicate, nil
	}

	// Simulated transient fault. The key is NOT committed, so the sender's
	// retry can still reach the accept path.
	if r.failureRate > 0 && r.random() < r.failureRate {
		r.logger.Warnf("Simulated transient failure (key=%s)", idempotencyKey)
		return model.ReceiptTransientFailure, nil
	}

	// Atomic commit: losing a race with a concurrent identical delivery
	// reads as a duplicate, never as a second acceptance.
	inserted, err := r.store.InsertIfAbsent(ctx, idempotencyKey)
	if err != nil {
		return "", NewErrorWithCause(ErrCodeStorage, "failed to commit processed key", err)
	}
	if !inserted {
		r.logger.Infof("Duplicate delivery ignored after race (key=%s)", idempotencyKey)
		return model.ReceiptDuplicate, nil
	}

	if r.handler != nil {
		if err := r.handler(ctx, idempotencyKey, payload); err != nil {
			// The key is already committed: the effect ran at most once and
			// will not be retried. Surfacing is the integrator's concern.
			r.logger.Errorf("Delivery handler failed (key=%s): %v", idempotencyKey, err)
		}
	}

	r.logger.Infof("Delivery accepted (key=%s, payload_bytes=%d)", idempotencyKey, len(payload))
	return model.ReceiptAccepted, nil
}
