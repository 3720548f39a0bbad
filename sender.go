package eventrelay

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coregx/eventrelay/model"
	"github.com/coregx/eventrelay/retry"
)

// IdempotencyKeyHeader is the HTTP header carrying the delivery's
// idempotency key on every attempt.
const IdempotencyKeyHeader = "Idempotency-Key"

// WebhookSender delivers payloads to HTTP endpoints with bounded retries
// and deterministic exponential backoff.
//
// One idempotency key is generated per Send call and reused across every
// retry of that delivery, so receivers can deduplicate repeated attempts.
//
// Outcome classification per attempt:
//   - 2xx response: delivered, stop
//   - 4xx response: permanently failed, stop (client errors are assumed
//     non-transient — retrying cannot fix a malformed or rejected request)
//   - anything else (network error, 5xx, other status): transient; wait the
//     backoff delay and retry, up to the strategy's attempt budget
//
// Delivery attempts are strictly sequential: attempt N+1 only begins after
// attempt N's outcome is known. The backoff sleep is context-aware, so a
// caller-level timeout wrapping Send is the cancellation point.
//
// Thread safety: safe for concurrent use; each Send call owns its delivery.
type WebhookSender struct {
	client        *http.Client
	strategy      retry.Strategy
	logger        Logger
	notifications NotificationService
	newKey        func() string
}

// Send delivers the payload to the endpoint URL, retrying transient failures
// per the configured strategy.
//
// The returned Delivery always carries the terminal outcome and the full
// attempt log (count, status codes, scheduled waits), so callers can observe
// what happened. The error is non-nil only when the context was canceled
// mid-delivery; delivery failures are expressed through Delivery.Outcome.
func (s *WebhookSender) Send(ctx context.Context, endpointURL string, payload []byte) (*model.Delivery, error) {
	if endpointURL == "" {
		return nil, NewError(ErrCodeValidation, "endpoint URL is required")
	}

	key := s.newKey()
	delivery := model.NewDelivery(key, endpointURL, payload)

	s.logger.Infof("Starting delivery to %s (key=%s, max_attempts=%d)",
		endpointURL, key, s.strategy.MaxAttempts)

	for attempt := 1; attempt <= s.strategy.MaxAttempts; attempt++ {
		if err := delivery.CanAttempt(s.strategy.MaxAttempts); err != nil {
			break
		}

		statusCode, attemptErr := s.post(ctx, &delivery)

		switch {
		case attemptErr == nil && statusCode >= 200 && statusCode < 300:
			delivery.RecordDelivered(statusCode)
			s.logger.Infof("Delivered to %s (key=%s, attempts=%d, status=%d)",
				endpointURL, key, delivery.AttemptCount(), statusCode)
			return &delivery, nil

		case attemptErr == nil && statusCode >= 400 && statusCode < 500:
			delivery.RecordPermanentFailure(statusCode)
			s.logger.Warnf("Permanent failure delivering to %s (key=%s, status=%d), no retry",
				endpointURL, key, statusCode)
			s.notifyFailure(ctx, &delivery)
			return &delivery, nil

		default:
			// Transient: network error or status >= 500
			wait := time.Duration(0)
			if s.strategy.IsRetryable(attempt) {
				wait = s.strategy.Delay(attempt - 1)
			}
			delivery.RecordTransientFailure(statusCode, attemptErr, wait)
			s.logger.Warnf("Transient failure delivering to %s (key=%s, attempt=%d, status=%d, next_retry=%v): %v",
				endpointURL, key, attempt, statusCode, wait, attemptErr)
			s.notifyFailure(ctx, &delivery)

			if wait > 0 {
				if err := sleepContext(ctx, wait); err != nil {
					return &delivery, NewErrorWithCause(ErrCodeDelivery, "delivery canceled during backoff", err)
				}
			}
		}
	}

	delivery.MarkExhausted()
	s.logger.Errorf("Exhausted retries delivering to %s (key=%s, attempts=%d)",
		endpointURL, key, delivery.AttemptCount())

	letter := model.NewDeadLetter(delivery)
	if err := s.notifications.NotifyDeadLetter(ctx, letter); err != nil {
		s.logger.Warnf("Failed to send dead-letter notification: %v", err)
	}

	return &delivery, nil
}

// Schedule returns a human-readable description of the retry schedule.
// Useful for displaying delivery configuration in logs.
func (s *WebhookSender) Schedule() string {
	return s.strategy.Schedule()
}

// post performs one HTTP attempt for the delivery.
// Returns the response status code, or an error on transport failure.
func (s *WebhookSender) post(ctx context.Context, delivery *model.Delivery) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.EndpointURL, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, delivery.IdempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode, nil
}

// notifyFailure reports a failed attempt to the notification service.
func (s *WebhookSender) notifyFailure(ctx context.Context, delivery *model.Delivery) {
	attempt, ok := delivery.LastAttempt()
	if !ok {
		return
	}
	if err := s.notifications.NotifyDeliveryFailure(ctx, delivery, attempt); err != nil {
		s.logger.Warnf("Failed to send delivery failure notification: %v", err)
	}
}

// sleepContext waits for the duration or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
