package model

import (
	"time"
)

// Outcome represents the terminal result of a webhook delivery.
type Outcome string

const (
	// OutcomePending indicates the delivery is still in progress.
	OutcomePending Outcome = "pending"

	// OutcomeDelivered indicates the receiver acknowledged the payload with a 2xx response.
	OutcomeDelivered Outcome = "delivered"

	// OutcomePermanentlyFailed indicates the receiver rejected the payload with a 4xx
	// response. Client-class errors are assumed non-transient and are never retried.
	OutcomePermanentlyFailed Outcome = "permanently_failed"

	// OutcomeExhaustedRetries indicates every attempt in the retry budget failed
	// transiently. This is a terminal failure the caller must handle (dead-letter, alert).
	OutcomeExhaustedRetries Outcome = "exhausted_retries"
)

// Attempt records a single HTTP POST try within a delivery.
// All attempts of one delivery share the same idempotency key and payload;
// only the attempt number, response, and wall-clock time vary.
type Attempt struct {
	Number     int           `json:"number"`     // 1-based ordinal within the retry sequence
	StatusCode int           `json:"statusCode"` // HTTP status (0 on transport error)
	Error      string        `json:"error"`      // Transport or server error message, if any
	Wait       time.Duration `json:"wait"`       // Backoff scheduled after this attempt (0 if terminal)
	StartedAt  time.Time     `json:"startedAt"`  // When the attempt began
}

// Delivery represents one logical webhook delivery with its full attempt history.
//
// The idempotency key is generated once per delivery and reused across every
// retry, so the receiver can recognize repeated attempts to deliver the same
// logical event.
//
// Lifecycle:
//  1. Created with Outcome=PENDING and an empty attempt log
//  2. Each HTTP try is recorded via RecordDelivered, RecordPermanentFailure,
//     or RecordTransientFailure
//  3. The delivery terminates as DELIVERED, PERMANENTLY_FAILED, or (after the
//     retry budget) EXHAUSTED_RETRIES
type Delivery struct {
	IdempotencyKey string    `json:"idempotencyKey"` // Generated once, constant across retries
	EndpointURL    string    `json:"endpointURL"`    // Target webhook URL
	Payload        []byte    `json:"payload"`        // Business object being delivered
	Outcome        Outcome   `json:"outcome"`        // Terminal result (PENDING while in flight)
	Attempts       []Attempt `json:"attempts"`       // Full attempt history, oldest first
	CreatedAt      time.Time `json:"createdAt"`      // When the delivery started
	CompletedAt    time.Time `json:"completedAt"`    // When a terminal outcome was reached
}

// NewDelivery creates a new pending delivery for the given endpoint and payload.
// The idempotency key must be generated by the caller (one per logical event).
func NewDelivery(idempotencyKey, endpointURL string, payload []byte) Delivery {
	return Delivery{
		IdempotencyKey: idempotencyKey,
		EndpointURL:    endpointURL,
		Payload:        payload,
		Outcome:        OutcomePending,
		Attempts:       nil,
		CreatedAt:      time.Now(),
	}
}

// CanAttempt validates whether another delivery attempt may be made.
//
// Returns an error if no attempt is allowed:
//   - ErrDeliveryComplete: a terminal outcome was already reached
//   - ErrAttemptsExhausted: the attempt budget is spent
func (d *Delivery) CanAttempt(maxAttempts int) error {
	if d.Outcome != OutcomePending {
		return ErrDeliveryComplete
	}
	if len(d.Attempts) >= maxAttempts {
		return ErrAttemptsExhausted
	}
	return nil
}

// RecordDelivered records a successful attempt and terminates the delivery.
func (d *Delivery) RecordDelivered(statusCode int) {
	d.appendAttempt(statusCode, "", 0)
	d.complete(OutcomeDelivered)
}

// RecordPermanentFailure records a client-error attempt and terminates the
// delivery without retry.
func (d *Delivery) RecordPermanentFailure(statusCode int) {
	d.appendAttempt(statusCode, "", 0)
	d.complete(OutcomePermanentlyFailed)
}

// RecordTransientFailure records a retryable attempt (network error or 5xx)
// along with the backoff wait scheduled before the next attempt.
// The error may be nil when the failure is an HTTP status rather than a
// transport fault.
func (d *Delivery) RecordTransientFailure(statusCode int, err error, wait time.Duration) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	d.appendAttempt(statusCode, msg, wait)
}

// MarkExhausted terminates the delivery after the retry budget is spent.
// Only valid when the delivery is still pending.
func (d *Delivery) MarkExhausted() {
	if d.Outcome != OutcomePending {
		return
	}
	d.complete(OutcomeExhaustedRetries)
}

// AttemptCount returns the number of attempts made so far.
func (d *Delivery) AttemptCount() int {
	return len(d.Attempts)
}

// LastAttempt returns the most recent attempt, or false if none were made.
func (d *Delivery) LastAttempt() (Attempt, bool) {
	if len(d.Attempts) == 0 {
		return Attempt{}, false
	}
	return d.Attempts[len(d.Attempts)-1], true
}

// LastError returns the error message of the most recent attempt, if any.
func (d *Delivery) LastError() string {
	last, ok := d.LastAttempt()
	if !ok {
		return ""
	}
	return last.Error
}

// Duration returns how long the delivery took from creation to its terminal
// outcome, or the elapsed time so far while still pending.
func (d *Delivery) Duration() time.Duration {
	if d.Outcome == OutcomePending || d.CompletedAt.IsZero() {
		return time.Since(d.CreatedAt)
	}
	return d.CompletedAt.Sub(d.CreatedAt)
}

func (d *Delivery) appendAttempt(statusCode int, errMsg string, wait time.Duration) {
	d.Attempts = append(d.Attempts, Attempt{
		Number:     len(d.Attempts) + 1,
		StatusCode: statusCode,
		Error:      errMsg,
		Wait:       wait,
		StartedAt:  time.Now(),
	})
}

func (d *Delivery) complete(outcome Outcome) {
	d.Outcome = outcome
	d.CompletedAt = time.Now()
}

// Domain errors returned by Delivery business logic methods.
var (
	// ErrDeliveryComplete indicates the delivery already reached a terminal outcome.
	ErrDeliveryComplete = DomainError{Code: "DELIVERY_COMPLETE", Message: "Delivery already completed"}

	// ErrAttemptsExhausted indicates the delivery has spent its attempt budget.
	ErrAttemptsExhausted = DomainError{Code: "ATTEMPTS_EXHAUSTED", Message: "Maximum delivery attempts exhausted"}
)

// DomainError represents a domain-level business rule violation.
type DomainError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e DomainError) Error() string {
	return e.Message
}
