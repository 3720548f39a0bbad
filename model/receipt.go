package model

import "time"

// ReceiptStatus represents the receiver-side outcome of one inbound delivery attempt.
type ReceiptStatus string

const (
	// ReceiptAccepted indicates the payload was processed and its idempotency key
	// committed. Exactly one Accepted receipt is ever produced per distinct key.
	ReceiptAccepted ReceiptStatus = "accepted"

	// ReceiptDuplicate indicates the idempotency key was already processed.
	// Duplicates are a success path, not an error: the sender sees HTTP 200.
	ReceiptDuplicate ReceiptStatus = "duplicate"

	// ReceiptTransientFailure indicates a simulated transient fault. The key is
	// NOT committed, so a later retry of the same delivery can still succeed.
	ReceiptTransientFailure ReceiptStatus = "transient_failure"
)

// DeadLetter represents a delivery that exhausted all retry attempts.
// It is handed to the NotificationService so an integrator can alert,
// park, or replay the payload; the core itself does not store it.
//
// Business logic methods:
//   - Resolve: Mark the letter as manually handled
//   - GetAge: Time since the delivery was given up on
//   - IsOld: Check if the letter needs attention
type DeadLetter struct {
	IdempotencyKey string `json:"idempotencyKey"`
	EndpointURL    string `json:"endpointURL"`
	Payload        []byte `json:"payload"`

	// Failure information
	AttemptCount   int    `json:"attemptCount"`   // Total attempts before giving up
	LastError      string `json:"lastError"`      // Last transport/server error message
	LastStatusCode int    `json:"lastStatusCode"` // Last HTTP status (0 on transport error)

	// Timing information
	FirstAttemptAt time.Time `json:"firstAttemptAt"`
	LastAttemptAt  time.Time `json:"lastAttemptAt"`

	// Lifecycle
	IsResolved     bool       `json:"isResolved"`
	ResolvedAt     *time.Time `json:"resolvedAt"`
	ResolvedBy     string     `json:"resolvedBy"`
	ResolutionNote string     `json:"resolutionNote"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewDeadLetter builds a dead letter from an exhausted delivery.
// Called by the sender when the final attempt fails transiently.
func NewDeadLetter(d Delivery) DeadLetter {
	letter := DeadLetter{
		IdempotencyKey: d.IdempotencyKey,
		EndpointURL:    d.EndpointURL,
		Payload:        d.Payload,
		AttemptCount:   d.AttemptCount(),
		CreatedAt:      time.Now(),
	}

	if first := d.Attempts; len(first) > 0 {
		letter.FirstAttemptAt = first[0].StartedAt
	}
	if last, ok := d.LastAttempt(); ok {
		letter.LastAttemptAt = last.StartedAt
		letter.LastError = last.Error
		letter.LastStatusCode = last.StatusCode
	}

	return letter
}

// Resolve marks the dead letter as manually handled by an operator,
// typically after a replay or after deciding the failure is acceptable.
func (l *DeadLetter) Resolve(resolvedBy, note string) {
	now := time.Now()
	l.IsResolved = true
	l.ResolvedAt = &now
	l.ResolvedBy = resolvedBy
	l.ResolutionNote = note
}

// GetAge returns how long ago the delivery was given up on.
func (l *DeadLetter) GetAge() time.Duration {
	return time.Since(l.CreatedAt)
}

// IsOld checks if the letter has been unresolved longer than the threshold.
func (l *DeadLetter) IsOld(threshold time.Duration) bool {
	return !l.IsResolved && l.GetAge() > threshold
}
