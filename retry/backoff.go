// Package retry provides the exponential backoff strategy for webhook delivery.
// The backoff is deterministic (no jitter): delays double per attempt and are
// bounded by the fixed attempt budget rather than a maximum-wait ceiling.
package retry

import (
	"fmt"
	"math"
	"time"
)

// Strategy defines the retry behavior for failed webhook deliveries.
//
// The wait before retry k follows: delay = BaseDelay * ExponentialBase^retryIndex,
// with retryIndex starting at 0 for the first retry.
//
// Example with defaults (5 attempts, 1s base, 2.0 exponential, no cap):
//
//	Attempt 1: immediate
//	Attempt 2: after 1s
//	Attempt 3: after 2s
//	Attempt 4: after 4s
//	Attempt 5: after 8s
//	(16s would precede a 6th attempt, but the budget is spent)
type Strategy struct {
	MaxAttempts     int           // Maximum delivery attempts before giving up
	BaseDelay       time.Duration // Wait before the first retry
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
	MaxDelay        time.Duration // Maximum wait cap (0 = uncapped)
}

// DefaultStrategy returns the default delivery retry strategy:
// 5 attempts, 1s base delay doubling per retry, no delay cap.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     5,
		BaseDelay:       time.Second,
		ExponentialBase: 2.0,
		MaxDelay:        0,
	}
}

// Delay calculates the wait before the retry with the given 0-based index.
// Formula: delay = BaseDelay * ExponentialBase^retryIndex, capped at MaxDelay
// when a cap is configured.
//
// A negative index returns BaseDelay.
func (s Strategy) Delay(retryIndex int) time.Duration {
	if retryIndex <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(retryIndex))

	if s.MaxDelay > 0 && delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another delivery attempt is allowed.
// Returns true while the attempt count is below the budget.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// Schedule returns a human-readable description of the retry schedule.
// Useful for debugging and for displaying retry behavior in logs.
//
// Example output:
//
//	Delivery Schedule:
//	  Attempt 1: immediate
//	  Attempt 2: after 1s
//	  ...
//	  Attempt 5: after 8s
//	  → Give up (dead-letter)
func (s Strategy) Schedule() string {
	schedule := "Delivery Schedule:\n"
	schedule += "  Attempt 1: immediate\n"
	for i := 2; i <= s.MaxAttempts; i++ {
		schedule += fmt.Sprintf("  Attempt %d: after %v\n", i, s.Delay(i-2))
	}
	schedule += "  → Give up (dead-letter)\n"
	return schedule
}
