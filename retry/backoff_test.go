package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()

	assert.Equal(t, 5, s.MaxAttempts)
	assert.Equal(t, time.Second, s.BaseDelay)
	assert.Equal(t, 2.0, s.ExponentialBase)
	assert.Equal(t, time.Duration(0), s.MaxDelay)
}

func TestStrategy_Delay(t *testing.T) {
	tests := []struct {
		name       string
		strategy   Strategy
		retryIndex int
		expected   time.Duration
	}{
		{
			name:       "First retry waits base delay",
			strategy:   DefaultStrategy(),
			retryIndex: 0,
			expected:   1 * time.Second,
		},
		{
			name:       "Second retry doubles",
			strategy:   DefaultStrategy(),
			retryIndex: 1,
			expected:   2 * time.Second,
		},
		{
			name:       "Third retry doubles again",
			strategy:   DefaultStrategy(),
			retryIndex: 2,
			expected:   4 * time.Second,
		},
		{
			name:       "Fourth retry",
			strategy:   DefaultStrategy(),
			retryIndex: 3,
			expected:   8 * time.Second,
		},
		{
			name:       "Growth is uncapped without MaxDelay",
			strategy:   DefaultStrategy(),
			retryIndex: 10,
			expected:   1024 * time.Second,
		},
		{
			name:       "Negative index falls back to base delay",
			strategy:   DefaultStrategy(),
			retryIndex: -1,
			expected:   1 * time.Second,
		},
		{
			name: "MaxDelay caps the wait",
			strategy: Strategy{
				MaxAttempts:     10,
				BaseDelay:       time.Second,
				ExponentialBase: 2.0,
				MaxDelay:        5 * time.Second,
			},
			retryIndex: 4, // would be 16s uncapped
			expected:   5 * time.Second,
		},
		{
			name: "Custom exponential base",
			strategy: Strategy{
				MaxAttempts:     5,
				BaseDelay:       100 * time.Millisecond,
				ExponentialBase: 3.0,
			},
			retryIndex: 2,
			expected:   900 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.strategy.Delay(tt.retryIndex))
		})
	}
}

func TestStrategy_DelaySequence(t *testing.T) {
	// The full default backoff sequence: 1s, 2s, 4s, 8s precede attempts 2..5.
	s := DefaultStrategy()

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}

	for i, want := range expected {
		assert.Equal(t, want, s.Delay(i), "retry index %d", i)
	}
}

func TestStrategy_IsRetryable(t *testing.T) {
	tests := []struct {
		name         string
		attemptCount int
		expected     bool
	}{
		{"No attempts yet", 0, true},
		{"One attempt made", 1, true},
		{"Four attempts made", 4, true},
		{"Budget spent", 5, false},
		{"Past the budget", 6, false},
	}

	s := DefaultStrategy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.IsRetryable(tt.attemptCount))
		})
	}
}

func TestStrategy_Schedule(t *testing.T) {
	schedule := DefaultStrategy().Schedule()

	assert.Contains(t, schedule, "Attempt 1: immediate")
	assert.Contains(t, schedule, "Attempt 2: after 1s")
	assert.Contains(t, schedule, "Attempt 3: after 2s")
	assert.Contains(t, schedule, "Attempt 4: after 4s")
	assert.Contains(t, schedule, "Attempt 5: after 8s")
	assert.Contains(t, schedule, "Give up (dead-letter)")
	assert.NotContains(t, schedule, "Attempt 6")
}

func BenchmarkStrategy_Delay(b *testing.B) {
	s := DefaultStrategy()
	for i := 0; i < b.N; i++ {
		_ = s.Delay(i % 5)
	}
}

func BenchmarkStrategy_IsRetryable(b *testing.B) {
	s := DefaultStrategy()
	for i := 0; i < b.N; i++ {
		_ = s.IsRetryable(i % 6)
	}
}
