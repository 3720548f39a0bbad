package eventrelay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/eventrelay/model"
	"github.com/coregx/eventrelay/retry"
)

// fastStrategy keeps tests quick while preserving the retry shape.
func fastStrategy() retry.Strategy {
	return retry.Strategy{
		MaxAttempts:     5,
		BaseDelay:       time.Millisecond,
		ExponentialBase: 2.0,
	}
}

// recordingServer captures every request the sender makes.
type recordingServer struct {
	mu       sync.Mutex
	keys     []string
	statuses []int
	next     func(attempt int) int // attempt is 1-based
}

func newRecordingServer(next func(attempt int) int) (*recordingServer, *httptest.Server) {
	rs := &recordingServer{next: next}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.keys = append(rs.keys, r.Header.Get(IdempotencyKeyHeader))
		attempt := len(rs.keys)
		status := rs.next(attempt)
		rs.statuses = append(rs.statuses, status)
		rs.mu.Unlock()
		w.WriteHeader(status)
	}))
	return rs, ts
}

func (rs *recordingServer) requestCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.keys)
}

func (rs *recordingServer) recordedKeys() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.keys...)
}

func TestNewWebhookSender_RequiresLogger(t *testing.T) {
	_, err := NewWebhookSender()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeConfiguration)
}

func TestNewWebhookSender_RejectsEmptyBudget(t *testing.T) {
	_, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(retry.Strategy{MaxAttempts: 0}),
	)
	assert.Error(t, err)
}

func TestWebhookSender_Send_SuccessFirstAttempt(t *testing.T) {
	rs, ts := newRecordingServer(func(int) int { return http.StatusOK })
	defer ts.Close()

	sender, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(fastStrategy()),
		WithKeyGenerator(func() string { return "test-key-1" }),
	)
	require.NoError(t, err)

	delivery, err := sender.Send(context.Background(), ts.URL, []byte(`{"order_id":"1"}`))
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeDelivered, delivery.Outcome)
	assert.Equal(t, 1, delivery.AttemptCount())
	assert.Equal(t, "test-key-1", delivery.IdempotencyKey)
	assert.Equal(t, 1, rs.requestCount())
	assert.Equal(t, []string{"test-key-1"}, rs.recordedKeys())
}

func TestWebhookSender_Send_PermanentFailureNoRetry(t *testing.T) {
	rs, ts := newRecordingServer(func(int) int { return http.StatusBadRequest })
	defer ts.Close()

	sender, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(fastStrategy()),
	)
	require.NoError(t, err)

	delivery, err := sender.Send(context.Background(), ts.URL, nil)
	require.NoError(t, err)

	// 4xx is terminal: exactly one attempt, no retries
	assert.Equal(t, model.OutcomePermanentlyFailed, delivery.Outcome)
	assert.Equal(t, 1, delivery.AttemptCount())
	assert.Equal(t, 1, rs.requestCount())

	last, ok := delivery.LastAttempt()
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, last.StatusCode)
}

func TestWebhookSender_Send_RetriesThenSucceeds(t *testing.T) {
	rs, ts := newRecordingServer(func(attempt int) int {
		if attempt < 3 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})
	defer ts.Close()

	sender, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(fastStrategy()),
	)
	require.NoError(t, err)

	delivery, err := sender.Send(context.Background(), ts.URL, []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeDelivered, delivery.Outcome)
	assert.Equal(t, 3, delivery.AttemptCount())
	assert.Equal(t, 3, rs.requestCount())

	// The same idempotency key rides every attempt
	keys := rs.recordedKeys()
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])

	// Recorded waits follow the doubling schedule
	assert.Equal(t, 1*time.Millisecond, delivery.Attempts[0].Wait)
	assert.Equal(t, 2*time.Millisecond, delivery.Attempts[1].Wait)
	assert.Equal(t, time.Duration(0), delivery.Attempts[2].Wait)
}

func TestWebhookSender_Send_ExhaustsRetries(t *testing.T) {
	rs, ts := newRecordingServer(func(int) int { return http.StatusInternalServerError })
	defer ts.Close()

	var deadLetters []model.DeadLetter
	notifier := &captureNotifications{letters: &deadLetters}

	sender, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(fastStrategy()),
		WithSenderNotifications(notifier),
	)
	require.NoError(t, err)

	delivery, err := sender.Send(context.Background(), ts.URL, []byte(`{"order_id":"1"}`))
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeExhaustedRetries, delivery.Outcome)
	assert.Equal(t, 5, delivery.AttemptCount())
	assert.Equal(t, 5, rs.requestCount())

	// No backoff is scheduled after the final attempt
	last, ok := delivery.LastAttempt()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), last.Wait)

	// The exhausted delivery is handed to the dead-letter notification
	require.Len(t, deadLetters, 1)
	assert.Equal(t, delivery.IdempotencyKey, deadLetters[0].IdempotencyKey)
	assert.Equal(t, 5, deadLetters[0].AttemptCount)
	assert.Equal(t, http.StatusInternalServerError, deadLetters[0].LastStatusCode)

	// One failure notification per failed attempt
	assert.Equal(t, 5, notifier.failures)
}

func TestWebhookSender_Send_NetworkErrorIsTransient(t *testing.T) {
	// A closed server produces a transport error on every attempt
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	sender, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(fastStrategy()),
	)
	require.NoError(t, err)

	delivery, err := sender.Send(context.Background(), url, nil)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeExhaustedRetries, delivery.Outcome)
	assert.Equal(t, 5, delivery.AttemptCount())
	assert.NotEmpty(t, delivery.LastError())

	last, _ := delivery.LastAttempt()
	assert.Equal(t, 0, last.StatusCode)
}

func TestWebhookSender_Send_ContextCancelDuringBackoff(t *testing.T) {
	rs, ts := newRecordingServer(func(int) int { return http.StatusInternalServerError })
	defer ts.Close()

	sender, err := NewWebhookSender(
		WithSenderLogger(&NoopLogger{}),
		WithRetryStrategy(retry.Strategy{
			MaxAttempts:     5,
			BaseDelay:       10 * time.Second, // long enough to cancel into
			ExponentialBase: 2.0,
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	delivery, err := sender.Send(ctx, ts.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeDelivery)

	// Only the first attempt ran; the cancel hit during its backoff
	assert.Equal(t, 1, rs.requestCount())
	assert.Equal(t, model.OutcomePending, delivery.Outcome)
}

func TestWebhookSender_Send_RequiresURL(t *testing.T) {
	sender, err := NewWebhookSender(WithSenderLogger(&NoopLogger{}))
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), "", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeValidation)
}

func TestWebhookSender_Schedule(t *testing.T) {
	sender, err := NewWebhookSender(WithSenderLogger(&NoopLogger{}))
	require.NoError(t, err)

	schedule := sender.Schedule()
	assert.Contains(t, schedule, "Attempt 1: immediate")
	assert.Contains(t, schedule, "Attempt 5: after 8s")
}

// captureNotifications records sender notifications for assertions.
type captureNotifications struct {
	mu       sync.Mutex
	failures int
	letters  *[]model.DeadLetter
}

func (c *captureNotifications) NotifyDeliveryFailure(_ context.Context, _ *model.Delivery, _ model.Attempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	return nil
}

func (c *captureNotifications) NotifyDeadLetter(_ context.Context, letter model.DeadLetter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.letters = append(*c.letters, letter)
	return nil
}
