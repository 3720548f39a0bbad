package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDelivery(t *testing.T) {
	before := time.Now()
	d := NewDelivery("key-1", "http://localhost:8081/webhook/order", []byte(`{"order_id":"1"}`))
	after := time.Now()

	assert.Equal(t, "key-1", d.IdempotencyKey)
	assert.Equal(t, "http://localhost:8081/webhook/order", d.EndpointURL)
	assert.Equal(t, []byte(`{"order_id":"1"}`), d.Payload)
	assert.Equal(t, OutcomePending, d.Outcome)
	assert.Equal(t, 0, d.AttemptCount())
	assert.WithinDuration(t, before, d.CreatedAt, time.Second)
	assert.True(t, d.CreatedAt.Before(after.Add(time.Second)))
}

func TestDelivery_CanAttempt(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*Delivery)
		maxAttempts int
		expectedErr error
	}{
		{
			name:        "Fresh delivery can attempt",
			setup:       func(d *Delivery) {},
			maxAttempts: 5,
			expectedErr: nil,
		},
		{
			name: "Delivered delivery cannot attempt",
			setup: func(d *Delivery) {
				d.RecordDelivered(200)
			},
			maxAttempts: 5,
			expectedErr: ErrDeliveryComplete,
		},
		{
			name: "Permanently failed delivery cannot attempt",
			setup: func(d *Delivery) {
				d.RecordPermanentFailure(400)
			},
			maxAttempts: 5,
			expectedErr: ErrDeliveryComplete,
		},
		{
			name: "Budget spent",
			setup: func(d *Delivery) {
				for i := 0; i < 5; i++ {
					d.RecordTransientFailure(500, nil, 0)
				}
			},
			maxAttempts: 5,
			expectedErr: ErrAttemptsExhausted,
		},
		{
			name: "One attempt left",
			setup: func(d *Delivery) {
				for i := 0; i < 4; i++ {
					d.RecordTransientFailure(500, nil, 0)
				}
			},
			maxAttempts: 5,
			expectedErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDelivery("key", "http://example.com", nil)
			tt.setup(&d)

			err := d.CanAttempt(tt.maxAttempts)
			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v, want %v", err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDelivery_RecordDelivered(t *testing.T) {
	d := NewDelivery("key", "http://example.com", nil)
	d.RecordTransientFailure(503, nil, time.Second)
	d.RecordDelivered(200)

	assert.Equal(t, OutcomeDelivered, d.Outcome)
	assert.Equal(t, 2, d.AttemptCount())
	assert.False(t, d.CompletedAt.IsZero())

	last, ok := d.LastAttempt()
	assert.True(t, ok)
	assert.Equal(t, 2, last.Number)
	assert.Equal(t, 200, last.StatusCode)
	assert.Equal(t, time.Duration(0), last.Wait)
}

func TestDelivery_RecordPermanentFailure(t *testing.T) {
	d := NewDelivery("key", "http://example.com", nil)
	d.RecordPermanentFailure(422)

	assert.Equal(t, OutcomePermanentlyFailed, d.Outcome)
	assert.Equal(t, 1, d.AttemptCount())

	last, _ := d.LastAttempt()
	assert.Equal(t, 422, last.StatusCode)
}

func TestDelivery_RecordTransientFailure(t *testing.T) {
	d := NewDelivery("key", "http://example.com", nil)

	d.RecordTransientFailure(500, nil, 1*time.Second)
	d.RecordTransientFailure(0, errors.New("connection refused"), 2*time.Second)

	// Transient failures do not terminate the delivery
	assert.Equal(t, OutcomePending, d.Outcome)
	assert.Equal(t, 2, d.AttemptCount())
	assert.Equal(t, "connection refused", d.LastError())

	assert.Equal(t, 1*time.Second, d.Attempts[0].Wait)
	assert.Equal(t, 500, d.Attempts[0].StatusCode)
	assert.Equal(t, 2*time.Second, d.Attempts[1].Wait)
	assert.Equal(t, 0, d.Attempts[1].StatusCode)
}

func TestDelivery_MarkExhausted(t *testing.T) {
	d := NewDelivery("key", "http://example.com", nil)
	for i := 0; i < 5; i++ {
		d.RecordTransientFailure(500, nil, 0)
	}
	d.MarkExhausted()

	assert.Equal(t, OutcomeExhaustedRetries, d.Outcome)
	assert.False(t, d.CompletedAt.IsZero())

	// Exhausting an already terminal delivery is a no-op
	d2 := NewDelivery("key2", "http://example.com", nil)
	d2.RecordDelivered(200)
	d2.MarkExhausted()
	assert.Equal(t, OutcomeDelivered, d2.Outcome)
}

func TestDelivery_LastAttempt_Empty(t *testing.T) {
	d := NewDelivery("key", "http://example.com", nil)

	_, ok := d.LastAttempt()
	assert.False(t, ok)
	assert.Equal(t, "", d.LastError())
}

func TestDelivery_Duration(t *testing.T) {
	d := NewDelivery("key", "http://example.com", nil)

	// Pending: elapsed so far
	assert.GreaterOrEqual(t, d.Duration(), time.Duration(0))

	d.RecordDelivered(200)
	assert.Equal(t, d.CompletedAt.Sub(d.CreatedAt), d.Duration())
}
