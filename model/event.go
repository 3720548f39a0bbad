// Package model contains all domain models and data structures for the event relay system.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Event represents something that happened in the publishing system,
// broadcast to interested subscribers via a named channel.
//
// Events are immutable once created and have no independent storage:
// an event exists exactly for the duration of one publish/dispatch cycle.
// If no subscriber is listening when the event is published, it is lost
// (the channel is not durable).
//
// Consumers pattern-match on Type, which is an open enumeration
// (e.g. "BookBorrowed"). Data carries the domain payload as an opaque
// string-keyed map (e.g. userId, bookId, title, borrowDate).
type Event struct {
	Type      string            `json:"eventType"` // Event type tag (open enumeration)
	Timestamp time.Time         `json:"timestamp"` // Creation time, UTC
	Data      map[string]string `json:"data"`      // Opaque domain payload
}

// NewEvent creates a new event with the current UTC timestamp.
// The data map is copied so later mutation by the caller cannot
// change an already published event.
func NewEvent(eventType string, data map[string]string) Event {
	var copied map[string]string
	if data != nil {
		copied = make(map[string]string, len(data))
		for k, v := range data {
			copied[k] = v
		}
	}

	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      copied,
	}
}

// Validate checks that the event is well-formed for publication.
// Type is required and bounded; Timestamp must be set.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.Length(1, 128)),
		validation.Field(&e.Timestamp, validation.Required),
	)
}

// Get returns the payload value for key, or the empty string when absent.
func (e Event) Get(key string) string {
	return e.Data[key]
}
