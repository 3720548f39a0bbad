package eventrelay

import (
	"errors"
	"fmt"
)

// Error represents an eventrelay library error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for event relay operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeBus indicates a publish/subscribe channel operation failed.
	ErrCodeBus = "BUS_ERROR"

	// ErrCodeDelivery indicates webhook delivery failed.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeStorage indicates a processed-key store operation failed.
	ErrCodeStorage = "STORAGE_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a store lookup finds nothing.
	// This is not necessarily an error condition in all cases.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Code == ErrCodeNoData
	}
	return errors.Is(err, ErrNoData)
}
