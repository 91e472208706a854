package domain

import "errors"

// Domain errors
var (
	// Lookup errors
	ErrTicketNotFound = errors.New("ticket not found")
	ErrEventNotFound  = errors.New("event not found")

	// Conflict errors
	ErrAlreadyValidated = errors.New("ticket already validated")
	ErrReplayRace       = errors.New("concurrent scan log append detected")

	// Reference errors
	ErrInvalidReference = errors.New("invalid ticket or event reference")

	// Transition errors
	ErrInvalidTransition = errors.New("invalid ticket status transition")

	// Validation errors
	ErrInvalidTicketID   = errors.New("invalid ticket id")
	ErrInvalidEventID    = errors.New("invalid event id")
	ErrInvalidTicketCode = errors.New("invalid ticket code")
	ErrInvalidDeviceID   = errors.New("invalid device id")
	ErrInvalidLocation   = errors.New("invalid scan location")
	ErrBatchTooLarge     = errors.New("batch exceeds maximum size")
	ErrBatchEmpty        = errors.New("batch contains no items")

	// Transient errors
	ErrSerializationFailure = errors.New("serialization failure")
	ErrDeadlockDetected     = errors.New("deadlock detected")
	ErrRetryExhausted       = errors.New("transient retry budget exhausted")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTicketNotFound) || errors.Is(err, ErrEventNotFound)
}

// IsValidationError checks if the error is a request validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTicketID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidTicketCode) ||
		errors.Is(err, ErrInvalidDeviceID) ||
		errors.Is(err, ErrInvalidLocation) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrBatchEmpty)
}

// IsTransientError checks if the error may succeed on retry
func IsTransientError(err error) bool {
	return errors.Is(err, ErrSerializationFailure) ||
		errors.Is(err, ErrDeadlockDetected)
}
