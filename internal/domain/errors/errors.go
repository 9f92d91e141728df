package errors

import (
	"errors"
	"fmt"
)

var (
	// Currency errors
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// Transaction errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrRemoteIDConflict    = errors.New("remote reference already set")

	// Notification errors
	ErrUnknownEventCode  = errors.New("unknown notification event code")
	ErrOrderNotLocatable = errors.New("order cannot be located from notification")

	// Order errors
	ErrOrderNotFound = errors.New("order not found")

	// Modification errors
	ErrModificationNotAcknowledged = errors.New("modification request was not acknowledged by the gateway")
	ErrMissingRemoteReference      = errors.New("transaction has no remote reference")
	ErrUnsupportedAction           = errors.New("unsupported modification action")

	// Gateway errors. ErrGatewayUnreachable means the outcome of the call is
	// unknown: it must never be treated as a refusal or a success.
	ErrGatewayUnreachable = errors.New("gateway unreachable")

	// Authorization outcomes. These are normal terminal results surfaced to
	// the shopper, not internal faults.
	ErrPaymentRefused   = errors.New("payment authorization was not successful")
	ErrPaymentCancelled = errors.New("payment has been cancelled")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
