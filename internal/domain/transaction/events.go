package transaction

import (
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/errors"
)

// Gateway notification event codes.
const (
	EventAuthorisation = "AUTHORISATION"
	EventCapture       = "CAPTURE"
	EventRefund        = "REFUND"
	EventCancellation  = "CANCELLATION"
)

// Gateway authentication result codes returned on an outbound
// authorization call.
const (
	ResultAuthorised = "AUTHORISED"
	ResultPending    = "PENDING"
	ResultRefused    = "REFUSED"
	ResultCancelled  = "CANCELLED"
	ResultError      = "ERROR"
)

// TypeForEvent returns the transaction type an event code applies to.
// Capture confirmations settle the payment transaction; refund
// confirmations settle the refund transaction.
func TypeForEvent(eventCode string) (Type, error) {
	switch eventCode {
	case EventAuthorisation, EventCapture, EventCancellation:
		return TypePayment, nil
	case EventRefund:
		return TypeRefund, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownEventCode, eventCode)
	}
}

// StatusForEvent maps a successful notification event to the status it
// drives the transaction towards. The success flag is enforced by the
// dispatcher, not here.
func StatusForEvent(eventCode string) (Status, error) {
	switch eventCode {
	case EventAuthorisation:
		return StatusAuthorized, nil
	case EventCapture, EventRefund:
		return StatusCaptured, nil
	case EventCancellation:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownEventCode, eventCode)
	}
}

// StatusForResult maps an authentication result code from an outbound
// authorization response to a transaction status.
func StatusForResult(result string) (Status, error) {
	switch result {
	case ResultAuthorised:
		return StatusAuthorized, nil
	case ResultPending:
		return StatusPending, nil
	case ResultRefused:
		return StatusRefused, nil
	case ResultCancelled:
		return StatusCancelled, nil
	case ResultError:
		return StatusError, nil
	default:
		return "", fmt.Errorf("%w: result code %q", errors.ErrUnknownEventCode, result)
	}
}
