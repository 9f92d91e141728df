package transaction

import (
	"time"

	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the transaction status in the state machine
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusRefused    Status = "refused"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

// Type distinguishes money-in from money-out transactions
type Type string

const (
	TypePayment Type = "payment"
	TypeRefund  Type = "refund"
)

// Transaction represents one authorization/capture/refund event tied to an
// order. Status changes are transitions, never overwrites of history: every
// applied transition is recorded as an append-only TransactionEvent.
type Transaction struct {
	ID          uuid.UUID
	OrderNumber string
	// RemoteID is the gateway-assigned reference. Nil until the first
	// accepted response, immutable afterwards.
	RemoteID     *string
	AmountMinor  int64
	CurrencyCode string
	Status       Status
	Type         Type
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a pending transaction for an order. Amount and currency are
// immutable once created.
func New(orderNumber string, txType Type, amountMinor int64, currencyCode string) (*Transaction, error) {
	if orderNumber == "" {
		return nil, errors.NewValidationError("order_number", "cannot be empty")
	}
	if len(currencyCode) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if txType != TypePayment && txType != TypeRefund {
		return nil, errors.NewValidationError("type", "must be payment or refund")
	}

	now := time.Now()
	return &Transaction{
		ID:           uuid.New(),
		OrderNumber:  orderNumber,
		AmountMinor:  amountMinor,
		CurrencyCode: currencyCode,
		Status:       StatusPending,
		Type:         txType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanTransitionTo checks if the transaction can transition to the given status
func (t *Transaction) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusAuthorized,
			StatusRefused,
			StatusCancelled,
			StatusError,
		},
		StatusAuthorized: {
			StatusCaptured,
			StatusError,
		},
		StatusCaptured:  {}, // Terminal state
		StatusRefused:   {}, // Terminal state
		StatusCancelled: {}, // Terminal state
		StatusError:     {}, // Terminal state
	}

	allowed, exists := transitions[t.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo applies a transition. A request for the status the
// transaction is already in is an idempotent no-op: applied is false and no
// error is returned, so duplicate gateway deliveries never produce a second
// state change. A disallowed edge leaves the state untouched and returns
// ErrInvalidTransition.
func (t *Transaction) TransitionTo(newStatus Status) (applied bool, err error) {
	if t.Status == newStatus {
		return false, nil
	}
	if !t.CanTransitionTo(newStatus) {
		return false, errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(newStatus),
			errors.ErrInvalidTransition,
		)
	}

	t.Status = newStatus
	t.UpdatedAt = time.Now()
	return true, nil
}

// SetRemoteID records the gateway-assigned reference. Once set it never
// changes; a conflicting value is rejected.
func (t *Transaction) SetRemoteID(remoteID string) error {
	if remoteID == "" {
		return errors.NewValidationError("remote_id", "cannot be empty")
	}
	if t.RemoteID != nil {
		if *t.RemoteID != remoteID {
			return errors.ErrRemoteIDConflict
		}
		return nil
	}
	t.RemoteID = &remoteID
	t.UpdatedAt = time.Now()
	return nil
}

// Authorize moves the transaction to authorized, recording the remote
// reference from the accepted response.
func (t *Transaction) Authorize(remoteID string) (bool, error) {
	if err := t.SetRemoteID(remoteID); err != nil {
		return false, err
	}
	return t.TransitionTo(StatusAuthorized)
}

// Pend keeps the transaction pending while recording the remote reference.
// Used when the gateway reports a not-yet-final result.
func (t *Transaction) Pend(remoteID string) (bool, error) {
	if err := t.SetRemoteID(remoteID); err != nil {
		return false, err
	}
	return t.TransitionTo(StatusPending)
}

// Capture marks the funds as moved.
func (t *Transaction) Capture() (bool, error) {
	return t.TransitionTo(StatusCaptured)
}

// Refuse marks the authorization as refused by the gateway.
func (t *Transaction) Refuse() (bool, error) {
	return t.TransitionTo(StatusRefused)
}

// Cancel marks the transaction as cancelled by the shopper or gateway.
func (t *Transaction) Cancel() (bool, error) {
	return t.TransitionTo(StatusCancelled)
}

// Fail marks the transaction as errored.
func (t *Transaction) Fail() (bool, error) {
	return t.TransitionTo(StatusError)
}

// IsTerminal checks if the transaction is in a terminal state
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCaptured ||
		t.Status == StatusRefused ||
		t.Status == StatusCancelled ||
		t.Status == StatusError
}
