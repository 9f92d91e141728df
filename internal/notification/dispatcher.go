package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/currency"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Locker serializes work per transaction. Concurrent notifications, or a
// notification racing the forced-authorization path, must never apply two
// incompatible transitions to the same transaction.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// LockKey is the per-transaction serialization key.
func LockKey(orderNumber string, txType transaction.Type) string {
	return fmt.Sprintf("txn:%s:%s", orderNumber, txType)
}

// TxRunner executes fn atomically against the backing store. An applied
// transition and its audit row must land together or not at all.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StateDispatcher applies validated notification events to the transaction
// state machine.
type StateDispatcher struct {
	transactions transaction.Repository
	locker       Locker
	tx           TxRunner
	logger       zerolog.Logger

	// OnTransition, when set, observes every applied transition. Used to
	// feed the transition counter without coupling this package to the
	// metrics registry.
	OnTransition func(txType transaction.Type, to transaction.Status)
}

// NewStateDispatcher creates a dispatcher over the transaction store.
func NewStateDispatcher(transactions transaction.Repository, locker Locker, tx TxRunner, logger zerolog.Logger) *StateDispatcher {
	return &StateDispatcher{
		transactions: transactions,
		locker:       locker,
		tx:           tx,
		logger:       logger,
	}
}

// Dispatch maps the event code to a transition and applies it under the
// per-transaction lock. Side effects are append-only: a notification that
// contradicts an already-applied transition is logged and rejected, never
// rolled back.
func (d *StateDispatcher) Dispatch(ctx context.Context, ord *order.Order, event Event) error {
	txType, err := transaction.TypeForEvent(event.EventCode)
	if err != nil {
		return err
	}

	return d.locker.WithLock(ctx, LockKey(ord.Number, txType), func(ctx context.Context) error {
		return d.apply(ctx, ord, event, txType)
	})
}

func (d *StateDispatcher) apply(ctx context.Context, ord *order.Order, event Event, txType transaction.Type) error {
	tx, err := d.transactions.GetByOrder(ctx, ord.Number, txType)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrTransactionNotFound) {
			return err
		}
		// An authorization result can arrive before any local transaction
		// exists, e.g. when checkout completed against the hosted page
		// directly. Other events need a transaction to modify.
		if event.EventCode != transaction.EventAuthorisation {
			return fmt.Errorf("%w: order %s type %s", domainErrors.ErrTransactionNotFound, ord.Number, txType)
		}
		tx, err = d.createFromEvent(ctx, ord, event)
		if err != nil {
			return err
		}
	}

	// A failed event must not apply a positive transition. It is recorded
	// on the audit trail and otherwise ignored.
	if !event.Success {
		d.logger.Warn().
			Str("event_code", event.EventCode).
			Str("order", ord.Number).
			Str("status", string(tx.Status)).
			Msg("unsuccessful notification recorded, no transition applied")
		return d.transactions.AddEvent(ctx, auditEvent(tx, event, "notification.failure_recorded"))
	}

	applied, err := d.transition(tx, event)
	if err != nil {
		// Invalid edge: existing state stays untouched, failure goes to the
		// audit trail and logs, never back to the gateway.
		d.logger.Error().Err(err).
			Str("event_code", event.EventCode).
			Str("order", ord.Number).
			Str("status", string(tx.Status)).
			Msg("notification rejected by state machine")
		if auditErr := d.transactions.AddEvent(ctx, auditEvent(tx, event, "notification.rejected")); auditErr != nil {
			d.logger.Error().Err(auditErr).Msg("failed to record rejected notification")
		}
		return err
	}

	if !applied {
		// Duplicate delivery: idempotent no-op, acknowledged identically.
		d.logger.Info().
			Str("event_code", event.EventCode).
			Str("order", ord.Number).
			Str("status", string(tx.Status)).
			Msg("duplicate notification ignored")
		return d.transactions.AddEvent(ctx, auditEvent(tx, event, "notification.duplicate_ignored"))
	}

	if err := d.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := d.transactions.Update(ctx, tx); err != nil {
			return err
		}
		return d.transactions.AddEvent(ctx, auditEvent(tx, event, "notification.applied"))
	}); err != nil {
		return err
	}
	if d.OnTransition != nil {
		d.OnTransition(tx.Type, tx.Status)
	}
	return nil
}

func (d *StateDispatcher) transition(tx *transaction.Transaction, event Event) (bool, error) {
	switch event.EventCode {
	case transaction.EventAuthorisation:
		if event.PspReference == "" {
			return tx.TransitionTo(transaction.StatusAuthorized)
		}
		return tx.Authorize(event.PspReference)
	case transaction.EventCapture, transaction.EventRefund:
		// A refund transaction starts pending as bookkeeping for the queued
		// modification; its confirmation walks the authorized edge first.
		if tx.Type == transaction.TypeRefund && tx.Status == transaction.StatusPending {
			if _, err := tx.TransitionTo(transaction.StatusAuthorized); err != nil {
				return false, err
			}
		}
		return tx.Capture()
	case transaction.EventCancellation:
		return tx.Cancel()
	default:
		return false, fmt.Errorf("%w: %q", domainErrors.ErrUnknownEventCode, event.EventCode)
	}
}

// createFromEvent builds the missing payment transaction for an
// authorization notification, preferring the wire amount over the order's.
func (d *StateDispatcher) createFromEvent(ctx context.Context, ord *order.Order, event Event) (*transaction.Transaction, error) {
	code := event.Fields["currency"]
	if code == "" {
		code = ord.Currency
	}
	amountMinor, err := parseWireAmount(event.Fields["value"])
	if err != nil || amountMinor == 0 {
		amountMinor, err = currency.ToMinorUnits(ord.Amount, code)
		if err != nil {
			return nil, err
		}
	}

	tx, err := transaction.New(ord.Number, transaction.TypePayment, amountMinor, code)
	if err != nil {
		return nil, err
	}
	if err := d.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func parseWireAmount(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, err
	}
	return v, nil
}

func auditEvent(tx *transaction.Transaction, event Event, eventType string) *transaction.Event {
	return &transaction.Event{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		EventType:     eventType,
		EventData: map[string]any{
			"event_code":    event.EventCode,
			"psp_reference": event.PspReference,
			"success":       event.Success,
			"live":          event.Live,
			"status":        string(tx.Status),
		},
	}
}
