package transaction

import (
	"testing"

	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending(t *testing.T) *Transaction {
	t.Helper()
	tx, err := New("ORDER-100", TypePayment, 1099, "EUR")
	require.NoError(t, err)
	return tx
}

func TestNew(t *testing.T) {
	tx, err := New("ORDER-100", TypePayment, 1099, "EUR")
	require.NoError(t, err)

	assert.NotEqual(t, "", tx.ID.String())
	assert.Equal(t, "ORDER-100", tx.OrderNumber)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, TypePayment, tx.Type)
	assert.Equal(t, int64(1099), tx.AmountMinor)
	assert.Equal(t, "EUR", tx.CurrencyCode)
	assert.Nil(t, tx.RemoteID)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		orderNumber string
		txType      Type
		currency    string
	}{
		{"empty order number", "", TypePayment, "EUR"},
		{"bad currency", "ORDER-100", TypePayment, "EURO"},
		{"bad type", "ORDER-100", Type("chargeback"), "EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.orderNumber, tt.txType, 100, tt.currency)
			assert.Error(t, err)
		})
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusAuthorized, true},
		{StatusPending, StatusRefused, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusError, true},
		{StatusPending, StatusCaptured, false},
		{StatusAuthorized, StatusCaptured, true},
		{StatusAuthorized, StatusError, true},
		{StatusAuthorized, StatusRefused, false},
		{StatusAuthorized, StatusCancelled, false},
		{StatusAuthorized, StatusPending, false},
		{StatusCaptured, StatusRefused, false},
		{StatusCaptured, StatusError, false},
		{StatusRefused, StatusAuthorized, false},
		{StatusCancelled, StatusAuthorized, false},
		{StatusError, StatusAuthorized, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			tx := newPending(t)
			tx.Status = tt.from
			assert.Equal(t, tt.allowed, tx.CanTransitionTo(tt.to))
		})
	}
}

func TestTransitionTo_InvalidEdge(t *testing.T) {
	tx := newPending(t)
	tx.Status = StatusCaptured

	applied, err := tx.TransitionTo(StatusRefused)
	assert.False(t, applied)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	// State stays untouched on rejection.
	assert.Equal(t, StatusCaptured, tx.Status)
}

func TestTransitionTo_DuplicateIsNoOp(t *testing.T) {
	tx := newPending(t)
	tx.Status = StatusAuthorized

	applied, err := tx.TransitionTo(StatusAuthorized)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, StatusAuthorized, tx.Status)
}

func TestSetRemoteID(t *testing.T) {
	tx := newPending(t)

	require.NoError(t, tx.SetRemoteID("psp-123"))
	require.NotNil(t, tx.RemoteID)
	assert.Equal(t, "psp-123", *tx.RemoteID)

	// Same value again is idempotent.
	require.NoError(t, tx.SetRemoteID("psp-123"))

	// A different value is a conflict: the reference never changes once set.
	err := tx.SetRemoteID("psp-456")
	assert.ErrorIs(t, err, errors.ErrRemoteIDConflict)
	assert.Equal(t, "psp-123", *tx.RemoteID)
}

func TestSetRemoteID_Empty(t *testing.T) {
	tx := newPending(t)
	assert.Error(t, tx.SetRemoteID(""))
}

func TestAuthorize(t *testing.T) {
	tx := newPending(t)

	applied, err := tx.Authorize("psp-123")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, StatusAuthorized, tx.Status)
	require.NotNil(t, tx.RemoteID)
	assert.Equal(t, "psp-123", *tx.RemoteID)

	// Duplicate authorization: no-op, no error.
	applied, err = tx.Authorize("psp-123")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestPend(t *testing.T) {
	tx := newPending(t)

	applied, err := tx.Pend("psp-123")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, StatusPending, tx.Status)
	require.NotNil(t, tx.RemoteID)
	assert.Equal(t, "psp-123", *tx.RemoteID)
}

func TestCaptureLifecycle(t *testing.T) {
	tx := newPending(t)

	_, err := tx.Capture()
	assert.ErrorIs(t, err, errors.ErrInvalidTransition, "capture from pending must be rejected")

	_, err = tx.Authorize("psp-123")
	require.NoError(t, err)

	applied, err := tx.Capture()
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, StatusCaptured, tx.Status)
	assert.True(t, tx.IsTerminal())
}

func TestRefuseCancelFail(t *testing.T) {
	tests := []struct {
		name     string
		apply    func(tx *Transaction) (bool, error)
		expected Status
	}{
		{"refuse", func(tx *Transaction) (bool, error) { return tx.Refuse() }, StatusRefused},
		{"cancel", func(tx *Transaction) (bool, error) { return tx.Cancel() }, StatusCancelled},
		{"fail", func(tx *Transaction) (bool, error) { return tx.Fail() }, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newPending(t)
			applied, err := tt.apply(tx)
			require.NoError(t, err)
			assert.True(t, applied)
			assert.Equal(t, tt.expected, tx.Status)
			assert.True(t, tx.IsTerminal())
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusCaptured, StatusRefused, StatusCancelled, StatusError}
	open := []Status{StatusPending, StatusAuthorized}

	tx := newPending(t)
	for _, s := range terminal {
		tx.Status = s
		assert.True(t, tx.IsTerminal(), string(s))
	}
	for _, s := range open {
		tx.Status = s
		assert.False(t, tx.IsTerminal(), string(s))
	}
}
