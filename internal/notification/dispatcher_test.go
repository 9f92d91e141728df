package notification

import (
	"context"
	"testing"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(repo *testutil.MockTransactionRepository, locker *testutil.InlineLocker) *StateDispatcher {
	return NewStateDispatcher(repo, locker, testutil.InlineTxRunner{}, zerolog.Nop())
}

func successEvent(code, orderNumber, psp string) Event {
	return Normalize(map[string]string{
		FieldEventCode:         code,
		FieldMerchantReference: orderNumber,
		FieldPspReference:      psp,
		FieldSuccess:           "true",
	})
}

func TestDispatch_AuthorisationAppliesTransition(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	tx := testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR")
	repo.Add(tx)

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent(transaction.EventAuthorisation, "ORDER-100", "psp-123"))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusAuthorized, tx.Status)
	require.NotNil(t, tx.RemoteID)
	assert.Equal(t, "psp-123", *tx.RemoteID)
	assert.Equal(t, []string{"notification.applied"}, repo.EventTypes(tx.ID))
	assert.Equal(t, []string{"txn:ORDER-100:payment"}, locker.Keys)
}

func TestDispatch_DuplicateIsIdempotentNoOp(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	tx := testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123")
	repo.Add(tx)

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent(transaction.EventAuthorisation, "ORDER-100", "psp-123"))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusAuthorized, tx.Status)
	assert.Equal(t, []string{"notification.duplicate_ignored"}, repo.EventTypes(tx.ID))
}

func TestDispatch_FailedEventRecordedNotApplied(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	tx := testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR")
	repo.Add(tx)

	event := Normalize(map[string]string{
		FieldEventCode:         transaction.EventAuthorisation,
		FieldMerchantReference: "ORDER-100",
		FieldSuccess:           "false",
	})

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, event)
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusPending, tx.Status, "failed event must not apply a positive transition")
	assert.Equal(t, []string{"notification.failure_recorded"}, repo.EventTypes(tx.ID))
}

func TestDispatch_InvalidTransitionRejected(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	tx := testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR")
	tx.Status = transaction.StatusCaptured
	repo.Add(tx)

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent(transaction.EventCancellation, "ORDER-100", "psp-123"))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)

	// Existing state stays untouched, rejection lands on the audit trail.
	assert.Equal(t, transaction.StatusCaptured, tx.Status)
	assert.Equal(t, []string{"notification.rejected"}, repo.EventTypes(tx.ID))
}

func TestDispatch_UnknownEventCode(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent("REPORT_AVAILABLE", "ORDER-100", ""))
	assert.ErrorIs(t, err, domainErrors.ErrUnknownEventCode)
}

func TestDispatch_AuthorisationCreatesMissingTransaction(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}

	event := Normalize(map[string]string{
		FieldEventCode:         transaction.EventAuthorisation,
		FieldMerchantReference: "ORDER-100",
		FieldPspReference:      "psp-123",
		FieldSuccess:           "true",
		"value":                "1099",
		"currency":             "EUR",
	})

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, event)
	require.NoError(t, err)

	tx, err := repo.GetByOrder(context.Background(), "ORDER-100", transaction.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusAuthorized, tx.Status)
	assert.Equal(t, int64(1099), tx.AmountMinor)
	assert.Equal(t, "EUR", tx.CurrencyCode)
}

func TestDispatch_CaptureNeedsExistingTransaction(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent(transaction.EventCapture, "ORDER-100", "psp-123"))
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
}

func TestDispatch_CaptureSettlesAuthorizedPayment(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	tx := testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123")
	repo.Add(tx)

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent(transaction.EventCapture, "ORDER-100", "psp-123"))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusCaptured, tx.Status)
}

func TestDispatch_RefundConfirmationSettlesPendingRefund(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}

	payment := testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123")
	repo.Add(payment)
	refund := testutil.NewTestTransaction("ORDER-100", transaction.TypeRefund, 1099, "EUR")
	require.NoError(t, refund.SetRemoteID("psp-123"))
	repo.Add(refund)

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := newDispatcher(repo, locker).Dispatch(context.Background(), ord, successEvent(transaction.EventRefund, "ORDER-100", "psp-456"))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusCaptured, refund.Status)
	assert.Equal(t, transaction.StatusAuthorized, payment.Status, "refund settles the refund transaction, not the payment")
	assert.Equal(t, []string{"txn:ORDER-100:refund"}, locker.Keys)
}

type countingTxRunner struct {
	calls int
	err   error
}

func (r *countingTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	return fn(ctx)
}

func TestDispatch_AppliedTransitionCommitsAtomically(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	runner := &countingTxRunner{}
	tx := testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR")
	repo.Add(tx)

	d := NewStateDispatcher(repo, locker, runner, zerolog.Nop())
	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := d.Dispatch(context.Background(), ord, successEvent(transaction.EventAuthorisation, "ORDER-100", "psp-123"))
	require.NoError(t, err)

	assert.Equal(t, 1, runner.calls, "status update and audit row share one transaction")
	assert.Equal(t, []string{"notification.applied"}, repo.EventTypes(tx.ID))
}

func TestDispatch_FailedCommitSurfacesError(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	runner := &countingTxRunner{err: assert.AnError}
	tx := testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR")
	repo.Add(tx)

	d := NewStateDispatcher(repo, locker, runner, zerolog.Nop())
	observed := 0
	d.OnTransition = func(transaction.Type, transaction.Status) { observed++ }

	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := d.Dispatch(context.Background(), ord, successEvent(transaction.EventAuthorisation, "ORDER-100", "psp-123"))
	assert.ErrorIs(t, err, assert.AnError)

	assert.Empty(t, repo.EventTypes(tx.ID), "nothing persisted when the commit fails")
	assert.Zero(t, observed, "transition hook fires only after a successful commit")
}

func TestDispatch_DuplicateSkipsTransactionRunner(t *testing.T) {
	repo := testutil.NewMockTransactionRepository()
	locker := &testutil.InlineLocker{}
	runner := &countingTxRunner{}
	tx := testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123")
	repo.Add(tx)

	d := NewStateDispatcher(repo, locker, runner, zerolog.Nop())
	ord := testutil.NewTestOrder("ORDER-100", 10.99, "EUR")
	err := d.Dispatch(context.Background(), ord, successEvent(transaction.EventAuthorisation, "ORDER-100", "psp-123"))
	require.NoError(t, err)

	assert.Zero(t, runner.calls, "duplicate delivery writes only the audit row")
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "txn:ORDER-100:payment", LockKey("ORDER-100", transaction.TypePayment))
	assert.Equal(t, "txn:ORDER-100:refund", LockKey("ORDER-100", transaction.TypeRefund))
}
