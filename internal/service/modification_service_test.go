package service

import (
	"context"
	"testing"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type modificationFixture struct {
	transactions *testutil.MockTransactionRepository
	client       *testutil.MockGatewayClient
	service      *ModificationService
}

func newModificationFixture(t *testing.T) *modificationFixture {
	t.Helper()
	f := &modificationFixture{
		transactions: testutil.NewMockTransactionRepository(),
		client:       &testutil.MockGatewayClient{},
	}
	f.service = NewModificationService(f.transactions, f.client, "TestMerchant", zerolog.Nop())
	return f
}

func TestCapture(t *testing.T) {
	f := newModificationFixture(t)
	tx := testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123")
	f.transactions.Add(tx)

	resp, err := f.service.Capture(context.Background(), "ORDER-100")
	require.NoError(t, err)
	assert.Equal(t, "[capture-received]", resp.Response)

	require.Len(t, f.client.Modifications, 1)
	sent := f.client.Modifications[0]
	assert.Equal(t, "capture", sent.Action)
	assert.Equal(t, "psp-123", sent.Request.OriginalReference)
	assert.Equal(t, int64(1099), sent.Request.ModificationAmount.Value)
	assert.Equal(t, "TestMerchant", sent.Request.MerchantAccount)

	assert.Contains(t, f.transactions.EventTypes(tx.ID), "modification.capture_requested")
}

func TestCapture_NoTransaction(t *testing.T) {
	f := newModificationFixture(t)

	_, err := f.service.Capture(context.Background(), "ORDER-100")
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	assert.Empty(t, f.client.Modifications)
}

func TestCapture_MissingRemoteReference(t *testing.T) {
	f := newModificationFixture(t)
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	_, err := f.service.Capture(context.Background(), "ORDER-100")
	assert.ErrorIs(t, err, domainErrors.ErrMissingRemoteReference)
	assert.Empty(t, f.client.Modifications)
}

func TestRefund_CreatesRefundTransactionFromPayment(t *testing.T) {
	f := newModificationFixture(t)
	f.transactions.Add(testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123"))

	resp, err := f.service.Refund(context.Background(), "ORDER-100")
	require.NoError(t, err)
	assert.Equal(t, "[refund-received]", resp.Response)

	refund, err := f.transactions.GetByOrder(context.Background(), "ORDER-100", transaction.TypeRefund)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, refund.Status)
	assert.Equal(t, int64(1099), refund.AmountMinor)
	assert.Equal(t, "EUR", refund.CurrencyCode)
	require.NotNil(t, refund.RemoteID)
	assert.Equal(t, "psp-123", *refund.RemoteID, "refund references the original payment")

	require.Len(t, f.client.Modifications, 1)
	assert.Equal(t, "refund", f.client.Modifications[0].Action)
	assert.Equal(t, "psp-123", f.client.Modifications[0].Request.OriginalReference)
}

func TestRefund_ReusesExistingRefundTransaction(t *testing.T) {
	f := newModificationFixture(t)
	f.transactions.Add(testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123"))
	existing := testutil.NewTestTransaction("ORDER-100", transaction.TypeRefund, 1099, "EUR")
	require.NoError(t, existing.SetRemoteID("psp-123"))
	f.transactions.Add(existing)

	_, err := f.service.Refund(context.Background(), "ORDER-100")
	require.NoError(t, err)

	assert.Contains(t, f.transactions.EventTypes(existing.ID), "modification.refund_requested")
}

func TestRefund_NoPayment(t *testing.T) {
	f := newModificationFixture(t)

	_, err := f.service.Refund(context.Background(), "ORDER-100")
	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
}

func TestRefund_PaymentWithoutRemoteReference(t *testing.T) {
	f := newModificationFixture(t)
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	_, err := f.service.Refund(context.Background(), "ORDER-100")
	assert.ErrorIs(t, err, domainErrors.ErrMissingRemoteReference)
}

func TestCapture_NotAcknowledged(t *testing.T) {
	f := newModificationFixture(t)
	tx := testutil.NewAuthorizedTransaction("ORDER-100", 1099, "EUR", "psp-123")
	f.transactions.Add(tx)
	f.client.ModifyFunc = func(ctx context.Context, action string, req gateway.ModificationRequest) (*gateway.ModificationResponse, error) {
		return &gateway.ModificationResponse{Response: "capture-received", PspReference: "mod-ref"}, nil
	}

	_, err := f.service.Capture(context.Background(), "ORDER-100")
	assert.ErrorIs(t, err, domainErrors.ErrModificationNotAcknowledged)
	assert.NotContains(t, f.transactions.EventTypes(tx.ID), "modification.capture_requested")
}
