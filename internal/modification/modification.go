// Package modification builds and sends capture/refund requests against an
// existing authorized transaction. The gateway answers these calls with a
// queued-acknowledgment marker only; actual settlement arrives later as a
// notification event and is applied independently by the state machine.
package modification

import (
	"context"
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/currency"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
)

// Action is a modification kind against an authorized transaction.
type Action string

const (
	// ActionCapture requests the money previously authorized.
	ActionCapture Action = "capture"
	// ActionRefund requests the money back.
	ActionRefund Action = "refund"
)

// TransactionType resolves which transaction type an action modifies:
// capture settles a payment transaction, refund settles a refund
// transaction.
func TransactionType(action Action) (transaction.Type, error) {
	switch action {
	case ActionCapture:
		return transaction.TypePayment, nil
	case ActionRefund:
		return transaction.TypeRefund, nil
	default:
		return "", fmt.Errorf("%w: %q", domainErrors.ErrUnsupportedAction, action)
	}
}

// Build populates a modification request from a transaction. The
// transaction must already carry the gateway reference of the original
// authorization. The wire amount is always the non-negative magnitude: the
// gateway does not accept an amount with a preceding minus.
func Build(tx *transaction.Transaction, merchantAccount string) (gateway.ModificationRequest, error) {
	if tx.RemoteID == nil || *tx.RemoteID == "" {
		return gateway.ModificationRequest{}, fmt.Errorf(
			"%w: transaction %s for order %s",
			domainErrors.ErrMissingRemoteReference, tx.ID, tx.OrderNumber,
		)
	}

	return gateway.ModificationRequest{
		Reference:         tx.OrderNumber,
		MerchantAccount:   merchantAccount,
		OriginalReference: *tx.RemoteID,
		ModificationAmount: gateway.Amount{
			Currency: tx.CurrencyCode,
			Value:    currency.AbsMinorUnits(tx.AmountMinor),
		},
	}, nil
}

// Send dispatches the request through the gateway client and validates the
// acknowledgment marker. The marker must equal the literal
// "[<action>-received]"; any other value, however well-formed, means the
// request was not queued.
func Send(ctx context.Context, client gateway.Client, action Action, req gateway.ModificationRequest) (*gateway.ModificationResponse, error) {
	resp, err := client.Modify(ctx, string(action), req)
	if err != nil {
		return nil, err
	}

	if want := fmt.Sprintf("[%s-received]", action); resp.Response != want {
		return nil, fmt.Errorf(
			"%w: got %q, want %q",
			domainErrors.ErrModificationNotAcknowledged, resp.Response, want,
		)
	}
	return resp, nil
}
