package testutil

import (
	"time"

	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/google/uuid"
)

func NewTestOrder(number string, amount float64, currency string) *order.Order {
	return &order.Order{
		Number:   number,
		Amount:   amount,
		Currency: currency,
	}
}

func NewTestTransaction(orderNumber string, txType transaction.Type, amountMinor int64, currency string) *transaction.Transaction {
	now := time.Now()
	return &transaction.Transaction{
		ID:           uuid.New(),
		OrderNumber:  orderNumber,
		AmountMinor:  amountMinor,
		CurrencyCode: currency,
		Status:       transaction.StatusPending,
		Type:         txType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewAuthorizedTransaction(orderNumber string, amountMinor int64, currency, remoteID string) *transaction.Transaction {
	tx := NewTestTransaction(orderNumber, transaction.TypePayment, amountMinor, currency)
	tx.Status = transaction.StatusAuthorized
	tx.RemoteID = &remoteID
	return tx
}

func StrPtr(s string) *string {
	return &s
}
