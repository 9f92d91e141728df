package service

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/modification"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ModificationService sends capture and refund requests for an order's
// transactions. A successful send means the gateway queued the request;
// the settlement itself arrives later as a notification.
type ModificationService struct {
	transactions    transaction.Repository
	client          gateway.Client
	merchantAccount string
	logger          zerolog.Logger
}

// NewModificationService creates a new ModificationService.
func NewModificationService(
	transactions transaction.Repository,
	client gateway.Client,
	merchantAccount string,
	logger zerolog.Logger,
) *ModificationService {
	return &ModificationService{
		transactions:    transactions,
		client:          client,
		merchantAccount: merchantAccount,
		logger:          logger,
	}
}

// Capture requests the funds of the order's authorized payment transaction.
func (s *ModificationService) Capture(ctx context.Context, orderNumber string) (*gateway.ModificationResponse, error) {
	return s.send(ctx, orderNumber, modification.ActionCapture)
}

// Refund requests the money back for the order's payment. The refund is
// tracked on a refund-type transaction created from the payment if one does
// not exist yet.
func (s *ModificationService) Refund(ctx context.Context, orderNumber string) (*gateway.ModificationResponse, error) {
	return s.send(ctx, orderNumber, modification.ActionRefund)
}

func (s *ModificationService) send(ctx context.Context, orderNumber string, action modification.Action) (*gateway.ModificationResponse, error) {
	txType, err := modification.TransactionType(action)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactions.GetByOrder(ctx, orderNumber, txType)
	if err != nil {
		if action == modification.ActionRefund && isNotFound(err) {
			tx, err = s.createRefundTransaction(ctx, orderNumber)
		}
		if err != nil {
			return nil, err
		}
	}

	req, err := modification.Build(tx, s.merchantAccount)
	if err != nil {
		return nil, err
	}

	resp, err := modification.Send(ctx, s.client, action, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("action", string(action)).
		Str("order", orderNumber).
		Str("psp_reference", resp.PspReference).
		Msg("modification request queued")

	if auditErr := s.transactions.AddEvent(ctx, &transaction.Event{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		EventType:     fmt.Sprintf("modification.%s_requested", action),
		EventData: map[string]any{
			"original_reference": req.OriginalReference,
			"psp_reference":      resp.PspReference,
			"amount":             req.ModificationAmount.Value,
			"currency":           req.ModificationAmount.Currency,
		},
	}); auditErr != nil {
		s.logger.Error().Err(auditErr).Str("order", orderNumber).Msg("failed to record modification request")
	}

	return resp, nil
}

// createRefundTransaction derives a pending refund transaction from the
// order's payment transaction, carrying over its gateway reference as the
// original reference to refund against.
func (s *ModificationService) createRefundTransaction(ctx context.Context, orderNumber string) (*transaction.Transaction, error) {
	payment, err := s.transactions.GetByOrder(ctx, orderNumber, transaction.TypePayment)
	if err != nil {
		return nil, err
	}
	if payment.RemoteID == nil {
		return nil, fmt.Errorf("%w: payment for order %s", domainErrors.ErrMissingRemoteReference, orderNumber)
	}

	refund, err := transaction.New(orderNumber, transaction.TypeRefund, payment.AmountMinor, payment.CurrencyCode)
	if err != nil {
		return nil, err
	}
	if err := refund.SetRemoteID(*payment.RemoteID); err != nil {
		return nil, err
	}
	if err := s.transactions.Create(ctx, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domainErrors.ErrTransactionNotFound)
}
