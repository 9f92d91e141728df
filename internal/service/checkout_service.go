package service

import (
	"context"
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/currency"
	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/notification"
	"github.com/cassiomorais/gateway/internal/paymenttype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutConfig is the merchant configuration threaded into the checkout
// flow. AuthorizeForcibly is an explicit value here, not ambient state.
type CheckoutConfig struct {
	MerchantAccount    string
	SkinCode           string
	ShopperLocale      string
	RecurringContract  string
	DefaultPaymentType string
	UseCheckoutForm    bool
	// AuthorizeForcibly finalizes a transaction locally on an
	// authorised/pending result, for environments the gateway cannot reach
	// with notifications. Capturing then happens via an immediate capture
	// request (authorised only) or manually from the gateway backend.
	AuthorizeForcibly bool
}

// CheckoutService drives the outbound authorization flow: payment sub-type
// selection, request building and extension, and applying the gateway's
// authentication result to the transaction state machine.
type CheckoutService struct {
	orders        order.Repository
	transactions  transaction.Repository
	registry      *paymenttype.Registry
	client        gateway.Client
	signer        gateway.Signer
	locker        notification.Locker
	modifications *ModificationService
	cfg           CheckoutConfig
	logger        zerolog.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	orders order.Repository,
	transactions transaction.Repository,
	registry *paymenttype.Registry,
	client gateway.Client,
	signer gateway.Signer,
	locker notification.Locker,
	modifications *ModificationService,
	cfg CheckoutConfig,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:        orders,
		transactions:  transactions,
		registry:      registry,
		client:        client,
		signer:        signer,
		locker:        locker,
		modifications: modifications,
		cfg:           cfg,
		logger:        logger,
	}
}

// SelectPaymentType stores the chosen payment sub-type and its checkout
// values on the order. An identifier that is empty or no longer registered
// collapses to "" so that an order carrying a since-disabled sub-type still
// checks out with the base request. Values are validated through the
// sub-type controller only when the extended checkout form is enabled.
func (s *CheckoutService) SelectPaymentType(ctx context.Context, orderNumber, identifier string, values map[string]string) (*order.Order, error) {
	ord, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if identifier == "" {
		identifier = s.cfg.DefaultPaymentType
	}
	if !s.registry.Has(identifier) {
		identifier = ""
	}

	if identifier != "" && s.cfg.UseCheckoutForm && len(values) > 0 {
		if ctrl := s.registry.Resolve(identifier); ctrl != nil {
			if err := ctrl.Validate(values); err != nil {
				return nil, err
			}
		}
	}

	ord.PaymentData.SelectType(identifier, values)
	if err := s.orders.SavePaymentData(ctx, ord.Number, ord.PaymentData); err != nil {
		return nil, err
	}
	return ord, nil
}

// BuildAuthorization builds the outbound authorization request for an order
// and ensures a pending payment transaction exists for it. The resolved
// sub-type controller, when present, extends the base request using the
// checkout values stored on the order.
func (s *CheckoutService) BuildAuthorization(ctx context.Context, ord *order.Order) (*gateway.AuthorizationRequest, *transaction.Transaction, error) {
	amountMinor, err := currency.ToMinorUnits(ord.Amount, ord.Currency)
	if err != nil {
		return nil, nil, err
	}

	req := &gateway.AuthorizationRequest{
		MerchantReference: ord.Number,
		MerchantAccount:   s.cfg.MerchantAccount,
		Amount: gateway.Amount{
			Currency: ord.Currency,
			Value:    currency.AbsMinorUnits(amountMinor),
		},
		SkinCode:      s.cfg.SkinCode,
		ShopperLocale: s.cfg.ShopperLocale,
	}
	if s.cfg.RecurringContract != "" {
		req.RecurringContract = s.cfg.RecurringContract
	}

	if ctrl := s.registry.Resolve(ord.PaymentData.SelectedType); ctrl != nil {
		if err := ctrl.ExtendRequest(req, ord.PaymentData.SelectedValues()); err != nil {
			return nil, nil, err
		}
	}

	tx, err := s.ensurePaymentTransaction(ctx, ord, amountMinor)
	if err != nil {
		return nil, nil, err
	}
	return req, tx, nil
}

// Authorize sends the authorization request and applies the gateway's
// result. A transport failure leaves the outcome unknown: the pending
// transaction stays pending and a later notification reconciles it.
func (s *CheckoutService) Authorize(ctx context.Context, orderNumber string) (*gateway.AuthorizationResult, error) {
	ord, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	req, tx, err := s.BuildAuthorization(ctx, ord)
	if err != nil {
		return nil, err
	}

	result, err := s.client.Authorize(ctx, *req)
	if err != nil {
		return nil, err
	}

	if err := s.HandleAuthorizationResult(ctx, ord, tx, result); err != nil {
		return result, err
	}
	return result, nil
}

// RedirectInstruction is the hosted-page redirect target with its signed
// parameter set.
type RedirectInstruction struct {
	URL        string
	Parameters map[string]string
}

// BuildRedirect builds the signed redirect for hosted-page checkout.
func (s *CheckoutService) BuildRedirect(ctx context.Context, orderNumber string) (*RedirectInstruction, error) {
	ord, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	req, _, err := s.BuildAuthorization(ctx, ord)
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"merchantReference": req.MerchantReference,
		"merchantAccount":   req.MerchantAccount,
		"paymentAmount":     fmt.Sprintf("%d", req.Amount.Value),
		"currencyCode":      req.Amount.Currency,
		"skinCode":          req.SkinCode,
		"shopperLocale":     req.ShopperLocale,
	}
	if req.RecurringContract != "" {
		params["recurringContract"] = req.RecurringContract
	}
	for k, v := range req.AdditionalData {
		params[k] = v
	}

	sig, err := s.signer.Sign(params)
	if err != nil {
		return nil, fmt.Errorf("sign redirect parameters: %w", err)
	}
	params["merchantSig"] = sig

	return &RedirectInstruction{URL: hppURL(s.client), Parameters: params}, nil
}

// HandleAuthorizationResult maps the authentication result onto the
// transaction. Refused and error results surface as a retry-the-payment
// failure, cancellation as its own message; authorised and pending results
// are finalized locally only when AuthorizeForcibly is set, and a plain
// authorised result then triggers an immediate capture request. The pending
// branch deliberately does not auto-capture.
func (s *CheckoutService) HandleAuthorizationResult(ctx context.Context, ord *order.Order, tx *transaction.Transaction, result *gateway.AuthorizationResult) error {
	status, err := transaction.StatusForResult(result.AuthResult)
	if err != nil {
		return err
	}

	switch status {
	case transaction.StatusRefused, transaction.StatusError:
		return fmt.Errorf("%w: order %s result %s", domainErrors.ErrPaymentRefused, ord.Number, result.AuthResult)

	case transaction.StatusCancelled:
		return fmt.Errorf("%w: order %s", domainErrors.ErrPaymentCancelled, ord.Number)

	case transaction.StatusAuthorized, transaction.StatusPending:
		if !s.cfg.AuthorizeForcibly {
			return s.recordRemoteReference(ctx, tx, result.PspReference)
		}
		if err := s.finalizeLocally(ctx, ord, tx, status, result.PspReference); err != nil {
			return err
		}
		if status == transaction.StatusAuthorized {
			if _, err := s.modifications.Capture(ctx, ord.Number); err != nil {
				// Capture failure does not undo the authorization; it is
				// retried manually or reconciled by a notification.
				s.logger.Error().Err(err).Str("order", ord.Number).Msg("forced-authorization capture request failed")
			}
		}
		return nil
	}
	return nil
}

// finalizeLocally applies the authorised/pending result without waiting for
// a notification, serialized against the notification dispatcher.
func (s *CheckoutService) finalizeLocally(ctx context.Context, ord *order.Order, tx *transaction.Transaction, status transaction.Status, remoteID string) error {
	return s.locker.WithLock(ctx, notification.LockKey(ord.Number, tx.Type), func(ctx context.Context) error {
		var (
			applied bool
			err     error
		)
		if status == transaction.StatusPending {
			applied, err = tx.Pend(remoteID)
		} else {
			applied, err = tx.Authorize(remoteID)
		}
		if err != nil {
			return err
		}

		if err := s.transactions.Update(ctx, tx); err != nil {
			return err
		}
		return s.transactions.AddEvent(ctx, &transaction.Event{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			EventType:     "authorization.forced",
			EventData: map[string]any{
				"status":  string(tx.Status),
				"applied": applied,
			},
		})
	})
}

// recordRemoteReference stores the gateway reference while leaving the
// transaction pending for the notification to finalize.
func (s *CheckoutService) recordRemoteReference(ctx context.Context, tx *transaction.Transaction, remoteID string) error {
	if remoteID == "" {
		return nil
	}
	if err := tx.SetRemoteID(remoteID); err != nil {
		return err
	}
	return s.transactions.Update(ctx, tx)
}

// ensurePaymentTransaction reuses the order's open payment transaction or
// creates a pending one.
func (s *CheckoutService) ensurePaymentTransaction(ctx context.Context, ord *order.Order, amountMinor int64) (*transaction.Transaction, error) {
	tx, err := s.transactions.GetByOrder(ctx, ord.Number, transaction.TypePayment)
	if err == nil && !tx.IsTerminal() {
		return tx, nil
	}
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	tx, err = transaction.New(ord.Number, transaction.TypePayment, amountMinor, ord.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// hppURL derives the hosted payment page URL from the client environment.
func hppURL(client gateway.Client) string {
	if c, ok := client.(*gateway.HTTPClient); ok && c.Environment() == gateway.EnvironmentLive {
		return "https://live.adyen.com/hpp/pay.shtml"
	}
	return "https://test.adyen.com/hpp/pay.shtml"
}
