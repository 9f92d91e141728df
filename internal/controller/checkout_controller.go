package controller

import (
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/paymenttype"
	"github.com/cassiomorais/gateway/internal/service"
	"github.com/go-chi/chi/v5"
)

// CheckoutController handles the shopper-facing checkout flow: payment
// sub-type selection, direct authorization, and the hosted-page redirect.
type CheckoutController struct {
	checkoutService *service.CheckoutService
	registry        *paymenttype.Registry
	metrics         *observability.Metrics
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(
	checkoutService *service.CheckoutService,
	registry *paymenttype.Registry,
	metrics *observability.Metrics,
) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		registry:        registry,
		metrics:         metrics,
	}
}

// ListPaymentTypes handles GET /api/v1/checkout/payment-types
func (h *CheckoutController) ListPaymentTypes(w http.ResponseWriter, r *http.Request) {
	resp := make([]*PaymentTypeResponse, 0)
	for _, id := range h.registry.Identifiers() {
		pt := &PaymentTypeResponse{Identifier: id}
		if ctrl := h.registry.Resolve(id); ctrl != nil {
			pt.Fields = FromFields(ctrl.CheckoutFields())
		}
		resp = append(resp, pt)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SelectPaymentType handles POST /api/v1/checkout/{orderNumber}/payment-type
func (h *CheckoutController) SelectPaymentType(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	var req SelectPaymentTypeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ord, err := h.checkoutService.SelectPaymentType(r.Context(), orderNumber, req.PaymentType, req.Values)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromPaymentData(ord))
}

// Authorize handles POST /api/v1/checkout/{orderNumber}/authorize
func (h *CheckoutController) Authorize(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	result, err := h.checkoutService.Authorize(r.Context(), orderNumber)
	h.metrics.AuthorizationsTotal.WithLabelValues(authResultLabel(err)).Inc()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthorizationResponse{
		OrderNumber:  orderNumber,
		AuthResult:   result.AuthResult,
		PspReference: result.PspReference,
	})
}

// Redirect handles GET /api/v1/checkout/{orderNumber}/redirect
func (h *CheckoutController) Redirect(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	instr, err := h.checkoutService.BuildRedirect(r.Context(), orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RedirectResponse{
		URL:        instr.URL,
		Parameters: instr.Parameters,
	})
}

// authResultLabel buckets an authorization outcome for metrics. A transport
// failure is labelled as unknown, never as a refusal.
func authResultLabel(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domainErrors.ErrGatewayUnreachable):
		return "unknown"
	case errors.Is(err, domainErrors.ErrPaymentRefused):
		return "refused"
	case errors.Is(err, domainErrors.ErrPaymentCancelled):
		return "cancelled"
	default:
		return "error"
	}
}
