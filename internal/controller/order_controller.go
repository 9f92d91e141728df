package controller

import (
	"net/http"

	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/modification"
	"github.com/cassiomorais/gateway/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderController handles merchant-side order operations: capture and
// refund requests, and the order's transaction history.
type OrderController struct {
	modificationService *service.ModificationService
	transactionRepo     transaction.Repository
	metrics             *observability.Metrics
}

// NewOrderController creates a new OrderController.
func NewOrderController(
	modificationService *service.ModificationService,
	transactionRepo transaction.Repository,
	metrics *observability.Metrics,
) *OrderController {
	return &OrderController{
		modificationService: modificationService,
		transactionRepo:     transactionRepo,
		metrics:             metrics,
	}
}

// Capture handles POST /api/v1/orders/{orderNumber}/capture
func (h *OrderController) Capture(w http.ResponseWriter, r *http.Request) {
	h.modify(w, r, modification.ActionCapture)
}

// Refund handles POST /api/v1/orders/{orderNumber}/refund
func (h *OrderController) Refund(w http.ResponseWriter, r *http.Request) {
	h.modify(w, r, modification.ActionRefund)
}

func (h *OrderController) modify(w http.ResponseWriter, r *http.Request, action modification.Action) {
	orderNumber := chi.URLParam(r, "orderNumber")

	var (
		resp *gateway.ModificationResponse
		err  error
	)
	if action == modification.ActionCapture {
		resp, err = h.modificationService.Capture(r.Context(), orderNumber)
	} else {
		resp, err = h.modificationService.Refund(r.Context(), orderNumber)
	}
	if err != nil {
		h.metrics.ModificationsTotal.WithLabelValues(string(action), "failed").Inc()
		writeError(w, err)
		return
	}
	h.metrics.ModificationsTotal.WithLabelValues(string(action), "queued").Inc()

	// 202: the gateway queued the request, settlement arrives later as a
	// notification.
	writeJSON(w, http.StatusAccepted, ModificationResponse{
		OrderNumber:  orderNumber,
		Action:       string(action),
		Response:     resp.Response,
		PspReference: resp.PspReference,
	})
}

// ListTransactions handles GET /api/v1/orders/{orderNumber}/transactions
func (h *OrderController) ListTransactions(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	txs, err := h.transactionRepo.ListByOrder(r.Context(), orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, FromTransaction(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}
