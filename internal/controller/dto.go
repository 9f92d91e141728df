package controller

import (
	"time"

	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/paymenttype"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (string identifiers, validation
// tags). Controllers convert these before calling business logic.

// SelectPaymentTypeRequest holds the shopper's payment sub-type choice and
// the checkout values collected for it.
type SelectPaymentTypeRequest struct {
	PaymentType string            `json:"payment_type"`
	Values      map[string]string `json:"values,omitempty"`
}

// --- Response DTOs ---

// PaymentDataResponse mirrors the gateway metadata stored on an order.
type PaymentDataResponse struct {
	OrderNumber  string            `json:"order_number"`
	SelectedType string            `json:"selected_type"`
	Values       map[string]string `json:"values,omitempty"`
}

// PaymentTypeResponse describes one registered payment sub-type and its
// extra checkout fields.
type PaymentTypeResponse struct {
	Identifier string          `json:"identifier"`
	Fields     []FieldResponse `json:"fields,omitempty"`
}

// FieldResponse describes one extra checkout field.
type FieldResponse struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// AuthorizationResponse is the outcome of a direct authorization call.
type AuthorizationResponse struct {
	OrderNumber  string `json:"order_number"`
	AuthResult   string `json:"auth_result"`
	PspReference string `json:"psp_reference,omitempty"`
}

// RedirectResponse is the hosted-page redirect target with its signed
// parameters.
type RedirectResponse struct {
	URL        string            `json:"url"`
	Parameters map[string]string `json:"parameters"`
}

// ModificationResponse acknowledges a queued capture or refund request.
type ModificationResponse struct {
	OrderNumber  string `json:"order_number"`
	Action       string `json:"action"`
	Response     string `json:"response"`
	PspReference string `json:"psp_reference,omitempty"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	RemoteID    *string   `json:"remote_id,omitempty"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromTransaction converts a domain transaction to API response.
func FromTransaction(t *transaction.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:          t.ID.String(),
		OrderNumber: t.OrderNumber,
		RemoteID:    t.RemoteID,
		AmountMinor: t.AmountMinor,
		Currency:    t.CurrencyCode,
		Status:      string(t.Status),
		Type:        string(t.Type),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// FromPaymentData converts an order's gateway metadata to API response.
func FromPaymentData(ord *order.Order) *PaymentDataResponse {
	return &PaymentDataResponse{
		OrderNumber:  ord.Number,
		SelectedType: ord.PaymentData.SelectedType,
		Values:       ord.PaymentData.SelectedValues(),
	}
}

// FromFields converts sub-type checkout fields to API response.
func FromFields(fields []paymenttype.Field) []FieldResponse {
	resp := make([]FieldResponse, 0, len(fields))
	for _, f := range fields {
		resp = append(resp, FieldResponse{Name: f.Name, Label: f.Label, Required: f.Required})
	}
	return resp
}
