// Package order models the commerce system's order as an external entity:
// the core reads and writes gateway-related metadata on it but never owns
// its lifecycle.
package order

import (
	"context"
)

// Order is a reference to an order owned by the surrounding commerce system.
type Order struct {
	Number      string
	Amount      float64
	Currency    string
	PaymentData PaymentData
}

// PaymentData is the gateway metadata stored on an order: the selected
// payment sub-type and the checkout values captured per sub-type, reused
// when the authorization request is rebuilt on redirect.
type PaymentData struct {
	SelectedType string
	ValuesByType map[string]map[string]string
}

// SelectType records the chosen payment sub-type along with its checkout
// values. An empty identifier means the base request goes out unmodified.
func (d *PaymentData) SelectType(identifier string, values map[string]string) {
	d.SelectedType = identifier
	if identifier == "" {
		return
	}
	if d.ValuesByType == nil {
		d.ValuesByType = make(map[string]map[string]string)
	}
	if values == nil {
		values = make(map[string]string)
	}
	d.ValuesByType[identifier] = values
}

// SelectedValues returns the checkout values stored for the selected
// sub-type, or nil when no sub-type is selected.
func (d *PaymentData) SelectedValues() map[string]string {
	if d.SelectedType == "" {
		return nil
	}
	return d.ValuesByType[d.SelectedType]
}

// Repository defines the interface to the commerce system's order store.
type Repository interface {
	// GetByNumber retrieves an order by its stable identifier
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// SavePaymentData persists the gateway metadata onto the order
	SavePaymentData(ctx context.Context, number string, data PaymentData) error
}
