package paymenttype

import (
	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/gateway"
)

// OpenInvoiceID identifies the open-invoice payment sub-type.
const OpenInvoiceID = "openinvoice"

// OpenInvoiceDescriptor registers the open-invoice sub-type: invoice-based
// payment methods that require shopper details on the authorization request.
func OpenInvoiceDescriptor() Descriptor {
	return Descriptor{
		Identifier: OpenInvoiceID,
		Label:      "Open invoice",
		SubTypes:   []string{"klarna", "afterpay_default"},
		New: func(cfg Config) Controller {
			return &openInvoice{cfg: cfg}
		},
	}
}

type openInvoice struct {
	cfg Config
}

var openInvoiceFields = []Field{
	{Name: "shopper_reference", Label: "Shopper reference", Required: true},
	{Name: "date_of_birth", Label: "Date of birth", Required: true},
	{Name: "telephone_number", Label: "Telephone number", Required: false},
}

func (o *openInvoice) ExtendRequest(req *gateway.AuthorizationRequest, values map[string]string) error {
	brand := o.cfg["brand"]
	if brand == "" {
		brand = "klarna"
	}
	req.SetAdditionalData("openinvoicedata.merchantData", o.cfg["merchant_data"])
	req.SetAdditionalData("brandCode", brand)
	for _, f := range openInvoiceFields {
		if v := values[f.Name]; v != "" {
			req.SetAdditionalData("openinvoicedata."+f.Name, v)
		}
	}
	return nil
}

func (o *openInvoice) CheckoutFields() []Field {
	return openInvoiceFields
}

func (o *openInvoice) Validate(values map[string]string) error {
	for _, f := range openInvoiceFields {
		if f.Required && values[f.Name] == "" {
			return errors.NewValidationError(f.Name, "required for open invoice payments")
		}
	}
	return nil
}
