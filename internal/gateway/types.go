package gateway

// Amount is the wire representation of a monetary value: ISO currency code
// plus minor units. Value must never be negative on the wire.
type Amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// AuthorizationRequest is the outbound payment authorization built from the
// order, the merchant configuration and, optionally, a payment sub-type
// extension.
type AuthorizationRequest struct {
	MerchantReference string `json:"merchantReference"`
	MerchantAccount   string `json:"merchantAccount"`
	Amount            Amount `json:"amount"`
	SkinCode          string `json:"skinCode,omitempty"`
	ShopperLocale     string `json:"shopperLocale,omitempty"`
	RecurringContract string `json:"recurringContract,omitempty"`
	// AdditionalData carries fields contributed by a payment sub-type
	// extension (e.g. open-invoice shopper details).
	AdditionalData map[string]string `json:"additionalData,omitempty"`
}

// SetAdditionalData records an extension-contributed field on the request.
func (r *AuthorizationRequest) SetAdditionalData(key, value string) {
	if r.AdditionalData == nil {
		r.AdditionalData = make(map[string]string)
	}
	r.AdditionalData[key] = value
}

// AuthorizationResult is the parsed gateway response to an authorization
// call: the authentication result code, the gateway-assigned reference, and
// the redirect target for hosted-page flows.
type AuthorizationResult struct {
	AuthResult   string            `json:"authResult"`
	PspReference string            `json:"pspReference"`
	RedirectURL  string            `json:"redirectUrl,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

// ModificationRequest is the wire shape of a capture/refund call against a
// previously authorized transaction.
type ModificationRequest struct {
	Reference          string `json:"reference"`
	MerchantAccount    string `json:"merchantAccount"`
	OriginalReference  string `json:"originalReference"`
	ModificationAmount Amount `json:"modificationAmount"`
}

// ModificationResponse is the gateway acknowledgment of a modification
// request. Response carries the literal "[<action>-received]" marker when
// the request was queued; PspReference identifies the modification itself.
type ModificationResponse struct {
	Response     string `json:"response"`
	PspReference string `json:"pspReference"`
}
