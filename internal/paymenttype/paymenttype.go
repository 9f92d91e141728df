// Package paymenttype resolves pluggable payment sub-types: variants that
// augment the base authorization request and contribute extra checkout
// fields. Variants are explicitly registered; resolution is a pure lookup
// plus construction, with no caching of stale configuration.
package paymenttype

import (
	"github.com/cassiomorais/gateway/internal/gateway"
)

// Config is the merchant configuration for one payment sub-type.
type Config map[string]string

// Field describes one extra checkout field a sub-type asks the shopper for.
type Field struct {
	Name     string
	Label    string
	Required bool
}

// Controller is the extension strategy bound to a payment sub-type. It may
// augment the outbound authorization request and supply/validate extra
// checkout-time values that are persisted on the order.
type Controller interface {
	// ExtendRequest augments the base authorization request before it is sent.
	ExtendRequest(req *gateway.AuthorizationRequest, values map[string]string) error
	// CheckoutFields lists the extra fields collected at checkout.
	CheckoutFields() []Field
	// Validate checks the checkout values before they are stored on the order.
	Validate(values map[string]string) error
}

// Descriptor describes one registered payment sub-type.
type Descriptor struct {
	Identifier string
	Label      string
	SubTypes   []string
	New        func(cfg Config) Controller
}

// Registry holds the available payment-type descriptors together with
// their per-type merchant configuration.
type Registry struct {
	descriptors map[string]Descriptor
	configs     map[string]Config
}

// NewRegistry builds a registry from descriptors and per-type configuration.
func NewRegistry(descriptors []Descriptor, configs map[string]Config) *Registry {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(descriptors)),
		configs:     make(map[string]Config, len(configs)),
	}
	for _, d := range descriptors {
		r.descriptors[d.Identifier] = d
	}
	for id, cfg := range configs {
		r.configs[id] = cfg
	}
	return r
}

// Has reports whether an identifier is registered.
func (r *Registry) Has(identifier string) bool {
	_, ok := r.descriptors[identifier]
	return ok
}

// Identifiers returns the registered identifiers.
func (r *Registry) Identifiers() []string {
	ids := make([]string, 0, len(r.descriptors))
	for id := range r.descriptors {
		ids = append(ids, id)
	}
	return ids
}

// Resolve instantiates the extension strategy for an identifier. An empty
// or unregistered identifier resolves to nil: the base request is sent
// unmodified. This also covers orders carrying a sub-type that has since
// been disabled.
func (r *Registry) Resolve(identifier string) Controller {
	if identifier == "" {
		return nil
	}
	d, ok := r.descriptors[identifier]
	if !ok {
		return nil
	}
	return d.New(r.configs[identifier])
}
