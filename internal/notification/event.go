// Package notification ingests asynchronous gateway webhook events:
// normalize the untrusted payload, locate the owning order, dispatch to the
// transaction state machine, and always acknowledge with the fixed token.
package notification

import (
	"strings"
)

// AckToken is the only response body the gateway accepts. Anything else
// makes it retry the event indefinitely and queue every other pending
// notification for the order behind it.
const AckToken = "[accepted]"

// Well-known payload field names.
const (
	FieldEventCode         = "eventCode"
	FieldMerchantReference = "merchantReference"
	FieldPspReference      = "pspReference"
	FieldSuccess           = "success"
	FieldLive              = "live"
)

// Event is one normalized notification. Ephemeral: it is never persisted
// beyond processing.
type Event struct {
	EventCode         string
	MerchantReference string
	PspReference      string
	// Success gates positive transitions: a failed event is recorded and
	// otherwise ignored.
	Success bool
	Live    bool
	// Fields carries every payload field, trimmed. Values other than the
	// two named booleans keep their original string form.
	Fields map[string]string
}

// Normalize converts a raw, loosely-typed payload into an Event. Every
// string value is trimmed. Only the success and live fields are coerced to
// booleans: the case-insensitive literal "true"/"false" after trimming,
// with any empty or absent value treated as false. The gateway sometimes
// sends visually empty strings (whitespace only) for these, so trimming
// happens before the emptiness check.
func Normalize(raw map[string]string) Event {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = strings.TrimSpace(v)
	}

	return Event{
		EventCode:         fields[FieldEventCode],
		MerchantReference: fields[FieldMerchantReference],
		PspReference:      fields[FieldPspReference],
		Success:           coerceBool(fields[FieldSuccess]),
		Live:              coerceBool(fields[FieldLive]),
		Fields:            fields,
	}
}

// coerceBool maps the literal "true" to true; "false", empty and anything
// unrecognized to false.
func coerceBool(v string) bool {
	return strings.EqualFold(v, "true")
}
