package notification

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/rs/zerolog"
)

// Stage is the processing state of one inbound notification.
type Stage string

const (
	StageReceived     Stage = "received"
	StageNormalized   Stage = "normalized"
	StageLocated      Stage = "located"
	StageDispatched   Stage = "dispatched"
	StageAcknowledged Stage = "acknowledged"
	// StageFailed is absorbing: reachable from any step. The event is still
	// acknowledged so the gateway stops retrying it.
	StageFailed Stage = "failed"
)

// Result records how far an event got and what stopped it. Err is set for
// both permanent malformed-input failures and handler-level dispatch
// failures; neither prevents the acknowledgment.
type Result struct {
	Stage Stage
	Event Event
	Err   error
}

// Dispatcher hands a located event to the transaction state machine.
type Dispatcher interface {
	Dispatch(ctx context.Context, ord *order.Order, event Event) error
}

// Pipeline drives one inbound notification through
// received -> normalized -> located -> dispatched -> acknowledged.
type Pipeline struct {
	orders     order.Repository
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewPipeline creates a notification pipeline.
func NewPipeline(orders order.Repository, dispatcher Dispatcher, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		orders:     orders,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Process runs the pipeline on a raw payload. It never returns an error to
// the transport layer: every outcome, including failure, ends in the
// acknowledgment step, and failures are classified into the Result for
// operator visibility.
func (p *Pipeline) Process(ctx context.Context, raw map[string]string) Result {
	event := Normalize(raw)
	res := Result{Stage: StageNormalized, Event: event}

	// Locate the owning order. A missing merchantReference is a permanent
	// malformed-input error: there is nothing to retry.
	if event.MerchantReference == "" {
		res.Stage = StageFailed
		res.Err = domainErrors.ErrOrderNotLocatable
		p.logFailure(res)
		return res
	}

	ord, err := p.orders.GetByNumber(ctx, event.MerchantReference)
	if err != nil {
		res.Stage = StageFailed
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			res.Err = fmt.Errorf("%w: order %q", domainErrors.ErrOrderNotLocatable, event.MerchantReference)
		} else {
			res.Err = fmt.Errorf("locate order %q: %w", event.MerchantReference, err)
		}
		p.logFailure(res)
		return res
	}
	res.Stage = StageLocated

	// Dispatch to the state machine. Handler failures are caught and
	// classified here; they must never block the acknowledgment.
	if err := p.dispatcher.Dispatch(ctx, ord, event); err != nil {
		res.Stage = StageFailed
		res.Err = fmt.Errorf("dispatch %s for order %q: %w", event.EventCode, event.MerchantReference, err)
		p.logFailure(res)
		return res
	}

	res.Stage = StageDispatched
	p.logger.Info().
		Str("event_code", event.EventCode).
		Str("order", event.MerchantReference).
		Str("psp_reference", event.PspReference).
		Bool("success", event.Success).
		Bool("live", event.Live).
		Msg("notification dispatched")
	return res
}

func (p *Pipeline) logFailure(res Result) {
	p.logger.Error().
		Err(res.Err).
		Str("event_code", res.Event.EventCode).
		Str("order", res.Event.MerchantReference).
		Str("psp_reference", res.Event.PspReference).
		Msg("notification processing failed")
}

// Classify buckets a pipeline error for metrics labels.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainErrors.ErrOrderNotLocatable):
		return "order_not_locatable"
	case errors.Is(err, domainErrors.ErrUnknownEventCode):
		return "unknown_event_code"
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal"
	}
}
