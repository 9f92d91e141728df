package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/notification"
	"github.com/rs/zerolog"
)

// NotificationProducer buffers a raw notification payload for deferred
// dispatch by the worker.
type NotificationProducer interface {
	PublishNotification(ctx context.Context, raw map[string]string) error
}

// NotificationController receives the gateway's webhook posts. Whatever
// happens inside, the response is always the fixed acknowledgment token
// with a 200: anything else makes the gateway retry the event forever and
// queue every later notification for the same order behind it.
type NotificationController struct {
	pipeline *notification.Pipeline
	producer NotificationProducer
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewNotificationController creates a new NotificationController. When
// producer is non-nil, payloads are buffered on the stream and dispatched by
// the worker; otherwise they are dispatched inline before acknowledging.
func NewNotificationController(
	pipeline *notification.Pipeline,
	producer NotificationProducer,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *NotificationController {
	return &NotificationController{
		pipeline: pipeline,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// Receive handles POST /gateway/notification.
func (h *NotificationController) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	raw, err := parseNotificationPayload(r)
	if err != nil {
		// A payload we cannot even parse is permanently malformed. Record it
		// and acknowledge so the gateway stops retrying.
		h.logger.Error().Err(err).Msg("unparseable notification payload")
		h.metrics.NotificationFailures.WithLabelValues("malformed_payload").Inc()
		h.ack(w)
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishNotification(r.Context(), raw); err == nil {
			h.metrics.NotificationsTotal.WithLabelValues(raw[notification.FieldEventCode], "queued").Inc()
			h.ack(w)
			return
		}
		// The buffer is unavailable. Fall back to inline dispatch rather
		// than dropping the event.
		h.logger.Warn().Msg("notification stream unavailable, dispatching inline")
	}

	res := h.pipeline.Process(r.Context(), raw)

	outcome := notification.Classify(res.Err)
	h.metrics.NotificationsTotal.WithLabelValues(res.Event.EventCode, outcome).Inc()
	h.metrics.NotificationDuration.WithLabelValues(res.Event.EventCode).Observe(time.Since(start).Seconds())
	if res.Err != nil {
		h.metrics.NotificationFailures.WithLabelValues(outcome).Inc()
	}

	h.ack(w)
}

func (h *NotificationController) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, notification.AckToken)
}

// parseNotificationPayload flattens the request into the loosely-typed
// key-value bag the pipeline normalizes. The gateway posts either a form
// body or a JSON object; repeated form keys keep their first value.
func parseNotificationPayload(r *http.Request) (map[string]string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/json") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode notification JSON: %w", err)
		}
		raw := make(map[string]string, len(body))
		for k, v := range body {
			switch t := v.(type) {
			case string:
				raw[k] = t
			case bool:
				raw[k] = fmt.Sprintf("%t", t)
			case float64:
				raw[k] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
			case nil:
				raw[k] = ""
			default:
				raw[k] = fmt.Sprintf("%v", t)
			}
		}
		return raw, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse notification form: %w", err)
	}
	raw := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			raw[k] = vs[0]
		}
	}
	return raw, nil
}
