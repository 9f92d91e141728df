package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/infrastructure/observability"
	"github.com/cassiomorais/gateway/internal/notification"
	"github.com/cassiomorais/gateway/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationFixture struct {
	orders       *testutil.MockOrderRepository
	transactions *testutil.MockTransactionRepository
	controller   *NotificationController
}

func newNotificationFixture(t *testing.T, producer NotificationProducer) *notificationFixture {
	t.Helper()
	f := &notificationFixture{
		orders:       testutil.NewMockOrderRepository(),
		transactions: testutil.NewMockTransactionRepository(),
	}
	dispatcher := notification.NewStateDispatcher(f.transactions, &testutil.InlineLocker{}, testutil.InlineTxRunner{}, zerolog.Nop())
	pipeline := notification.NewPipeline(f.orders, dispatcher, zerolog.Nop())
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	f.controller = NewNotificationController(pipeline, producer, metrics, zerolog.Nop())
	return f
}

func postForm(t *testing.T, h http.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/gateway/notification", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestReceive_AppliesSuccessEvent(t *testing.T) {
	f := newNotificationFixture(t, nil)
	f.orders.AddOrder(testutil.NewTestOrder("ORDER-100", 10.99, "EUR"))
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	rec := postForm(t, f.controller.Receive, url.Values{
		"eventCode":         {"AUTHORISATION"},
		"merchantReference": {"ORDER-100"},
		"pspReference":      {"psp-123"},
		"success":           {"true"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())

	tx, err := f.transactions.GetByOrder(context.Background(), "ORDER-100", transaction.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusAuthorized, tx.Status)
}

func TestReceive_AcknowledgesFailureEvent(t *testing.T) {
	f := newNotificationFixture(t, nil)
	f.orders.AddOrder(testutil.NewTestOrder("ORDER-100", 10.99, "EUR"))
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	rec := postForm(t, f.controller.Receive, url.Values{
		"eventCode":         {"AUTHORISATION"},
		"merchantReference": {"ORDER-100"},
		"success":           {"false"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())

	tx, err := f.transactions.GetByOrder(context.Background(), "ORDER-100", transaction.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, tx.Status, "failure events are recorded, never applied")
}

func TestReceive_AcknowledgesMalformedEvent(t *testing.T) {
	f := newNotificationFixture(t, nil)

	// No merchantReference: permanently malformed, still acknowledged.
	rec := postForm(t, f.controller.Receive, url.Values{
		"eventCode": {"AUTHORISATION"},
		"success":   {"true"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())
}

func TestReceive_JSONPayload(t *testing.T) {
	f := newNotificationFixture(t, nil)
	f.orders.AddOrder(testutil.NewTestOrder("ORDER-100", 10.99, "EUR"))
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	body := `{"eventCode":"AUTHORISATION","merchantReference":"ORDER-100","pspReference":"psp-123","success":true,"live":false}`
	req := httptest.NewRequest(http.MethodPost, "/gateway/notification", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.controller.Receive(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())

	tx, err := f.transactions.GetByOrder(context.Background(), "ORDER-100", transaction.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusAuthorized, tx.Status)
}

type stubProducer struct {
	err       error
	published []map[string]string
}

func (p *stubProducer) PublishNotification(_ context.Context, raw map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, raw)
	return nil
}

func TestReceive_ProducerDefersDispatch(t *testing.T) {
	producer := &stubProducer{}
	f := newNotificationFixture(t, producer)
	f.orders.AddOrder(testutil.NewTestOrder("ORDER-100", 10.99, "EUR"))
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	rec := postForm(t, f.controller.Receive, url.Values{
		"eventCode":         {"AUTHORISATION"},
		"merchantReference": {"ORDER-100"},
		"success":           {"true"},
	})

	assert.Equal(t, "[accepted]", rec.Body.String())
	require.Len(t, producer.published, 1)
	assert.Equal(t, "AUTHORISATION", producer.published[0]["eventCode"])

	// The worker applies it later; nothing changed inline.
	tx, err := f.transactions.GetByOrder(context.Background(), "ORDER-100", transaction.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPending, tx.Status)
}

func TestReceive_ProducerFailureFallsBackInline(t *testing.T) {
	producer := &stubProducer{err: errors.New("stream down")}
	f := newNotificationFixture(t, producer)
	f.orders.AddOrder(testutil.NewTestOrder("ORDER-100", 10.99, "EUR"))
	f.transactions.Add(testutil.NewTestTransaction("ORDER-100", transaction.TypePayment, 1099, "EUR"))

	rec := postForm(t, f.controller.Receive, url.Values{
		"eventCode":         {"AUTHORISATION"},
		"merchantReference": {"ORDER-100"},
		"success":           {"true"},
	})

	assert.Equal(t, "[accepted]", rec.Body.String())

	tx, err := f.transactions.GetByOrder(context.Background(), "ORDER-100", transaction.TypePayment)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusAuthorized, tx.Status)
}

func TestReceive_UnparseableBody(t *testing.T) {
	f := newNotificationFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/gateway/notification", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.controller.Receive(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())
}
