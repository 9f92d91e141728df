package testutil

import (
	"context"
	"sync"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/cassiomorais/gateway/internal/gateway"
	"github.com/google/uuid"
)

// --- Transaction Repository Mock ---

// MockTransactionRepository is an in-memory implementation of
// transaction.Repository. Individual methods can be overridden per test via
// the Func fields.
type MockTransactionRepository struct {
	mu           sync.Mutex
	transactions []*transaction.Transaction
	events       map[uuid.UUID][]*transaction.Event

	CreateFunc        func(ctx context.Context, tx *transaction.Transaction) error
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	GetByOrderFunc    func(ctx context.Context, orderNumber string, txType transaction.Type) (*transaction.Transaction, error)
	GetByRemoteIDFunc func(ctx context.Context, remoteID string) (*transaction.Transaction, error)
	UpdateFunc        func(ctx context.Context, tx *transaction.Transaction) error
	ListByOrderFunc   func(ctx context.Context, orderNumber string) ([]*transaction.Transaction, error)
	AddEventFunc      func(ctx context.Context, event *transaction.Event) error
	GetEventsFunc     func(ctx context.Context, transactionID uuid.UUID) ([]*transaction.Event, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		events: make(map[uuid.UUID][]*transaction.Event),
	}
}

// Add pre-populates the mock with a transaction.
func (m *MockTransactionRepository) Add(tx *transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx)
	}
	m.Add(tx)
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, domainErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByOrder(ctx context.Context, orderNumber string, txType transaction.Type) (*transaction.Transaction, error) {
	if m.GetByOrderFunc != nil {
		return m.GetByOrderFunc(ctx, orderNumber, txType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Latest first, matching the SQL repository.
	for i := len(m.transactions) - 1; i >= 0; i-- {
		tx := m.transactions[i]
		if tx.OrderNumber == orderNumber && tx.Type == txType {
			return tx, nil
		}
	}
	return nil, domainErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByRemoteID(ctx context.Context, remoteID string) (*transaction.Transaction, error) {
	if m.GetByRemoteIDFunc != nil {
		return m.GetByRemoteIDFunc(ctx, remoteID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.RemoteID != nil && *tx.RemoteID == remoteID {
			return tx, nil
		}
	}
	return nil, domainErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *transaction.Transaction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.transactions {
		if existing.ID == tx.ID {
			m.transactions[i] = tx
			return nil
		}
	}
	return domainErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) ListByOrder(ctx context.Context, orderNumber string) ([]*transaction.Transaction, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderNumber)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var txs []*transaction.Transaction
	for _, tx := range m.transactions {
		if tx.OrderNumber == orderNumber {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (m *MockTransactionRepository) AddEvent(ctx context.Context, event *transaction.Event) error {
	if m.AddEventFunc != nil {
		return m.AddEventFunc(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.TransactionID] = append(m.events[event.TransactionID], event)
	return nil
}

func (m *MockTransactionRepository) GetEvents(ctx context.Context, transactionID uuid.UUID) ([]*transaction.Event, error) {
	if m.GetEventsFunc != nil {
		return m.GetEventsFunc(ctx, transactionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[transactionID], nil
}

// EventTypes returns the recorded audit event types for a transaction, in
// order (test helper, no context needed).
func (m *MockTransactionRepository) EventTypes(transactionID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events[transactionID]))
	for _, e := range m.events[transactionID] {
		types = append(types, e.EventType)
	}
	return types
}

// --- Order Repository Mock ---

// MockOrderRepository is an in-memory implementation of order.Repository.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*order.Order

	GetByNumberFunc     func(ctx context.Context, number string) (*order.Order, error)
	SavePaymentDataFunc func(ctx context.Context, number string, data order.PaymentData) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*order.Order),
	}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderRepository) AddOrder(ord *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[ord.Number] = ord
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ord, ok := m.orders[number]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	return ord, nil
}

func (m *MockOrderRepository) SavePaymentData(ctx context.Context, number string, data order.PaymentData) error {
	if m.SavePaymentDataFunc != nil {
		return m.SavePaymentDataFunc(ctx, number, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ord, ok := m.orders[number]
	if !ok {
		return domainErrors.ErrOrderNotFound
	}
	ord.PaymentData = data
	return nil
}

// --- Gateway Client Mock ---

// MockGatewayClient is a mock implementation of gateway.Client.
type MockGatewayClient struct {
	AuthorizeFunc func(ctx context.Context, req gateway.AuthorizationRequest) (*gateway.AuthorizationResult, error)
	ModifyFunc    func(ctx context.Context, action string, req gateway.ModificationRequest) (*gateway.ModificationResponse, error)

	mu             sync.Mutex
	Authorizations []gateway.AuthorizationRequest
	Modifications  []RecordedModification
}

// RecordedModification captures one Modify call.
type RecordedModification struct {
	Action  string
	Request gateway.ModificationRequest
}

func (m *MockGatewayClient) Authorize(ctx context.Context, req gateway.AuthorizationRequest) (*gateway.AuthorizationResult, error) {
	m.mu.Lock()
	m.Authorizations = append(m.Authorizations, req)
	m.mu.Unlock()
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, req)
	}
	return &gateway.AuthorizationResult{AuthResult: transaction.ResultAuthorised, PspReference: "mock-psp-ref"}, nil
}

func (m *MockGatewayClient) Modify(ctx context.Context, action string, req gateway.ModificationRequest) (*gateway.ModificationResponse, error) {
	m.mu.Lock()
	m.Modifications = append(m.Modifications, RecordedModification{Action: action, Request: req})
	m.mu.Unlock()
	if m.ModifyFunc != nil {
		return m.ModifyFunc(ctx, action, req)
	}
	return &gateway.ModificationResponse{
		Response:     "[" + action + "-received]",
		PspReference: "mock-mod-ref",
	}, nil
}

// --- Locker Mock ---

// InlineLocker satisfies the notification Locker contract by running the
// callback without any real locking.
type InlineLocker struct {
	WithLockFunc func(ctx context.Context, key string, fn func(ctx context.Context) error) error

	mu   sync.Mutex
	Keys []string
}

func (l *InlineLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.Keys = append(l.Keys, key)
	l.mu.Unlock()
	if l.WithLockFunc != nil {
		return l.WithLockFunc(ctx, key, fn)
	}
	return fn(ctx)
}

// InlineTxRunner satisfies the notification TxRunner contract by running the
// callback directly, without a database transaction.
type InlineTxRunner struct{}

func (InlineTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
