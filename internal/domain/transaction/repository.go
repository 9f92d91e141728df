package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for transaction persistence
type Repository interface {
	// Create creates a new transaction
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByOrder retrieves the latest transaction of the given type for an order
	GetByOrder(ctx context.Context, orderNumber string, txType Type) (*Transaction, error)

	// GetByRemoteID retrieves a transaction by its gateway reference
	GetByRemoteID(ctx context.Context, remoteID string) (*Transaction, error)

	// Update updates an existing transaction
	Update(ctx context.Context, tx *Transaction) error

	// ListByOrder lists all transactions for an order
	ListByOrder(ctx context.Context, orderNumber string) ([]*Transaction, error)

	// AddEvent appends a transaction event to the audit trail
	AddEvent(ctx context.Context, event *Event) error

	// GetEvents retrieves the audit trail for a transaction
	GetEvents(ctx context.Context, transactionID uuid.UUID) ([]*Event, error)
}

// Event is one append-only entry in a transaction's audit trail.
type Event struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	EventType     string
	EventData     map[string]any
	CreatedAt     time.Time
}
