package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository implements transaction.Repository using PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const transactionColumns = `id, order_number, remote_id, amount_minor, currency, status, tx_type, created_at, updated_at`

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO transactions
		 (id, order_number, remote_id, amount_minor, currency, status, tx_type, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		tx.ID, tx.OrderNumber, tx.RemoteID, tx.AmountMinor, tx.CurrencyCode,
		string(tx.Status), string(tx.Type), tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByOrder retrieves the latest transaction of a type for an order.
func (r *TransactionRepository) GetByOrder(ctx context.Context, orderNumber string, txType transaction.Type) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE order_number = $1 AND tx_type = $2
		 ORDER BY created_at DESC LIMIT 1`, orderNumber, string(txType)))
}

// GetByRemoteID retrieves a transaction by its gateway reference.
func (r *TransactionRepository) GetByRemoteID(ctx context.Context, remoteID string) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE remote_id = $1`, remoteID))
}

// Update updates the mutable fields of a transaction. Amount, currency and
// type are immutable and deliberately excluded.
func (r *TransactionRepository) Update(ctx context.Context, tx *transaction.Transaction) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactions SET remote_id=$1, status=$2, updated_at=$3 WHERE id=$4`,
		tx.RemoteID, string(tx.Status), tx.UpdatedAt, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTransactionNotFound
	}
	return nil
}

// ListByOrder lists all transactions for an order, oldest first.
func (r *TransactionRepository) ListByOrder(ctx context.Context, orderNumber string) ([]*transaction.Transaction, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE order_number = $1 ORDER BY created_at ASC`, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// AddEvent appends a transaction event to the audit trail.
func (r *TransactionRepository) AddEvent(ctx context.Context, event *transaction.Event) error {
	data, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO transaction_events (id, transaction_id, event_type, event_data, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		event.ID, event.TransactionID, event.EventType, data,
	)
	if err != nil {
		return fmt.Errorf("insert transaction event: %w", err)
	}
	return nil
}

// GetEvents retrieves the audit trail for a transaction.
func (r *TransactionRepository) GetEvents(ctx context.Context, transactionID uuid.UUID) ([]*transaction.Event, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, transaction_id, event_type, event_data, created_at
		 FROM transaction_events WHERE transaction_id = $1 ORDER BY created_at ASC`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transaction events: %w", err)
	}
	defer rows.Close()

	var events []*transaction.Event
	for rows.Next() {
		e := &transaction.Event{}
		var data []byte
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.EventType, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal(data, &e.EventData); err != nil {
			return nil, fmt.Errorf("unmarshal event data: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// scanTransaction scans a transaction from any row source.
func (r *TransactionRepository) scanTransaction(s scanner) (*transaction.Transaction, error) {
	tx := &transaction.Transaction{}
	var (
		status string
		txType string
	)
	err := s.Scan(
		&tx.ID, &tx.OrderNumber, &tx.RemoteID, &tx.AmountMinor, &tx.CurrencyCode,
		&status, &txType, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Status = transaction.Status(status)
	tx.Type = transaction.Type(txType)
	return tx, nil
}
