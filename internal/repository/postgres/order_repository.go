package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository reads orders from the commerce system's store and writes
// back only the gateway payment-data bag. Orders themselves are owned by
// the surrounding system.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// GetByNumber retrieves an order by its stable identifier.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	ord := &order.Order{}
	var paymentData []byte
	err := r.db(ctx).QueryRow(ctx,
		`SELECT order_number, amount, currency, payment_data
		 FROM orders WHERE order_number = $1`, number,
	).Scan(&ord.Number, &ord.Amount, &ord.Currency, &paymentData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if len(paymentData) > 0 {
		if err := json.Unmarshal(paymentData, &ord.PaymentData); err != nil {
			return nil, fmt.Errorf("unmarshal payment data: %w", err)
		}
	}
	return ord, nil
}

// SavePaymentData persists the gateway metadata onto the order.
func (r *OrderRepository) SavePaymentData(ctx context.Context, number string, data order.PaymentData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payment data: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET payment_data = $1, updated_at = NOW() WHERE order_number = $2`,
		payload, number,
	)
	if err != nil {
		return fmt.Errorf("save payment data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}
