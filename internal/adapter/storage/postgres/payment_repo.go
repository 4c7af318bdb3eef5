package postgres

import (
	"context"
	"errors"
	"fmt"

	"order-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	paymentColumns = `id, order_id, amount, status, gateway_response, idempotency_key, created_at`

	// Unique constraint backing idempotency key deduplication (see schema.sql).
	paymentsIdempotencyKeyIndex = "payments_idempotency_key_key"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a new payment within a database transaction.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	if !p.Status.Valid() {
		return fmt.Errorf("insert payment: invalid status %q", p.Status)
	}

	query := `INSERT INTO payments (` + paymentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.OrderID, p.Amount, p.Status, p.GatewayResponse, p.IdempotencyKey, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, paymentsIdempotencyKeyIndex) {
			return domain.ErrIdempotencyKeyConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID. Returns nil, nil when absent.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches the payment created under key. Returns nil, nil when absent.
func (r *PaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`
	return r.scanPayment(r.pool.QueryRow(ctx, query, key))
}

// ListByOrder returns an order's payments in creation order.
func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}

// ListByOrders returns payments grouped by order for a batch of orders.
func (r *PaymentRepo) ListByOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.Payment, error) {
	grouped := make(map[uuid.UUID][]domain.Payment, len(orderIDs))
	if len(orderIDs) == 0 {
		return grouped, nil
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = ANY($1) ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list payments by orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		grouped[p.OrderID] = append(grouped[p.OrderID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return grouped, nil
}

// CountByOrder returns the number of payments recorded for an order.
func (r *PaymentRepo) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE order_id = $1`, orderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func scanPaymentRow(row pgx.Row) (domain.Payment, error) {
	p := domain.Payment{}
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.GatewayResponse, &p.IdempotencyKey, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
