package postgres

import (
	"context"
	"fmt"

	"order-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	attemptColumns = `id, order_id, payment_id, amount, status, idempotency_key,
		ip_address, user_agent, request_payload, response_payload, error_message, created_at`

	insertAttemptQuery = `INSERT INTO payment_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
)

// execer is satisfied by both Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AttemptRepo implements ports.AttemptRepository. Rows are never updated.
type AttemptRepo struct {
	pool Pool
}

// NewAttemptRepo creates a new AttemptRepo.
func NewAttemptRepo(pool Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

// Create appends an attempt using the pool.
func (r *AttemptRepo) Create(ctx context.Context, a *domain.PaymentAttempt) error {
	return r.insert(ctx, r.pool, a)
}

// CreateTx appends an attempt within a database transaction.
func (r *AttemptRepo) CreateTx(ctx context.Context, tx pgx.Tx, a *domain.PaymentAttempt) error {
	return r.insert(ctx, tx, a)
}

func (r *AttemptRepo) insert(ctx context.Context, db execer, a *domain.PaymentAttempt) error {
	if !a.Status.Valid() {
		return fmt.Errorf("insert payment attempt: invalid status %q", a.Status)
	}

	_, err := db.Exec(ctx, insertAttemptQuery,
		a.ID, a.OrderID, a.PaymentID, a.Amount, a.Status, a.IdempotencyKey,
		a.IPAddress, a.UserAgent, a.RequestPayload, a.ResponsePayload, a.ErrorMessage, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment attempt: %w", err)
	}
	return nil
}

// ListByOrder returns an order's attempts, newest first.
func (r *AttemptRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts
		WHERE order_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payment attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.PaymentAttempt{}
	for rows.Next() {
		a := domain.PaymentAttempt{}
		err := rows.Scan(
			&a.ID, &a.OrderID, &a.PaymentID, &a.Amount, &a.Status, &a.IdempotencyKey,
			&a.IPAddress, &a.UserAgent, &a.RequestPayload, &a.ResponsePayload, &a.ErrorMessage, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment attempt rows: %w", err)
	}
	return attempts, nil
}
