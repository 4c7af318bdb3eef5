package ports

import (
	"context"

	"order-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error)
	// UpdateStatus never touches an order that is already paid. It returns
	// domain.ErrOrderAlreadyPaid when the conditional update matches no row.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OrderStatus) error
}

// OrderListParams holds pagination for listing orders.
type OrderListParams struct {
	Page     int
	PageSize int
}

// PaymentRepository defines persistence operations for payments.
// Payments are immutable once created.
type PaymentRepository interface {
	// Create returns domain.ErrIdempotencyKeyConflict when another payment
	// already holds the same idempotency key.
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payment, error)
	ListByOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.Payment, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// AttemptRepository is the append-only payment attempt log.
type AttemptRepository interface {
	// Create writes an attempt outside any transaction.
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	// CreateTx writes an attempt as part of an open transaction.
	CreateTx(ctx context.Context, tx pgx.Tx, attempt *domain.PaymentAttempt) error
	// ListByOrder returns attempts newest first.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentAttempt, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
