package ports

import (
	"context"
	"encoding/json"
	"time"

	"order-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdempotencyCache is the Redis-layer idempotency check (fast path).
// It is never authoritative: misses and errors fall through to the database.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached payment JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GatewayClient calls the external authorization endpoint. Transport failures
// are folded into a failure verdict, so Authorize has no error return.
type GatewayClient interface {
	Authorize(ctx context.Context, req domain.GatewayRequest) domain.GatewayResult
}

// --- Service Ports (Business Logic) ---

// PaymentService defines the core payment business logic.
type PaymentService interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// PaymentRequest holds validated input for payment processing.
type PaymentRequest struct {
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey *string
	Client         domain.ClientMetadata
	RawPayload     json.RawMessage // Request body as received, stored on attempts
}

// PaymentResult is the outcome of ProcessPayment. Replayed is set when an
// existing payment was returned for a previously seen idempotency key.
type PaymentResult struct {
	Payment  *domain.Payment
	Replayed bool
}

// OrderService defines order management.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDetails, error)
	ListOrders(ctx context.Context, params OrderListParams) ([]OrderDetails, int64, error)
}

// CreateOrderRequest holds validated input for order creation.
type CreateOrderRequest struct {
	CustomerName string
	Amount       decimal.Decimal
}

// OrderDetails is an order together with its payments.
type OrderDetails struct {
	Order         domain.Order
	Payments      []domain.Payment
	PaymentsCount int64
}

// AttemptService records and lists payment attempts.
type AttemptService interface {
	// RecordError appends an error attempt. Persistence failures are logged, not returned.
	RecordError(ctx context.Context, attempt *domain.PaymentAttempt)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentAttempt, error)
}
