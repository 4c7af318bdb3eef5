package service

import (
	"context"
	"strings"
	"time"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"
	"order-payments/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// orderService implements ports.OrderService.
type orderService struct {
	orderRepo   ports.OrderRepository
	paymentRepo ports.PaymentRepository
}

// NewOrderService creates a new order service.
func NewOrderService(orderRepo ports.OrderRepository, paymentRepo ports.PaymentRepository) ports.OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
	}
}

// CreateOrder stores a new pending order.
func (s *orderService) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	name := strings.TrimSpace(req.CustomerName)
	fields := map[string][]string{}
	if name == "" {
		fields["customer_name"] = append(fields["customer_name"], "The customer name field is required.")
	}
	switch {
	case !domain.AmountInRange(req.Amount):
		fields["amount"] = append(fields["amount"], "The amount must be greater than 0 and less than "+domain.MaxAmount.String()+".")
	case !domain.ValidAmount(req.Amount):
		fields["amount"] = append(fields["amount"], "The amount may not have more than two decimal places.")
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields(fields)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:           uuid.New(),
		CustomerName: name,
		Amount:       req.Amount.Round(domain.AmountScale),
		Status:       domain.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return order, nil
}

// GetOrder returns an order with all of its payments.
func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*ports.OrderDetails, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	payments, err := s.paymentRepo.ListByOrder(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	count, err := s.paymentRepo.CountByOrder(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	return &ports.OrderDetails{Order: *order, Payments: payments, PaymentsCount: count}, nil
}

// ListOrders returns a page of orders with their payments. Out-of-range
// pagination values are clamped.
func (s *orderService) ListOrders(ctx context.Context, params ports.OrderListParams) ([]ports.OrderDetails, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	orders, total, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	grouped, err := s.paymentRepo.ListByOrders(ctx, ids)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}

	details := make([]ports.OrderDetails, 0, len(orders))
	for _, o := range orders {
		payments := grouped[o.ID]
		if payments == nil {
			payments = []domain.Payment{}
		}
		details = append(details, ports.OrderDetails{
			Order:         o,
			Payments:      payments,
			PaymentsCount: int64(len(payments)),
		})
	}
	return details, total, nil
}
