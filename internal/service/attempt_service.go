package service

import (
	"context"
	"time"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"
	"order-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type attemptService struct {
	attemptRepo ports.AttemptRepository
	orderRepo   ports.OrderRepository
	log         zerolog.Logger
}

// NewAttemptService creates a new attempt service.
func NewAttemptService(attemptRepo ports.AttemptRepository, orderRepo ports.OrderRepository, log zerolog.Logger) ports.AttemptService {
	return &attemptService{attemptRepo: attemptRepo, orderRepo: orderRepo, log: log}
}

// RecordError appends an error attempt synchronously. It is detached from
// ctx cancellation so a disconnecting client still leaves an audit row.
func (s *attemptService) RecordError(ctx context.Context, attempt *domain.PaymentAttempt) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	attempt.Status = domain.AttemptStatusError

	evt := s.log.Info().
		Str("order_id", attempt.OrderID.String()).
		Str("ip", attempt.IPAddress)
	if attempt.ErrorMessage != nil {
		evt = evt.Str("error_message", *attempt.ErrorMessage)
	}
	evt.Msg("payment attempt error")

	if err := s.attemptRepo.Create(context.WithoutCancel(ctx), attempt); err != nil {
		s.log.Warn().Err(err).Str("order_id", attempt.OrderID.String()).Msg("failed to persist payment attempt")
	}
}

// ListByOrder returns the order's attempts newest first.
func (s *attemptService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentAttempt, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	attempts, err := s.attemptRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return attempts, nil
}
