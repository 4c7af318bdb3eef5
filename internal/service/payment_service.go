package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"
	"order-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour

	msgOrderAlreadyPaid = "order already paid"
)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	orderRepo   ports.OrderRepository
	paymentRepo ports.PaymentRepository
	attemptRepo ports.AttemptRepository
	attempts    ports.AttemptService
	gateway     ports.GatewayClient
	idempCache  ports.IdempotencyCache
	transactor  ports.DBTransactor
	cacheTTL    time.Duration
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl. A non-positive cacheTTL
// falls back to 24h.
func NewPaymentService(
	orderRepo ports.OrderRepository,
	paymentRepo ports.PaymentRepository,
	attemptRepo ports.AttemptRepository,
	attempts ports.AttemptService,
	gateway ports.GatewayClient,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *PaymentServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = defaultIdempotencyTTL
	}
	return &PaymentServiceImpl{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		attemptRepo: attemptRepo,
		attempts:    attempts,
		gateway:     gateway,
		idempCache:  idempCache,
		transactor:  transactor,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// ProcessPayment validates the request against the order, short-circuits on a
// known idempotency key, calls the gateway and records the outcome.
//
// The gateway call happens outside the database transaction. Payment, attempt
// and order status are written in one transaction; the order update is
// conditional so a concurrently paid order is never overwritten.
//
// Caller cancellation is ignored once processing starts: an approved charge
// must always be recorded. The gateway call is bounded by its own timeout.
func (s *PaymentServiceImpl) ProcessPayment(ctx context.Context, req ports.PaymentRequest) (*ports.PaymentResult, error) {
	ctx = context.WithoutCancel(ctx)

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	logCtx := s.log.With().Str("order_id", order.ID.String())
	if req.IdempotencyKey != nil {
		logCtx = logCtx.Str("idempotency_key", *req.IdempotencyKey)
	}
	log := logCtx.Logger()

	if !order.AmountMatches(req.Amount) {
		msg := fmt.Sprintf("payment amount %s does not match order amount %s",
			domain.FormatAmount(req.Amount), domain.FormatAmount(order.Amount))
		s.recordError(ctx, req, msg, nil)
		log.Warn().Str("amount", req.Amount.String()).Msg("payment rejected: amount mismatch")
		return nil, apperror.ErrAmountMismatch()
	}

	if req.IdempotencyKey != nil {
		existing, err := s.findByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err != nil {
			s.recordError(ctx, req, err.Error(), nil)
			return nil, apperror.ErrProcessingFailure(err)
		}
		if existing != nil {
			log.Info().Str("payment_id", existing.ID.String()).Msg("idempotent replay")
			return &ports.PaymentResult{Payment: existing, Replayed: true}, nil
		}
	}

	if order.IsPaid() {
		s.recordError(ctx, req, msgOrderAlreadyPaid, nil)
		log.Warn().Msg("payment rejected: order already paid")
		return nil, apperror.ErrOrderAlreadyPaid()
	}

	verdict := s.gateway.Authorize(ctx, domain.GatewayRequest{
		OrderID:      order.ID,
		Amount:       order.Amount,
		CustomerName: order.CustomerName,
	})

	payment, err := s.recordOutcome(ctx, order, req, verdict)
	switch {
	case errors.Is(err, domain.ErrIdempotencyKeyConflict):
		// Lost the insert race to a request carrying the same key.
		winner, lookupErr := s.paymentRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if lookupErr == nil && winner == nil {
			lookupErr = fmt.Errorf("payment for idempotency key %q missing after conflict", *req.IdempotencyKey)
		}
		if lookupErr != nil {
			s.recordError(ctx, req, lookupErr.Error(), verdict.RawResponse)
			return nil, apperror.ErrProcessingFailure(lookupErr)
		}
		log.Info().Str("payment_id", winner.ID.String()).Msg("idempotent replay after conflict")
		return &ports.PaymentResult{Payment: winner, Replayed: true}, nil

	case errors.Is(err, domain.ErrOrderAlreadyPaid):
		s.recordError(ctx, req, msgOrderAlreadyPaid, verdict.RawResponse)
		log.Warn().Str("verdict", string(verdict.Verdict)).Msg("order paid concurrently, outcome discarded")
		return nil, apperror.ErrOrderAlreadyPaid()

	case err != nil:
		s.recordError(ctx, req, err.Error(), verdict.RawResponse)
		log.Error().Err(err).Msg("payment processing failed")
		return nil, apperror.ErrProcessingFailure(err)
	}

	if payment.IdempotencyKey != nil {
		s.cachePayment(ctx, payment)
	}

	log.Info().
		Str("payment_id", payment.ID.String()).
		Str("verdict", string(verdict.Verdict)).
		Str("amount", payment.Amount.StringFixed(domain.AmountScale)).
		Msg("payment processed")

	return &ports.PaymentResult{Payment: payment}, nil
}

// GetPayment returns a payment by ID.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if payment == nil {
		return nil, apperror.ErrPaymentNotFound()
	}
	return payment, nil
}

// recordOutcome persists the payment, its attempt and the order transition.
func (s *PaymentServiceImpl) recordOutcome(ctx context.Context, order *domain.Order, req ports.PaymentRequest, verdict domain.GatewayResult) (*domain.Payment, error) {
	now := time.Now().UTC()
	status := domain.PaymentStatusFor(verdict)

	payment := &domain.Payment{
		ID:              uuid.New(),
		OrderID:         order.ID,
		Amount:          order.Amount,
		Status:          status,
		GatewayResponse: verdict.RawResponse,
		IdempotencyKey:  req.IdempotencyKey,
		CreatedAt:       now,
	}

	attempt := newAttempt(req, domain.AttemptStatusFor(status), now)
	attempt.PaymentID = &payment.ID
	attempt.ResponsePayload = verdict.RawResponse

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.paymentRepo.Create(ctx, dbTx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	if err := s.attemptRepo.CreateTx(ctx, dbTx, attempt); err != nil {
		return nil, fmt.Errorf("create payment attempt: %w", err)
	}
	if err := s.orderRepo.UpdateStatus(ctx, dbTx, order.ID, domain.OrderStatusAfter(status)); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return payment, nil
}

// findByIdempotencyKey checks Redis first, then the database. Cache failures
// are logged and never fail the lookup.
func (s *PaymentServiceImpl) findByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		payment := &domain.Payment{}
		if err := json.Unmarshal(cached, payment); err == nil {
			return payment, nil
		}
		s.log.Warn().Str("idempotency_key", key).Msg("discarding unreadable cached payment")
	}

	payment, err := s.paymentRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("db idempotency check: %w", err)
	}
	if payment != nil {
		s.cachePayment(ctx, payment)
	}
	return payment, nil
}

func (s *PaymentServiceImpl) cachePayment(ctx context.Context, payment *domain.Payment) {
	data, err := json.Marshal(payment)
	if err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("failed to marshal payment for cache")
		return
	}
	if err := s.idempCache.Set(ctx, *payment.IdempotencyKey, data, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", *payment.IdempotencyKey).Msg("failed to cache idempotency in redis")
	}
}

func (s *PaymentServiceImpl) recordError(ctx context.Context, req ports.PaymentRequest, message string, response json.RawMessage) {
	attempt := newAttempt(req, domain.AttemptStatusError, time.Now().UTC())
	attempt.ErrorMessage = &message
	attempt.ResponsePayload = response
	s.attempts.RecordError(ctx, attempt)
}

func newAttempt(req ports.PaymentRequest, status domain.AttemptStatus, at time.Time) *domain.PaymentAttempt {
	return &domain.PaymentAttempt{
		ID:             uuid.New(),
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Status:         status,
		IdempotencyKey: req.IdempotencyKey,
		IPAddress:      req.Client.IPAddress,
		UserAgent:      req.Client.UserAgent,
		RequestPayload: req.RawPayload,
		CreatedAt:      at,
	}
}
