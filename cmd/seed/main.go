// Command seed fills the database with sample orders and payments for local
// development: pending orders, paid orders with one successful payment, and
// failed orders with two failed payments each.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"order-payments/config"
	pgStorage "order-payments/internal/adapter/storage/postgres"
	"order-payments/internal/core/domain"
	"order-payments/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var customerNames = []string{
	"Ana Torres", "Bruno Silva", "Chen Wei", "Dana Kovacs", "Emeka Obi",
	"Farah Haddad", "Gustavo Lima", "Hana Sato", "Ivan Petrov", "Julia Novak",
}

type seedPlan struct {
	status   domain.OrderStatus
	orders   int
	payments int
	outcome  domain.PaymentStatus
}

var plans = []seedPlan{
	{status: domain.OrderStatusPending, orders: 5},
	{status: domain.OrderStatusPaid, orders: 3, payments: 1, outcome: domain.PaymentStatusSuccess},
	{status: domain.OrderStatusFailed, orders: 2, payments: 2, outcome: domain.PaymentStatusFailed},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Component(logger.New(cfg.Log.Level, cfg.Log.Pretty), "seed")

	ctx := context.Background()
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	s := &seeder{
		orders:     pgStorage.NewOrderRepo(pool),
		payments:   pgStorage.NewPaymentRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		log:        log,
	}
	for _, p := range plans {
		if err := s.seed(ctx, p); err != nil {
			log.Fatal().Err(err).Str("status", string(p.status)).Msg("Seeding failed")
		}
	}
	log.Info().Msg("Seeding complete")
}

type seeder struct {
	orders     *pgStorage.OrderRepo
	payments   *pgStorage.PaymentRepo
	transactor *pgStorage.Transactor
	log        zerolog.Logger
}

func (s *seeder) seed(ctx context.Context, p seedPlan) error {
	for i := 0; i < p.orders; i++ {
		now := time.Now().UTC()
		order := &domain.Order{
			ID:           uuid.New(),
			CustomerName: customerNames[rand.Intn(len(customerNames))],
			Amount:       randomAmount(),
			Status:       p.status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		if err := s.seedPayments(ctx, order, p); err != nil {
			return err
		}
		s.log.Info().
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Int("payments", p.payments).
			Msg("order seeded")
	}
	return nil
}

func (s *seeder) seedPayments(ctx context.Context, order *domain.Order, p seedPlan) error {
	if p.payments == 0 {
		return nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	body, _ := json.Marshal(map[string]string{"status": string(p.outcome), "source": "seed"})
	for i := 0; i < p.payments; i++ {
		payment := &domain.Payment{
			ID:              uuid.New(),
			OrderID:         order.ID,
			Amount:          order.Amount,
			Status:          p.outcome,
			GatewayResponse: body,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.payments.Create(ctx, dbTx, payment); err != nil {
			return err
		}
	}
	return dbTx.Commit(ctx)
}

// randomAmount returns an amount between 10.00 and 1000.00.
func randomAmount() decimal.Decimal {
	cents := 1000 + rand.Int63n(99001)
	return decimal.New(cents, -domain.AmountScale)
}
