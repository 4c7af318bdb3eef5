package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"order-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttempt(orderID uuid.UUID, status domain.AttemptStatus) *domain.PaymentAttempt {
	return &domain.PaymentAttempt{
		ID:              uuid.New(),
		OrderID:         orderID,
		Amount:          decimal.RequireFromString("50.00"),
		Status:          status,
		IPAddress:       "10.0.0.1",
		UserAgent:       "curl/8.0",
		RequestPayload:  json.RawMessage(`{"amount":50}`),
		ResponsePayload: nil,
		ErrorMessage:    strPtr("amount mismatch"),
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

func attemptCols() []string {
	return []string{"id", "order_id", "payment_id", "amount", "status", "idempotency_key",
		"ip_address", "user_agent", "request_payload", "response_payload", "error_message", "created_at"}
}

func attemptArgs(a *domain.PaymentAttempt) []any {
	return []any{a.ID, a.OrderID, a.PaymentID, a.Amount, a.Status, a.IdempotencyKey,
		a.IPAddress, a.UserAgent, a.RequestPayload, a.ResponsePayload, a.ErrorMessage, a.CreatedAt}
}

func TestAttemptRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := newTestAttempt(uuid.New(), domain.AttemptStatusError)

	mock.ExpectExec("INSERT INTO payment_attempts").
		WithArgs(attemptArgs(a)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewAttemptRepo(mock).Create(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepo_CreateTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	paymentID := uuid.New()
	a := newTestAttempt(uuid.New(), domain.AttemptStatusSuccess)
	a.PaymentID = &paymentID
	a.ErrorMessage = nil
	a.ResponsePayload = json.RawMessage(`{"ok":true}`)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_attempts").
		WithArgs(attemptArgs(a)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, NewAttemptRepo(mock).CreateTx(context.Background(), dbTx, a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepo_Create_InvalidStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := newTestAttempt(uuid.New(), "retrying")

	err = NewAttemptRepo(mock).Create(context.Background(), a)
	assert.ErrorContains(t, err, "invalid status")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepo_ListByOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	orderID := uuid.New()
	newer := newTestAttempt(orderID, domain.AttemptStatusSuccess)
	older := newTestAttempt(orderID, domain.AttemptStatusError)
	older.CreatedAt = newer.CreatedAt.Add(-time.Minute)

	rows := pgxmock.NewRows(attemptCols())
	rows.AddRow(attemptArgs(newer)...)
	rows.AddRow(attemptArgs(older)...)

	mock.ExpectQuery("SELECT .+ FROM payment_attempts\\s+WHERE order_id = \\$1 ORDER BY created_at DESC").
		WithArgs(orderID).
		WillReturnRows(rows)

	attempts, err := NewAttemptRepo(mock).ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, newer.ID, attempts[0].ID)
	assert.Equal(t, domain.AttemptStatusError, attempts[1].Status)
	require.NotNil(t, attempts[1].ErrorMessage)
	assert.Equal(t, "amount mismatch", *attempts[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
