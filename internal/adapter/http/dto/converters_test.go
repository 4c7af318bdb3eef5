package dto

import (
	"encoding/json"
	"testing"
	"time"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentResponse(t *testing.T) {
	key := "key-1"
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 7*3600))
	p := &domain.Payment{
		ID:              uuid.New(),
		OrderID:         uuid.New(),
		Amount:          decimal.RequireFromString("100.5"),
		Status:          domain.PaymentStatusSuccess,
		GatewayResponse: json.RawMessage(`{"ok":true}`),
		IdempotencyKey:  &key,
		CreatedAt:       created,
	}

	resp := NewPaymentResponse(p)
	assert.Equal(t, p.ID.String(), resp.ID)
	assert.Equal(t, "100.50", resp.Amount)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "2026-03-01T03:00:00Z", resp.CreatedAt)
	assert.JSONEq(t, `{"ok":true}`, string(resp.GatewayResponse))
	assert.Equal(t, &key, resp.IdempotencyKey)
}

func TestNewPaymentResponse_NullGatewayResponse(t *testing.T) {
	resp := NewPaymentResponse(&domain.Payment{Amount: decimal.NewFromInt(1)})

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"gateway_response":null`)
	assert.Contains(t, string(out), `"idempotency_key":null`)
}

func TestNewOrderResponse_OmitsPayments(t *testing.T) {
	o := &domain.Order{ID: uuid.New(), CustomerName: "Jane", Amount: decimal.NewFromInt(10), Status: domain.OrderStatusPending}

	out, err := json.Marshal(NewOrderResponse(o))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "payments")
	assert.Contains(t, string(out), `"amount":"10.00"`)
}

func TestNewOrderDetailsResponse(t *testing.T) {
	orderID := uuid.New()
	d := &ports.OrderDetails{
		Order: domain.Order{ID: orderID, CustomerName: "Jane", Amount: decimal.NewFromInt(10), Status: domain.OrderStatusPaid},
		Payments: []domain.Payment{
			{ID: uuid.New(), OrderID: orderID, Amount: decimal.NewFromInt(10), Status: domain.PaymentStatusFailed},
			{ID: uuid.New(), OrderID: orderID, Amount: decimal.NewFromInt(10), Status: domain.PaymentStatusSuccess},
		},
		PaymentsCount: 2,
	}

	resp := NewOrderDetailsResponse(d)
	require.NotNil(t, resp.PaymentsCount)
	assert.Equal(t, int64(2), *resp.PaymentsCount)
	require.Len(t, resp.Payments, 2)
	assert.Equal(t, "failed", resp.Payments[0].Status)
	assert.Equal(t, "paid", resp.Status)
}

func TestNewOrderDetailsResponse_NoPayments(t *testing.T) {
	d := &ports.OrderDetails{Order: domain.Order{ID: uuid.New(), Amount: decimal.NewFromInt(10)}}

	out, err := json.Marshal(NewOrderDetailsResponse(d))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"payments_count":0`)
}

func TestNewPaymentAttemptResponse(t *testing.T) {
	paymentID := uuid.New()
	msg := "order already paid"
	a := &domain.PaymentAttempt{
		ID:             uuid.New(),
		OrderID:        uuid.New(),
		PaymentID:      &paymentID,
		Amount:         decimal.RequireFromString("50"),
		Status:         domain.AttemptStatusError,
		IPAddress:      "10.0.0.1",
		UserAgent:      "curl/8",
		RequestPayload: json.RawMessage(`{"amount":50}`),
		ErrorMessage:   &msg,
	}

	resp := NewPaymentAttemptResponse(a)
	require.NotNil(t, resp.PaymentID)
	assert.Equal(t, paymentID.String(), *resp.PaymentID)
	assert.Equal(t, "50.00", resp.Amount)

	a.Amount = decimal.RequireFromString("50.005")
	assert.Equal(t, "50.005", NewPaymentAttemptResponse(a).Amount)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, &msg, resp.ErrorMessage)
	assert.Equal(t, "null", string(resp.ResponsePayload))
}
