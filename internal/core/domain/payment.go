package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the recorded outcome of a gateway authorization.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// PaymentStatusFor maps a gateway result onto a payment status.
// Anything other than an approval is recorded as failed.
func PaymentStatusFor(r GatewayResult) PaymentStatus {
	if r.Approved() {
		return PaymentStatusSuccess
	}
	return PaymentStatusFailed
}

// Payment is an immutable record of one gateway-backed payment for an order.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          PaymentStatus   `json:"status"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"` // Opaque, never inspected
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
