package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttemptStatus is the outcome of a single payment processing call.
type AttemptStatus string

const (
	AttemptStatusSuccess AttemptStatus = "success"
	AttemptStatusFailed  AttemptStatus = "failed"
	AttemptStatusError   AttemptStatus = "error"
)

// Valid reports whether s is one of the known attempt statuses.
func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptStatusSuccess, AttemptStatusFailed, AttemptStatusError:
		return true
	}
	return false
}

// AttemptStatusFor maps a recorded payment status to the attempt status.
func AttemptStatusFor(status PaymentStatus) AttemptStatus {
	if status == PaymentStatusSuccess {
		return AttemptStatusSuccess
	}
	return AttemptStatusFailed
}

// ClientMetadata describes the caller of a payment request.
type ClientMetadata struct {
	IPAddress string
	UserAgent string
}

// PaymentAttempt is an append-only audit row written for every processing call
// that reaches amount validation. It has no update timestamp.
type PaymentAttempt struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	PaymentID       *uuid.UUID      `json:"payment_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Status          AttemptStatus   `json:"status"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
	IPAddress       string          `json:"ip_address"`
	UserAgent       string          `json:"user_agent"`
	RequestPayload  json.RawMessage `json:"request_payload,omitempty"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
