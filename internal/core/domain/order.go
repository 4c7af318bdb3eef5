package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places carried by order and payment amounts.
const AmountScale = 2

// OrderStatus represents the payment state of an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed:
		return true
	}
	return false
}

// Order is a customer order awaiting (or holding) payment.
type Order struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsPaid returns true once a successful payment has settled the order.
// A paid order never transitions again.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// AmountMatches compares the requested amount with the order amount using
// exact decimal equality (scale-insensitive: 100.0 equals 100.00).
func (o *Order) AmountMatches(amount decimal.Decimal) bool {
	return o.Amount.Equal(amount)
}

// MaxAmount is the exclusive upper bound for any amount, matching the
// NUMERIC(12,2) order and payment columns.
var MaxAmount = decimal.New(1, 10)

// AmountInRange reports whether a is strictly positive and below MaxAmount.
// Scale is not checked.
func AmountInRange(a decimal.Decimal) bool {
	return a.IsPositive() && a.LessThan(MaxAmount)
}

// ValidAmount reports whether a is in range and carries no more than
// AmountScale significant decimal places.
func ValidAmount(a decimal.Decimal) bool {
	return AmountInRange(a) && a.Equal(a.Round(AmountScale))
}

// FormatAmount renders a with AmountScale decimals. Extra significant
// digits are kept rather than rounded away.
func FormatAmount(a decimal.Decimal) string {
	if a.Equal(a.Round(AmountScale)) {
		return a.StringFixed(AmountScale)
	}
	return a.String()
}

// OrderStatusAfter maps a recorded payment outcome to the order status it produces.
func OrderStatusAfter(status PaymentStatus) OrderStatus {
	if status == PaymentStatusSuccess {
		return OrderStatusPaid
	}
	return OrderStatusFailed
}
