package dto

import (
	"encoding/json"
	"time"

	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CreatePaymentRequest is the request body for POST /orders/{order_id}/payments.
// Amount accepts a JSON number or a numeric string.
type CreatePaymentRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// PaymentHeaders holds the optional Idempotency-Key header.
type PaymentHeaders struct {
	IdempotencyKey string `header:"Idempotency-Key" binding:"omitempty,idempotency_key"`
}

// CreateOrderRequest is the request body for POST /orders.
type CreateOrderRequest struct {
	CustomerName string           `json:"customer_name" binding:"required,max=255"`
	Amount       *decimal.Decimal `json:"amount" binding:"required"`
}

// PaymentResponse is the response body for a payment.
type PaymentResponse struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	Amount          string          `json:"amount"`
	Status          string          `json:"status"`
	GatewayResponse json.RawMessage `json:"gateway_response"`
	IdempotencyKey  *string         `json:"idempotency_key"`
	CreatedAt       string          `json:"created_at"`
}

// OrderResponse is the response body for an order. Payments and
// PaymentsCount are omitted when the order is rendered without its payments.
type OrderResponse struct {
	ID            string            `json:"id"`
	CustomerName  string            `json:"customer_name"`
	Amount        string            `json:"amount"`
	Status        string            `json:"status"`
	PaymentsCount *int64            `json:"payments_count,omitempty"`
	Payments      []PaymentResponse `json:"payments,omitempty"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

// OrderListResponse wraps a paginated order list.
type OrderListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// PaymentAttemptResponse is the response body for a payment attempt.
type PaymentAttemptResponse struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	PaymentID       *string         `json:"payment_id"`
	Amount          string          `json:"amount"`
	Status          string          `json:"status"`
	IdempotencyKey  *string         `json:"idempotency_key"`
	IPAddress       string          `json:"ip_address"`
	UserAgent       string          `json:"user_agent"`
	RequestPayload  json.RawMessage `json:"request_payload"`
	ResponsePayload json.RawMessage `json:"response_payload"`
	ErrorMessage    *string         `json:"error_message"`
	CreatedAt       string          `json:"created_at"`
}

// NewPaymentResponse converts a domain.Payment to its DTO.
func NewPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID.String(),
		OrderID:         p.OrderID.String(),
		Amount:          p.Amount.StringFixed(domain.AmountScale),
		Status:          string(p.Status),
		GatewayResponse: rawOrNull(p.GatewayResponse),
		IdempotencyKey:  p.IdempotencyKey,
		CreatedAt:       formatTime(p.CreatedAt),
	}
}

// NewOrderResponse converts a bare domain.Order to its DTO.
func NewOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID.String(),
		CustomerName: o.CustomerName,
		Amount:       o.Amount.StringFixed(domain.AmountScale),
		Status:       string(o.Status),
		CreatedAt:    formatTime(o.CreatedAt),
		UpdatedAt:    formatTime(o.UpdatedAt),
	}
}

// NewOrderDetailsResponse converts an order with its payments to its DTO.
func NewOrderDetailsResponse(d *ports.OrderDetails) OrderResponse {
	resp := NewOrderResponse(&d.Order)
	count := d.PaymentsCount
	resp.PaymentsCount = &count
	resp.Payments = make([]PaymentResponse, 0, len(d.Payments))
	for i := range d.Payments {
		resp.Payments = append(resp.Payments, NewPaymentResponse(&d.Payments[i]))
	}
	return resp
}

// NewPaymentAttemptResponse converts a domain.PaymentAttempt to its DTO.
func NewPaymentAttemptResponse(a *domain.PaymentAttempt) PaymentAttemptResponse {
	resp := PaymentAttemptResponse{
		ID:              a.ID.String(),
		OrderID:         a.OrderID.String(),
		Amount:          domain.FormatAmount(a.Amount),
		Status:          string(a.Status),
		IdempotencyKey:  a.IdempotencyKey,
		IPAddress:       a.IPAddress,
		UserAgent:       a.UserAgent,
		RequestPayload:  rawOrNull(a.RequestPayload),
		ResponsePayload: rawOrNull(a.ResponsePayload),
		ErrorMessage:    a.ErrorMessage,
		CreatedAt:       formatTime(a.CreatedAt),
	}
	if a.PaymentID != nil {
		id := a.PaymentID.String()
		resp.PaymentID = &id
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// rawOrNull keeps absent payloads rendering as JSON null.
func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
