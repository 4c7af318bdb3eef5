package handler

import (
	"encoding/json"

	"order-payments/internal/adapter/http/dto"
	"order-payments/internal/adapter/http/middleware"
	"order-payments/internal/core/domain"
	"order-payments/internal/core/ports"
	"order-payments/pkg/apperror"
	"order-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

var amountRangeMessage = "The amount must be greater than 0 and less than " + domain.MaxAmount.String() + "."

// PaymentHandler handles payment and payment attempt endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
	attemptSvc ports.AttemptService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService, attemptSvc ports.AttemptService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, attemptSvc: attemptSvc}
}

// CreatePayment handles POST /api/orders/:order_id/payments.
// A new payment answers 201, a replayed idempotency key answers 200.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		response.Error(c, apperror.ErrOrderNotFound())
		return
	}

	var headers dto.PaymentHeaders
	if err := c.ShouldBindHeader(&headers); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		response.Error(c, dto.BindError(err))
		return
	}
	if !domain.AmountInRange(*req.Amount) {
		response.Error(c, apperror.ValidationFields(map[string][]string{
			"amount": {amountRangeMessage},
		}))
		return
	}

	result, err := h.paymentSvc.ProcessPayment(c.Request.Context(), ports.PaymentRequest{
		OrderID:        orderID,
		Amount:         *req.Amount,
		IdempotencyKey: domain.NormalizeIdempotencyKey(headers.IdempotencyKey),
		Client:         middleware.GetClientMetadata(c),
		RawPayload:     rawBody(c, req),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Replayed {
		response.OK(c, dto.NewPaymentResponse(result.Payment))
		return
	}
	response.Created(c, dto.NewPaymentResponse(result.Payment))
}

// GetPayment handles GET /api/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrPaymentNotFound())
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewPaymentResponse(payment))
}

// ListAttempts handles GET /api/orders/:order_id/payment-attempts.
func (h *PaymentHandler) ListAttempts(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		response.Error(c, apperror.ErrOrderNotFound())
		return
	}

	attempts, err := h.attemptSvc.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.PaymentAttemptResponse, 0, len(attempts))
	for i := range attempts {
		items = append(items, dto.NewPaymentAttemptResponse(&attempts[i]))
	}
	response.OK(c, items)
}

// rawBody returns the request body cached by ShouldBindBodyWith, falling back
// to the re-encoded request.
func rawBody(c *gin.Context, req dto.CreatePaymentRequest) json.RawMessage {
	if v, ok := c.Get(gin.BodyBytesKey); ok {
		if b, ok := v.([]byte); ok && json.Valid(b) {
			return json.RawMessage(b)
		}
	}
	b, _ := json.Marshal(req) // a decimal always encodes
	return b
}
