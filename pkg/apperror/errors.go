package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string              `json:"error_code"`
	Message    string              `json:"message"`
	Fields     map[string][]string `json:"errors,omitempty"` // Per-field validation messages
	HTTPStatus int                 `json:"-"`
	Err        error               `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField attaches a field-level message and returns the same error.
func (e *AppError) WithField(field, message string) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Orders (ORD) ----

func ErrOrderNotFound() *AppError {
	return New("ORD_001", "Order not found", http.StatusNotFound)
}

// ---- Payment Business Logic (PAY) ----

func ErrAmountMismatch() *AppError {
	return New("PAY_001", "Payment amount is not valid", http.StatusUnprocessableEntity).
		WithField("amount", "The payment amount must match the order amount exactly.")
}

func ErrOrderAlreadyPaid() *AppError {
	return New("PAY_002", "Order has already been paid", http.StatusUnprocessableEntity).
		WithField("order", "No further payments can be processed for a paid order.")
}

func ErrPaymentNotFound() *AppError {
	return New("PAY_003", "Payment not found", http.StatusNotFound)
}

// ---- Request Validation (VAL) ----

// Validation returns a VAL_001 error with no field detail.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusUnprocessableEntity)
}

// ValidationFields returns a VAL_001 error carrying per-field messages.
func ValidationFields(fields map[string][]string) *AppError {
	e := Validation("The given data was invalid")
	e.Fields = fields
	return e
}

func ErrBodyTooLarge() *AppError {
	return New("VAL_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrProcessingFailure is returned when a payment could not be processed for
// reasons outside the business rules.
func ErrProcessingFailure(err error) *AppError {
	return Wrap("SYS_002", "Error processing the payment", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
