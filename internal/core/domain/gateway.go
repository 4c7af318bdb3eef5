package domain

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayVerdict is the normalized outcome of an authorization call.
type GatewayVerdict string

const (
	GatewayVerdictSuccess GatewayVerdict = "success"
	GatewayVerdictFailure GatewayVerdict = "failure"
)

// GatewayRequest is the body sent to the authorization endpoint.
type GatewayRequest struct {
	OrderID      uuid.UUID       `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	CustomerName string          `json:"customer_name"`
}

// GatewayResult carries the verdict together with the raw endpoint response.
// RawResponse is stored verbatim on the payment and attempt records.
type GatewayResult struct {
	Verdict     GatewayVerdict
	RawResponse json.RawMessage
}

// Approved returns true for a success verdict.
func (r GatewayResult) Approved() bool {
	return r.Verdict == GatewayVerdictSuccess
}
