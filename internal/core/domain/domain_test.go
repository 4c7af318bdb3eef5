package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_IsPaid(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		want   bool
	}{
		{"pending", OrderStatusPending, false},
		{"paid", OrderStatusPaid, true},
		{"failed", OrderStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.status}
			assert.Equal(t, tt.want, o.IsPaid())
		})
	}
}

func TestOrder_AmountMatches(t *testing.T) {
	o := &Order{Amount: decimal.RequireFromString("100.00")}

	assert.True(t, o.AmountMatches(decimal.RequireFromString("100")))
	assert.True(t, o.AmountMatches(decimal.RequireFromString("100.0")))
	assert.False(t, o.AmountMatches(decimal.RequireFromString("50.00")))
	assert.False(t, o.AmountMatches(decimal.RequireFromString("100.001")))
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.01", true},
		{"100", true},
		{"100.50", true},
		{"100.500", true},
		{"100.505", false},
		{"0", false},
		{"-5.00", false},
		{"9999999999.99", true},
		{"10000000000", false},
		{"10000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestAmountInRange(t *testing.T) {
	assert.True(t, AmountInRange(decimal.RequireFromString("100.004")), "scale is not checked")
	assert.True(t, AmountInRange(decimal.RequireFromString("9999999999.999")))
	assert.False(t, AmountInRange(decimal.RequireFromString("10000000000")))
	assert.False(t, AmountInRange(decimal.RequireFromString("1e20")))
	assert.False(t, AmountInRange(decimal.Zero))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "100.00", FormatAmount(decimal.NewFromInt(100)))
	assert.Equal(t, "100.50", FormatAmount(decimal.RequireFromString("100.500")))
	assert.Equal(t, "100.004", FormatAmount(decimal.RequireFromString("100.004")))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, OrderStatusPending.Valid())
	assert.True(t, OrderStatusPaid.Valid())
	assert.True(t, OrderStatusFailed.Valid())
	assert.False(t, OrderStatus("PAID").Valid())

	assert.True(t, PaymentStatusSuccess.Valid())
	assert.True(t, PaymentStatusFailed.Valid())
	assert.False(t, PaymentStatus("pending").Valid())

	assert.True(t, AttemptStatusError.Valid())
	assert.False(t, AttemptStatus("").Valid())
}

func TestStatusMappings(t *testing.T) {
	assert.Equal(t, PaymentStatusSuccess, PaymentStatusFor(GatewayResult{Verdict: GatewayVerdictSuccess}))
	assert.Equal(t, PaymentStatusFailed, PaymentStatusFor(GatewayResult{Verdict: GatewayVerdictFailure}))
	assert.Equal(t, PaymentStatusFailed, PaymentStatusFor(GatewayResult{Verdict: GatewayVerdict("unknown")}))

	assert.Equal(t, OrderStatusPaid, OrderStatusAfter(PaymentStatusSuccess))
	assert.Equal(t, OrderStatusFailed, OrderStatusAfter(PaymentStatusFailed))

	assert.Equal(t, AttemptStatusSuccess, AttemptStatusFor(PaymentStatusSuccess))
	assert.Equal(t, AttemptStatusFailed, AttemptStatusFor(PaymentStatusFailed))
}

func TestGatewayResult_Approved(t *testing.T) {
	assert.True(t, GatewayResult{Verdict: GatewayVerdictSuccess}.Approved())
	assert.False(t, GatewayResult{Verdict: GatewayVerdictFailure}.Approved())
}

func TestNormalizeIdempotencyKey(t *testing.T) {
	assert.Nil(t, NormalizeIdempotencyKey(""))
	assert.Nil(t, NormalizeIdempotencyKey("   "))

	key := NormalizeIdempotencyKey("  retry-1 ")
	require.NotNil(t, key)
	assert.Equal(t, "retry-1", *key)
}
