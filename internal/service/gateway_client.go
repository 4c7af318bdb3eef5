package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"order-payments/internal/core/domain"

	"github.com/rs/zerolog"
)

const (
	defaultGatewayTimeout = 5 * time.Second

	// Responses above this size are truncated and fail JSON validation.
	maxGatewayResponseBytes = 1 << 20
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// gatewayPayload is the wire body sent to the authorization endpoint.
type gatewayPayload struct {
	OrderID      string `json:"order_id"`
	Amount       string `json:"amount"`
	CustomerName string `json:"customer_name"`
}

// GatewayClientImpl implements ports.GatewayClient over HTTP.
type GatewayClientImpl struct {
	url        string
	timeout    time.Duration
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewGatewayClient creates a gateway client posting to url. A nil httpClient
// gets a default client bounded by timeout.
func NewGatewayClient(url string, timeout time.Duration, httpClient HTTPClient, log zerolog.Logger) *GatewayClientImpl {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &GatewayClientImpl{
		url:        url,
		timeout:    timeout,
		httpClient: httpClient,
		log:        log,
	}
}

// Authorize posts the order to the gateway. A 2xx response is a success and
// any other status is a failure carrying the response body. Transport errors,
// timeouts and non-JSON bodies become a failure with an {"error": ...} body.
func (g *GatewayClientImpl) Authorize(ctx context.Context, req domain.GatewayRequest) domain.GatewayResult {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	log := g.log.With().Str("order_id", req.OrderID.String()).Logger()

	body, err := json.Marshal(gatewayPayload{
		OrderID:      req.OrderID.String(),
		Amount:       req.Amount.StringFixed(domain.AmountScale),
		CustomerName: req.CustomerName,
	})
	if err != nil {
		return g.failure(log, fmt.Errorf("encode gateway request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return g.failure(log, fmt.Errorf("build gateway request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	log.Info().Str("url", g.url).Msg("gateway: authorizing payment")

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return g.failure(log, fmt.Errorf("gateway request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponseBytes))
	if err != nil {
		return g.failure(log, fmt.Errorf("read gateway response: %w", err))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("null")
	} else if !json.Valid(raw) {
		return g.failure(log, fmt.Errorf("gateway returned a non-JSON response (status %d)", resp.StatusCode))
	}

	verdict := domain.GatewayVerdictFailure
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		verdict = domain.GatewayVerdictSuccess
	}

	log.Info().
		Int("status", resp.StatusCode).
		Str("verdict", string(verdict)).
		Dur("latency", time.Since(start)).
		Msg("gateway: response received")

	return domain.GatewayResult{Verdict: verdict, RawResponse: raw}
}

func (g *GatewayClientImpl) failure(log zerolog.Logger, err error) domain.GatewayResult {
	log.Warn().Err(err).Msg("gateway: authorization failed")

	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return domain.GatewayResult{Verdict: domain.GatewayVerdictFailure, RawResponse: raw}
}
