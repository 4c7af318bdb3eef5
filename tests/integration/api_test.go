package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"order-payments/config"
	httpHandler "order-payments/internal/adapter/http/handler"
	redisStorage "order-payments/internal/adapter/storage/redis"
	"order-payments/internal/core/ports"
	"order-payments/internal/service"
	"order-payments/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Gateway behaviours selectable per test.
const (
	gatewayApprove int32 = iota
	gatewayDecline
	gatewayHang
)

// testApp wires the real HTTP layer, middleware, services, Redis stores
// (miniredis) and gateway client (against an httptest fake) on top of
// in-memory transactional repositories.
type testApp struct {
	server  *httptest.Server
	gateway *httptest.Server
	redis   *miniredis.Miniredis
	store   *memStore

	gatewayMode  atomic.Int32
	gatewayCalls atomic.Int32
}

type appOption func(*appConfig)

type appConfig struct {
	rateLimit      config.RateLimitConfig
	gatewayTimeout time.Duration
}

func withRateLimit(cfg config.RateLimitConfig) appOption {
	return func(c *appConfig) { c.rateLimit = cfg }
}

func withGatewayTimeout(d time.Duration) appOption {
	return func(c *appConfig) { c.gatewayTimeout = d }
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	cfg := appConfig{gatewayTimeout: 2 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	app := &testApp{store: newMemStore()}

	app.gateway = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.gatewayCalls.Add(1)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		switch app.gatewayMode.Load() {
		case gatewayDecline:
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "declined", "order_id": body["order_id"]})
		case gatewayHang:
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "approved", "order_id": body["order_id"], "amount": body["amount"]})
		}
	}))

	mr := miniredis.RunT(t)
	app.redis = mr
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("debug", false)

	orderRepo := &inMemoryOrderRepo{s: app.store}
	paymentRepo := &inMemoryPaymentRepo{s: app.store}
	attemptRepo := &inMemoryAttemptRepo{s: app.store}

	gateway := service.NewGatewayClient(app.gateway.URL, cfg.gatewayTimeout, nil, log)
	attemptSvc := service.NewAttemptService(attemptRepo, orderRepo, log)
	paymentSvc := service.NewPaymentService(
		orderRepo, paymentRepo, attemptRepo, attemptSvc, gateway,
		redisStorage.NewIdempotencyCache(rdb), inMemoryTransactor{}, time.Hour, log,
	)
	orderSvc := service.NewOrderService(orderRepo, paymentRepo)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		OrderSvc:       orderSvc,
		AttemptSvc:     attemptSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		RateLimit:      cfg.rateLimit,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})
	app.server = httptest.NewServer(router)

	t.Cleanup(func() {
		app.server.Close()
		app.gateway.Close()
		_ = rdb.Close()
	})
	return app
}

type apiResponse struct {
	status  int
	headers http.Header
	body    map[string]interface{}
}

func (r apiResponse) data() map[string]interface{} {
	d, _ := r.body["data"].(map[string]interface{})
	return d
}

func (r apiResponse) list() []interface{} {
	d, _ := r.body["data"].([]interface{})
	return d
}

func (a *testApp) call(t *testing.T, method, path string, body interface{}, headers map[string]string) apiResponse {
	t.Helper()
	resp, err := a.do(method, path, body, headers)
	require.NoError(t, err)
	return resp
}

// do performs a request without failing the test, so it is safe to use from
// worker goroutines.
func (a *testApp) do(method, path string, body interface{}, headers map[string]string) (apiResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apiResponse{}, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		return apiResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return apiResponse{}, err
	}
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode, headers: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			return apiResponse{}, fmt.Errorf("decode %q: %w", raw, err)
		}
	}
	return out, nil
}

func (a *testApp) createOrder(t *testing.T, amount string) string {
	t.Helper()
	resp := a.call(t, http.MethodPost, "/api/orders", map[string]string{"customer_name": "Jane Doe", "amount": amount}, nil)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	return resp.data()["id"].(string)
}

func (a *testApp) pay(t *testing.T, orderID, amount, key string) apiResponse {
	t.Helper()
	resp, err := a.tryPay(orderID, amount, key)
	require.NoError(t, err)
	return resp
}

func (a *testApp) tryPay(orderID, amount, key string) (apiResponse, error) {
	var headers map[string]string
	if key != "" {
		headers = map[string]string{"Idempotency-Key": key}
	}
	return a.do(http.MethodPost, "/api/orders/"+orderID+"/payments", map[string]string{"amount": amount}, headers)
}

func (a *testApp) order(t *testing.T, orderID string) map[string]interface{} {
	t.Helper()
	resp := a.call(t, http.MethodGet, "/api/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, resp.status)
	return resp.data()
}

func (a *testApp) attempts(t *testing.T, orderID string) []interface{} {
	t.Helper()
	resp := a.call(t, http.MethodGet, "/api/orders/"+orderID+"/payment-attempts", nil, nil)
	require.Equal(t, http.StatusOK, resp.status)
	return resp.list()
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp := app.call(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "healthy", resp.body["status"])

	app.redis.Close()
	resp = app.call(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.status)
}

func TestIntegration_CreateAndShowOrder(t *testing.T) {
	app := newTestApp(t)

	orderID := app.createOrder(t, "100.00")
	order := app.order(t, orderID)

	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "100.00", order["amount"])
	assert.Equal(t, "Jane Doe", order["customer_name"])
	assert.EqualValues(t, 0, order["payments_count"])

	resp := app.call(t, http.MethodGet, "/api/orders/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "ORD_001", resp.body["error_code"])
}

func TestIntegration_CreateOrderValidation(t *testing.T) {
	app := newTestApp(t)

	resp := app.call(t, http.MethodPost, "/api/orders", map[string]string{"customer_name": "   ", "amount": "0"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	errs := resp.body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "customer_name")
	assert.Contains(t, errs, "amount")
}

func TestIntegration_ExactAmountSucceeds(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	resp := app.pay(t, orderID, "100.00", "")
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	payment := resp.data()
	assert.Equal(t, "success", payment["status"])
	assert.Equal(t, "100.00", payment["amount"])
	assert.Equal(t, "approved", payment["gateway_response"].(map[string]interface{})["status"])

	order := app.order(t, orderID)
	assert.Equal(t, "paid", order["status"])
	assert.EqualValues(t, 1, order["payments_count"])
	assert.Equal(t, 1, app.store.paymentCount())

	shown := app.call(t, http.MethodGet, "/api/payments/"+payment["id"].(string), nil, nil)
	assert.Equal(t, http.StatusOK, shown.status)
	assert.Equal(t, payment["id"], shown.data()["id"])

	attempts := app.attempts(t, orderID)
	require.Len(t, attempts, 1)
	attempt := attempts[0].(map[string]interface{})
	assert.Equal(t, "success", attempt["status"])
	assert.Equal(t, payment["id"], attempt["payment_id"])
	assert.Equal(t, "100.00", attempt["request_payload"].(map[string]interface{})["amount"])
	assert.NotEmpty(t, attempt["ip_address"])
}

func TestIntegration_IdempotentReplay(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	first := app.pay(t, orderID, "100.00", "key-abc")
	require.Equal(t, http.StatusCreated, first.status)

	second := app.pay(t, orderID, "100.00", "key-abc")
	require.Equal(t, http.StatusOK, second.status)
	assert.Equal(t, first.data()["id"], second.data()["id"])

	// Replay still resolves once the cache is gone.
	app.redis.FlushAll()
	third := app.pay(t, orderID, "100.00", "key-abc")
	require.Equal(t, http.StatusOK, third.status)
	assert.Equal(t, first.data()["id"], third.data()["id"])

	assert.Equal(t, 1, app.store.paymentCount())
	assert.EqualValues(t, 1, app.gatewayCalls.Load())
	assert.Len(t, app.attempts(t, orderID), 1, "replays write no attempts")
}

func TestIntegration_PaidOrderRejectsKeylessRequests(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")
	require.Equal(t, http.StatusCreated, app.pay(t, orderID, "100.00", "").status)

	for _, amount := range []string{"100.00", "50.00"} {
		resp := app.pay(t, orderID, amount, "")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.status, amount)
	}

	resp := app.pay(t, orderID, "100.00", "")
	assert.Equal(t, "PAY_002", resp.body["error_code"])
	assert.Contains(t, resp.body["errors"], "order")

	assert.Equal(t, 1, app.store.paymentCount())
	assert.EqualValues(t, 1, app.gatewayCalls.Load())

	latest := app.attempts(t, orderID)[0].(map[string]interface{})
	assert.Equal(t, "error", latest["status"])
	assert.Equal(t, "order already paid", latest["error_message"])
}

func TestIntegration_AmountMismatch(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	resp := app.pay(t, orderID, "50.00", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "PAY_001", resp.body["error_code"])
	assert.Contains(t, resp.body["errors"], "amount")

	attempts := app.attempts(t, orderID)
	require.Len(t, attempts, 1)
	attempt := attempts[0].(map[string]interface{})
	assert.Equal(t, "error", attempt["status"])
	assert.Nil(t, attempt["payment_id"])
	assert.Equal(t, "50.00", attempt["amount"])

	assert.Equal(t, "pending", app.order(t, orderID)["status"])
	assert.Zero(t, app.gatewayCalls.Load())
}

func TestIntegration_AmountWithExtraDecimalsIsAMismatch(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	resp := app.pay(t, orderID, "100.004", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "PAY_001", resp.body["error_code"])

	attempts := app.attempts(t, orderID)
	require.Len(t, attempts, 1)
	attempt := attempts[0].(map[string]interface{})
	assert.Equal(t, "error", attempt["status"])
	assert.Equal(t, "100.004", attempt["amount"])
	assert.Contains(t, attempt["error_message"], "100.004")
	assert.Zero(t, app.gatewayCalls.Load())
}

func TestIntegration_UnknownOrder(t *testing.T) {
	app := newTestApp(t)

	resp := app.pay(t, uuid.NewString(), "100.00", "")
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "ORD_001", resp.body["error_code"])
	assert.Zero(t, app.store.attemptCount())

	resp = app.call(t, http.MethodGet, "/api/orders/"+uuid.NewString()+"/payment-attempts", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestIntegration_GatewayDeclineThenRetry(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	app.gatewayMode.Store(gatewayDecline)
	declined := app.pay(t, orderID, "100.00", "")
	require.Equal(t, http.StatusCreated, declined.status)
	assert.Equal(t, "failed", declined.data()["status"])
	assert.Equal(t, "declined", declined.data()["gateway_response"].(map[string]interface{})["status"])
	assert.Equal(t, "failed", app.order(t, orderID)["status"])

	app.gatewayMode.Store(gatewayApprove)
	approved := app.pay(t, orderID, "100.00", "")
	require.Equal(t, http.StatusCreated, approved.status)
	assert.Equal(t, "success", approved.data()["status"])

	order := app.order(t, orderID)
	assert.Equal(t, "paid", order["status"])
	assert.EqualValues(t, 2, order["payments_count"])
	payments := order["payments"].([]interface{})
	require.Len(t, payments, 2)
	assert.Equal(t, "failed", payments[0].(map[string]interface{})["status"])
	assert.Equal(t, "success", payments[1].(map[string]interface{})["status"])

	attempts := app.attempts(t, orderID)
	require.Len(t, attempts, 2)
	assert.Equal(t, "success", attempts[0].(map[string]interface{})["status"])
	assert.Equal(t, "failed", attempts[1].(map[string]interface{})["status"])
}

func TestIntegration_GatewayTimeoutBecomesFailedPayment(t *testing.T) {
	app := newTestApp(t, withGatewayTimeout(100*time.Millisecond))
	orderID := app.createOrder(t, "100.00")

	app.gatewayMode.Store(gatewayHang)
	resp := app.pay(t, orderID, "100.00", "")
	require.Equal(t, http.StatusCreated, resp.status)
	assert.Equal(t, "failed", resp.data()["status"])
	assert.NotEmpty(t, resp.data()["gateway_response"].(map[string]interface{})["error"])
	assert.Equal(t, "failed", app.order(t, orderID)["status"])
}

func TestIntegration_AttemptsNewestFirst(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	require.Equal(t, http.StatusUnprocessableEntity, app.pay(t, orderID, "10.00", "").status)
	app.gatewayMode.Store(gatewayDecline)
	require.Equal(t, http.StatusCreated, app.pay(t, orderID, "100.00", "").status)
	app.gatewayMode.Store(gatewayApprove)
	require.Equal(t, http.StatusCreated, app.pay(t, orderID, "100.00", "").status)
	require.Equal(t, http.StatusUnprocessableEntity, app.pay(t, orderID, "100.00", "").status)

	var statuses []string
	for _, a := range app.attempts(t, orderID) {
		statuses = append(statuses, a.(map[string]interface{})["status"].(string))
	}
	assert.Equal(t, []string{"error", "success", "failed", "error"}, statuses)
}

func TestIntegration_InvalidPaymentBodyWritesNoAttempt(t *testing.T) {
	app := newTestApp(t)
	orderID := app.createOrder(t, "100.00")

	resp := app.call(t, http.MethodPost, "/api/orders/"+orderID+"/payments", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "VAL_001", resp.body["error_code"])

	resp = app.pay(t, orderID, "-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)

	resp = app.pay(t, orderID, "10000000000000", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "VAL_001", resp.body["error_code"])
	assert.Contains(t, resp.body["errors"], "amount")

	assert.Zero(t, app.store.attemptCount())
	assert.Zero(t, app.gatewayCalls.Load())
}

func TestIntegration_ListOrders(t *testing.T) {
	app := newTestApp(t)
	first := app.createOrder(t, "10.00")
	second := app.createOrder(t, "20.00")
	require.Equal(t, http.StatusCreated, app.pay(t, first, "10.00", "").status)

	resp := app.call(t, http.MethodGet, "/api/orders?page=1&page_size=1", nil, nil)
	require.Equal(t, http.StatusOK, resp.status)
	data := resp.data()
	assert.EqualValues(t, 2, data["total"])
	assert.EqualValues(t, 2, data["total_pages"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, second, items[0].(map[string]interface{})["id"], "newest order first")

	resp = app.call(t, http.MethodGet, "/api/orders?page=2&page_size=1", nil, nil)
	item := resp.data()["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, first, item["id"])
	assert.EqualValues(t, 1, item["payments_count"])
}

func TestIntegration_RateLimitOnPayments(t *testing.T) {
	app := newTestApp(t, withRateLimit(config.RateLimitConfig{
		Enabled:           true,
		PaymentsPerMinute: 2,
		OrdersPerMinute:   10,
		ReadsPerMinute:    10,
	}))
	orderID := app.createOrder(t, "100.00")

	assert.Equal(t, http.StatusUnprocessableEntity, app.pay(t, orderID, "1.00", "").status)
	assert.Equal(t, http.StatusUnprocessableEntity, app.pay(t, orderID, "1.00", "").status)

	resp := app.pay(t, orderID, "100.00", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.status)
	assert.Equal(t, "RATE_001", resp.body["error_code"])
	assert.NotEmpty(t, resp.headers.Get("Retry-After"))
	assert.Equal(t, "pending", app.order(t, orderID)["status"])
}

func TestIntegration_RequestIDPropagation(t *testing.T) {
	app := newTestApp(t)

	resp := app.call(t, http.MethodGet, "/api/payments/"+uuid.NewString(), nil, map[string]string{"X-Request-ID": "trace-1"})
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "trace-1", resp.headers.Get("X-Request-ID"))
	assert.Equal(t, "trace-1", resp.body["request_id"])
}
