package handler

import (
	"order-payments/config"
	"order-payments/internal/adapter/http/middleware"
	redisStore "order-payments/internal/adapter/storage/redis"
	"order-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	OrderSvc       ports.OrderService
	AttemptSvc     ports.AttemptService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimit      config.RateLimitConfig
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes))
	r.Use(middleware.ClientMetadata())

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.RateLimitRules(deps.RateLimit)

	// Helper: return rate limiter middleware if enabled, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil || !deps.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok || rule.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	api := r.Group("/api")

	orderHandler := NewOrderHandler(deps.OrderSvc)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.AttemptSvc)

	orders := api.Group("/orders")
	{
		orders.GET("", rl(middleware.GroupReads), orderHandler.ListOrders)
		orders.POST("", rl(middleware.GroupOrders), orderHandler.CreateOrder)
		orders.GET("/:order_id", rl(middleware.GroupReads), orderHandler.GetOrder)
		orders.POST("/:order_id/payments", rl(middleware.GroupPayments), paymentHandler.CreatePayment)
		orders.GET("/:order_id/payment-attempts", rl(middleware.GroupReads), paymentHandler.ListAttempts)
	}

	api.GET("/payments/:id", rl(middleware.GroupReads), paymentHandler.GetPayment)

	return r
}
