package middleware

import (
	"fmt"
	"net/http"
	"time"

	"order-payments/internal/core/domain"
	"order-payments/pkg/apperror"
	"order-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// CtxClient holds the domain.ClientMetadata of the caller.
	CtxClient = "client_metadata"
)

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", GetRequestID(c)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Str("request_id", GetRequestID(c)).
					Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ClientMetadata captures the caller's IP address and user agent for the
// payment attempt log.
func ClientMetadata() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxClient, domain.ClientMetadata{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Next()
	}
}

// GetClientMetadata returns the metadata stored by ClientMetadata, falling
// back to reading it from the request directly.
func GetClientMetadata(c *gin.Context) domain.ClientMetadata {
	if v, ok := c.Get(CtxClient); ok {
		if m, ok := v.(domain.ClientMetadata); ok {
			return m
		}
	}
	return domain.ClientMetadata{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
