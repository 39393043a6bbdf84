package middleware

import (
	"time"

	"firebase_auth_session/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// RequestIDHeader is the header name for request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the key for storing request ID in Gin context
	RequestIDContextKey = "requestID"
)

// ZapLogger logs each request to the loopback server. The query string is never logged since
// on the OAuth callback it carries the authorization code. Outside release mode everything is
// logged at debug level.
func ZapLogger(logger *zap.Logger, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Header(RequestIDHeader, requestID)
		}
		c.Set(RequestIDContextKey, requestID)

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zapcore.Field{
			zap.Int("status_code", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("remote", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", requestID),
		}

		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.NamedError("error", errs.Last().Err))
		}

		switch {
		case cfg.GinMode != "release" || (statusCode >= 200 && statusCode < 400):
			logger.Debug("Loopback request", fields...)
		case statusCode >= 400 && statusCode < 500:
			logger.Warn("Loopback request rejected", fields...)
		default:
			logger.Error("Loopback request failed", fields...)
		}
	}
}
