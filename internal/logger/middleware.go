package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
	"go.uber.org/zap"
)

// Middleware assigns a request id, stores a request-scoped logger in the
// context and logs every completed request.
func Middleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(constants.HeaderRequestID, requestID)
		c.Set(constants.ContextKeyRequestID, requestID)

		reqLogger := base.With(zap.String("request_id", requestID))
		c.Set(constants.ContextKeyLogger, reqLogger)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if userID, ok := c.Get(constants.ContextKeyUserID); ok {
			fields = append(fields, zap.Any("user_id", userID))
		}

		switch {
		case c.Writer.Status() >= 500:
			reqLogger.Error("HTTP request failed", fields...)
		default:
			reqLogger.Info("HTTP request completed", fields...)
		}
	}
}

// FromContext returns the request-scoped logger, or the process logger when
// the middleware did not run.
func FromContext(c *gin.Context) *zap.Logger {
	if c != nil {
		if l, ok := c.Get(constants.ContextKeyLogger); ok {
			if zl, ok := l.(*zap.Logger); ok {
				return zl
			}
		}
	}
	return Get()
}
