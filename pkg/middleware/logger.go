package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// RequestLogger logs operations-listener requests. Health check hits log at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request failed", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Debug("request served", fields...)
		}
	}
}
