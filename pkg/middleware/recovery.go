package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/richxcame/safari-bookings/pkg/errors"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns handler panics into 500 responses and reports them to Sentry
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				ctx := c.Request.Context()
				err := fmt.Errorf("panic: %v", r)

				logger.WithContext(ctx).Error("handler panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
				)
				apperrors.CaptureErrorWithContext(ctx, err, map[string]interface{}{
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"stacktrace": string(debug.Stack()),
				})

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
