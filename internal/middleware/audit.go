package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/pkg/middleware/requestid"
)

// Audit writes an audit log line after successful requests on the wrapped route.
func Audit(logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("audit", action),
			zap.String("resource", resource),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
		}
		if claims := ClaimsFromContext(c); claims != nil {
			fields = append(fields, zap.Int64("user_id", claims.UserID), zap.String("role", string(claims.Role)))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		logger.Info("audit", fields...)
	}
}
