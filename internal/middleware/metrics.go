package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

type httpMetrics interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics records one observation per request, labelled by route template.
func Metrics(metrics httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
