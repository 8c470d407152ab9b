package middleware

import (
	"strconv"
	"time"

	"github.com/beamdash/backend/internal/observability"
	"github.com/gin-gonic/gin"
)

// HTTPMetrics records request counts and latency per route.
func HTTPMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, routeOf(c), strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
