package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"project-workflow-api/internal/metrics"
)

// unmatchedRoute labels requests that hit no route, keeping raw paths out of the label set
const unmatchedRoute = "unmatched"

// Metrics returns a middleware that records HTTP metrics
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics, health and readiness checks
		if metrics.ShouldSkipEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		endpoint := c.FullPath() // route pattern, not actual path
		if endpoint == "" {
			endpoint = unmatchedRoute
		}
		m.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
