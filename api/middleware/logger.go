package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fleetpilot/fleetpilot/internal/logger"
)

// RequestLogger emits one structured line per API request. Liveness and
// readiness probes are skipped so probe traffic does not drown out real
// requests.
func RequestLogger() gin.HandlerFunc {
	skip := map[string]bool{
		"/health/live":  true,
		"/health/ready": true,
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client":     c.ClientIP(),
			"trace_id":   GetTraceID(c),
		})

		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}
