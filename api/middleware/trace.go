package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

const traceKey = "trace_id"

// TraceID tags every request with an identifier so API log lines can be
// correlated across the agent's structured logs. A caller-supplied header
// wins; otherwise one is generated.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(traceHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(traceKey, id)
		c.Header(traceHeader, id)

		c.Next()
	}
}

func GetTraceID(c *gin.Context) string {
	if id, ok := c.Get(traceKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
