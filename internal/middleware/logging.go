package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const ctxCorrelationID = "correlationID"

// RequestID assigns every request a correlation id, honoring one supplied by
// the client via X-Request-ID. Error responses carry it so a support ticket
// can be matched to the server logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxCorrelationID, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// CorrelationID returns the request's correlation id, or "" outside a request.
func CorrelationID(c *gin.Context) string {
	return c.GetString(ctxCorrelationID)
}

// RequestLogger writes one structured log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"latency_ms":     time.Since(start).Milliseconds(),
			"correlation_id": CorrelationID(c),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request")
		}
	}
}
