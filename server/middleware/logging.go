package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
)

// RequestLogger logs each request at a level picked by its status class and
// records it in metrics. Health checks are not logged.
func RequestLogger(log *logger.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Context(), c.Request.Method, route, status, duration)
		if route == "/health" {
			return
		}

		fields := logger.Fields(
			logger.FieldMethod, c.Request.Method,
			logger.FieldPath, c.Request.URL.Path,
			logger.FieldStatusCode, status,
			logger.FieldDuration, duration.Milliseconds(),
		)
		if duration > 2*time.Second {
			fields["slow"] = true
		}
		logByStatus(log.WithContext(c.Request.Context()), fields, status)
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
