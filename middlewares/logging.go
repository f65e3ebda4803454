package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mediconnect/logger"
	"mediconnect/monitoring"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id, then logs and measures it once
// it completes.
func RequestLogger(log *logger.Logger, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		// unmatched routes share one label
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		log.HTTPRequest(requestID, c.Request.Method, c.Request.URL.Path, c.ClientIP(), status, duration.Milliseconds())
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(status), duration)
	}
}
