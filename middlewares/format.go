package middlewares

import (
	"github.com/gin-gonic/gin"

	"mediconnect/logger"
)

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// HttpError logs an error and writes an HTTP error response to the client.
func HttpError(c *gin.Context, log *logger.Logger, message string, status int, err error) {
	entry := log.WithComponent("http").WithField("status_code", status).WithField("path", c.FullPath())
	if requestID, ok := c.Get("request_id"); ok {
		entry = entry.WithField("request_id", requestID)
	}
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= 500 {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}
	c.JSON(status, gin.H{"error": message})
}
