package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"mediconnect/logger"
	"mediconnect/middlewares"
	"mediconnect/models"
	"mediconnect/utils"
)

// respondError maps a domain error onto its status code. Anything unknown
// is logged, reported to Sentry and hidden behind a generic 500.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "errors": validationErr.Fields})
	case errors.Is(err, models.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
	case errors.Is(err, models.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role. Allowed: PATIENT, DOCTOR, ADMIN"})
	case errors.Is(err, models.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, utils.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	case errors.Is(err, models.ErrInvalidResetCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired reset code"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient privileges"})
	case errors.Is(err, models.ErrSerialConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "The doctor's schedule changed while booking, please retry"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(err.Error())})
	default:
		if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub.Clone().CaptureException(err)
		}
		middlewares.HttpError(c, log, "Internal server error", http.StatusInternalServerError, err)
	}
}

// badRequest answers a body or parameter that could not be decoded.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
