package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mediconnect/handlers"
)

// rootHandler handles requests to the root path
func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "mediconnect"})
}

// SetupRootRoute mounts the unauthenticated operational routes.
func SetupRootRoute(router *gin.Engine, healthHandler *handlers.HealthHandler, metricsPath string, metrics http.Handler) {
	router.GET("/", rootHandler)
	router.GET("/health", healthHandler.Health)
	if metricsPath != "" && metrics != nil {
		router.GET(metricsPath, gin.WrapH(metrics))
	}
}
