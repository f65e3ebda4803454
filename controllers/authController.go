package controllers

import (
	"github.com/gin-gonic/gin"

	"mediconnect/handlers"
	"mediconnect/middlewares"
	"mediconnect/models"
)

type AuthController struct {
	Handler *handlers.AuthHandler
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler) *AuthController {
	return &AuthController{
		Handler: authHandler,
	}
}

// RegisterRoutes mounts the authentication routes. Public routes share the
// stricter auth rate limiter; authenticate guards the rest.
func (ac *AuthController) RegisterRoutes(router *gin.Engine, authenticate gin.HandlerFunc, authLimiter *middlewares.RateLimiter) {
	public := router.Group("/auth", authLimiter.Middleware())
	{
		public.POST("/register", ac.Handler.Register)
		public.POST("/login", ac.Handler.Login)
		public.POST("/refresh", ac.Handler.RefreshToken)
		public.POST("/logout", ac.Handler.Logoff)
		public.POST("/password/forgot", ac.Handler.SendResetCode)
		public.POST("/password/reset", ac.Handler.ChangePassword)
	}

	router.GET("/auth/me", authenticate, ac.Handler.GetUserProfile)

	adminGroup := router.Group("/admin", authenticate, middlewares.RequireRoles(models.RoleAdmin))
	{
		adminGroup.GET("/users", ac.Handler.AdminManageUsers)
	}
}
