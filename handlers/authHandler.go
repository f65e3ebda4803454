package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mediconnect/logger"
	"mediconnect/monitoring"
	"mediconnect/services"
	"mediconnect/utils"
)

type AuthHandler struct {
	service services.AuthService
	metrics *monitoring.Metrics
	log     *logger.Logger
}

func NewAuthHandler(service services.AuthService, metrics *monitoring.Metrics, log *logger.Logger) *AuthHandler {
	return &AuthHandler{service: service, metrics: metrics, log: log}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	Token        string    `json:"token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
}

// Register handles new user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	user, err := h.service.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login authenticates the user and returns an access token. The refresh
// token is returned in the body and as an HttpOnly cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if err := utils.ValidateLogin(credentials.Email, credentials.Password); err != nil {
		// malformed credentials get the same answer as wrong ones
		h.metrics.RecordAuthAttempt("login", false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	pair, err := h.service.Login(c.Request.Context(), credentials.Email, credentials.Password)
	h.metrics.RecordAuthAttempt("login", err == nil)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondTokens(c, pair)
}

// RefreshToken trades a refresh token from the body or cookie for new tokens.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)

	token := body.RefreshToken
	if token == "" {
		token = utils.RefreshTokenFromCookie(c)
	}
	if token == "" {
		h.metrics.RecordAuthAttempt("refresh", false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token is required"})
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), token)
	h.metrics.RecordAuthAttempt("refresh", err == nil)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondTokens(c, pair)
}

// Logoff clears the refresh cookie. Access tokens stay valid until expiry.
func (h *AuthHandler) Logoff(c *gin.Context) {
	utils.ClearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// SendResetCode emails a reset code. The answer is the same whether or not
// the account exists.
func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var data struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), data.Email); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "If the account exists, a reset code has been sent"})
}

// ChangePassword sets a new password after checking the emailed code.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var data struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), data.Email, data.Code, data.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// GetUserProfile retrieves the current user's profile
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	user, err := h.service.GetProfile(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AdminManageUsers lists every account for administrators.
func (h *AuthHandler) AdminManageUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AuthHandler) respondTokens(c *gin.Context, pair *services.TokenPair) {
	utils.SetRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	c.JSON(http.StatusOK, tokenResponse{
		Token:        pair.AccessToken,
		TokenType:    "Bearer",
		ExpiresAt:    pair.ExpiresAt,
		RefreshToken: pair.RefreshToken,
	})
}
