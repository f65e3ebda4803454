package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RefreshCookieName holds the refresh token for browser clients.
const RefreshCookieName = "refresh_token"

// SetRefreshCookie stores the refresh token in an HttpOnly cookie scoped to /auth.
func SetRefreshCookie(c *gin.Context, refreshToken string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	setCookie(c, RefreshCookieName, refreshToken, maxAge)
}

// RefreshTokenFromCookie returns the refresh cookie value or "".
func RefreshTokenFromCookie(c *gin.Context) string {
	value, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return value
}

func ClearRefreshCookie(c *gin.Context) {
	setCookie(c, RefreshCookieName, "", -1)
}

func setCookie(c *gin.Context, name, value string, maxAge int) {
	secure := true
	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode { // plain http in local dev
		secure = false
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/auth", "", secure, true)
}
