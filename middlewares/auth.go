package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mediconnect/logger"
	"mediconnect/models"
	"mediconnect/services"
	"mediconnect/utils"
)

// identityKey stores the authenticated models.Identity on the gin context.
const identityKey = "identity"

// Authenticate resolves the bearer token into an identity and aborts with
// 401 when the token is missing, malformed, expired or names no user.
func Authenticate(auth services.AuthService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		identity, err := auth.ResolveIdentity(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, utils.ErrInvalidToken) {
				log.Security("invalid_token", map[string]interface{}{
					"path":      c.FullPath(),
					"client_ip": c.ClientIP(),
				})
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			log.WithComponent("auth_middleware").WithError(err).Error("Failed to resolve identity")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles. It must
// run after Authenticate.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !identity.Is(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient privileges"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by Authenticate.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}
