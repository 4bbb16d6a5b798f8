package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cleardesk/walletauth/core"
	"github.com/cleardesk/walletauth/service"
)

// ContextAddressKey is the gin context key under which the authenticated
// wallet address is stored.
const ContextAddressKey = "walletAddress"

// AuthMiddleware validates the Bearer token and resolves its session
// against the store. Expired or superseded sessions are rejected.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		session, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrSessionExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			case errors.Is(err, core.ErrStoreUnavailable):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Try again shortly"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(ContextAddressKey, session.Address)

		c.Next()
	}
}
