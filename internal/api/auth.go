package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/splitscore/internal/logging"
)

// AuthMiddleware returns a Gin middleware that validates bearer tokens
// against token. An empty token disables authentication (dev mode).
// WARNING: In GIN_MODE=release, an empty token exposes every protected
// route. Always set API_AUTH_TOKEN in production.
func AuthMiddleware(token string) gin.HandlerFunc {
	if token == "" && gin.Mode() == gin.ReleaseMode {
		logging.Get().Warn("[SECURITY WARNING] API_AUTH_TOKEN is not set in release mode. " +
			"All protected endpoints are publicly accessible.")
	}

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing Authorization header",
				"hint":  "Use: Authorization: Bearer <API_AUTH_TOKEN>",
			})
			return
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid Authorization header format"})
			return
		}

		// Constant-time comparison keeps the token from leaking through timing.
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Next()
	}
}
