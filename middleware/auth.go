package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"snapfix-server/types"
)

const principalKey = "principal"

// TokenValidator turns a bearer token into the principal it names.
type TokenValidator interface {
	ValidateToken(token string) (types.Principal, error)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
	})
}

// AuthMiddleware validates the Bearer token and requires the given role.
// An empty role accepts customers and workers alike.
func AuthMiddleware(tokens TokenValidator, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Not authorized, no token")
			return
		}

		// Check if the header starts with "Bearer "
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			abortUnauthorized(c, "Token must be in format: Bearer <token>")
			return
		}

		principal, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Not authorized, token failed")
			return
		}

		if role != "" && principal.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Access denied for role " + principal.Role,
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// WebSocketAuthMiddleware validates a token passed as the ?token= query parameter,
// since browsers cannot set headers on WebSocket upgrades.
func WebSocketAuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			abortUnauthorized(c, "Please provide a valid token in query parameters")
			return
		}

		principal, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Token is invalid or expired")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by the auth middleware.
func CurrentPrincipal(c *gin.Context) (types.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return types.Principal{}, false
	}
	p, ok := v.(types.Principal)
	return p, ok
}
