package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Imagineer253/compass-shipment-tracker/internal/infra/security"
)

const bearerPrefix = "Bearer "

// RequireAuth validates the bearer token and stores the account ID on the
// request context.
func RequireAuth(tokens *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(AccountIDKey, claims.Subject)
		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.AccountID = claims.Subject
		}

		c.Next()
	}
}

// AccountID retrieves the authenticated account ID from the context.
func AccountID(c *gin.Context) string {
	if id, exists := c.Get(AccountIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
