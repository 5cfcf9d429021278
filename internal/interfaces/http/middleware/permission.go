package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Role names carried in JWT claims
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// RequireRoles creates middleware allowing only callers holding at least
// one of the given roles. It must run after JWT authentication.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}

		if !claims.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Requires role: " + strings.Join(roles, " or "),
				},
			})
			return
		}

		c.Next()
	}
}
