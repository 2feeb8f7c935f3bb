package middleware

import (
	"net/http" // HTTP status codes

	"cbms_backend/internal/domain" // Role constants

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireRole lets the request through only for the given roles.
// It relies on the user stored by JWTAuthMiddleware, which is read from the database on each request.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c) // Get user from context
		// Check if the user was authenticated
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next() // Role matches, proceed to the next handler
				return
			}
		}
		// No role matched, abort with forbidden status
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
	}
}

// AdminOnlyMiddleware allows admins only
func AdminOnlyMiddleware() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
