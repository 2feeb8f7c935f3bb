package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID" // uint ID of the authenticated user
	UserKey   = "user"   // *domain.User loaded from the database
)

// JWTAuthMiddleware validates the access token and loads the user it names.
// The user row is re-read on every request so role changes and deactivation apply immediately.
func JWTAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")             // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, utils.AccessToken, secret) // Parse the access token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Given token not valid for any token type"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": claims.UserID, // User named by the token
				"error":   err.Error(),   // Lookup error
			}).Warn("Token user lookup failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		// Inactive accounts keep valid tokens but may not use them
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User is inactive"})
			return
		}
		c.Set(UserIDKey, user.ID) // Store userID in context
		c.Set(UserKey, &user)     // Store the loaded user for handlers
		c.Next()                  // Proceed to the next handler
	}
}

// CurrentUser returns the user loaded by JWTAuthMiddleware
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}
