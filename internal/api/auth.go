package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Token lifetimes

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Credential checks
	"cbms_backend/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// TokenConfig holds what the token endpoints need to sign tokens
type TokenConfig struct {
	Secret     string        // HMAC signing secret
	AccessTTL  time.Duration // Access token lifetime
	RefreshTTL time.Duration // Refresh token lifetime
}

// LoginRequest is the body of POST /api/token/
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// RefreshRequest is the body of POST /api/token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"` // Refresh token must be provided
}

// AuthResponse carries the token pair and the logged in user
type AuthResponse struct {
	Access  string       `json:"access"`  // Access token
	Refresh string       `json:"refresh"` // Refresh token
	User    UserResponse `json:"user"`    // Logged in user
}

// LoginHandler authenticates a user and returns an access and a refresh token
func LoginHandler(l *ledger.Ledger, tc TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		}
		user, err := l.Authenticate(c.Request.Context(), req.Username, req.Password)
		if errors.Is(err, ledger.ErrInvalidCredentials) {
			logrus.WithField("username", req.Username).Warn("Failed login attempt")
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		} else if err != nil {
			writeError(c, err)
			return
		}
		// Generate JWT tokens
		pair, err := utils.GenerateTokenPair(user.ID, tc.Secret, tc.AccessTTL, tc.RefreshTTL)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		if err := l.DB().Preload("ResponsibleMember").Preload("TermsAcknowledgement").First(user, user.ID).Error; err != nil {
			writeError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,   // Logged in user
			"role":    user.Role, // Role at login
		}).Info("User logged in")
		// Return the tokens and the user in the response
		c.JSON(http.StatusOK, AuthResponse{Access: pair.Access, Refresh: pair.Refresh, User: NewUserResponse(user)})
	}
}

// RefreshHandler exchanges a refresh token for a new access token
func RefreshHandler(db *gorm.DB, tc TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token is required"})
			return
		}
		claims, err := utils.ParseJWT(req.Refresh, utils.RefreshToken, tc.Secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
			return
		}
		var user domain.User // The account must still exist and be active
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil || !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is invalid or expired"})
			return
		}
		access, err := utils.GenerateJWT(user.ID, utils.AccessToken, tc.Secret, tc.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access": access})
	}
}
