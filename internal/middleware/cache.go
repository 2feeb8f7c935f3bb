package middleware

import (
	"net/http" // HTTP methods

	"cbms_backend/internal/utils" // Redis cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// InvalidateOnWrite drops every cache key under prefix after a successful
// non-GET request, so cached dashboard views never outlive a ledger write
func InvalidateOnWrite(rdb *redis.Client, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if rdb == nil || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if err := utils.DeletePrefix(c.Request.Context(), rdb, prefix); err != nil {
			logrus.WithFields(logrus.Fields{
				"prefix": prefix,      // Cache prefix
				"error":  err.Error(), // Redis error
			}).Warn("Cache invalidation failed")
		}
	}
}
