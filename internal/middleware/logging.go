package middleware

import (
	"strconv" // Status code labels
	"time"    // Request duration

	"cbms_backend/internal/metrics" // Prometheus collectors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request IDs
	"github.com/sirupsen/logrus" // Logging library
)

// RequestIDHeader carries the request ID in and out
const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the gin context key of the request ID
const RequestIDKey = "requestID"

// RequestLogger tags every request with an ID, logs its completion and records
// Prometheus metrics for it
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader) // Reuse an upstream ID when present
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		route := c.FullPath() // Route template keeps label cardinality bounded
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(elapsed.Seconds())

		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID,            // Correlation ID
			"method":     c.Request.Method,     // HTTP method
			"path":       c.Request.URL.Path,   // Request path
			"status":     status,               // Response status
			"duration":   elapsed.String(),     // Handling time
			"client_ip":  c.ClientIP(),         // Caller address
			"user_id":    c.GetUint(UserIDKey), // Authenticated user, 0 when anonymous
		})
		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}
