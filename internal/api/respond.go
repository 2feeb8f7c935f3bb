// Package api exposes the ledger over HTTP with gin.
package api

import (
	"errors"   // Error matching
	"io"       // Empty bodies
	"net/http" // HTTP status codes
	"strconv"  // Path and query parsing

	"cbms_backend/internal/domain"     // Importing domain models
	"cbms_backend/internal/ledger"     // Service errors
	"cbms_backend/internal/middleware" // Authenticated user

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Pagination limits
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TotalCountHeader carries the unpaged row count of a paged list
const TotalCountHeader = "X-Total-Count"

// writeError maps a service error onto a status code and a JSON body
func writeError(c *gin.Context, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": verr.Fields})
	case errors.Is(err, ledger.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage(err)})
	case errors.Is(err, ledger.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey), // Correlation ID
			"path":       c.Request.URL.Path,                   // Request path
			"error":      err.Error(),                          // Error message
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func notFoundMessage(err error) string {
	if errors.Is(err, ledger.ErrNotFound) {
		return err.Error()
	}
	return "Not found."
}

// currentUser returns the authenticated user; routes using it sit behind JWTAuthMiddleware
func currentUser(c *gin.Context) *domain.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// pathID parses the :id path parameter, answering 404 when it is not a positive integer
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the body into dest, answering 400 when it is malformed
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty
func bindOptionalJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false
	}
	return true
}

// paginate applies page/page_size when the caller asked for a page and sets
// the X-Total-Count header; without page the full list is returned
func paginate(c *gin.Context, query *gorm.DB) (*gorm.DB, error) {
	p := c.Query("page")
	if p == "" {
		return query, nil
	}
	page := 1 // Default page number
	if v, err := strconv.Atoi(p); err == nil && v > 0 {
		page = v // Set page if valid
	}
	pageSize := defaultPageSize // Default page size
	if ps := c.Query("page_size"); ps != "" {
		// If valid, set page size
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
			pageSize = v
		}
	}
	var total int64 // Total row count
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	c.Header(TotalCountHeader, strconv.FormatInt(total, 10))
	return query.Offset((page - 1) * pageSize).Limit(pageSize), nil
}
