package api

import (
	"net/http" // HTTP status codes

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Ledger operations and scopes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ListTermsHandler lists acknowledgements: all for admins, the caller's own otherwise
func ListTermsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.TermsAcknowledgement{}).Scopes(ledger.VisibleTerms(currentUser(c)))
		query, err := paginate(c, query)
		if err != nil {
			writeError(c, err)
			return
		}
		var rows []domain.TermsAcknowledgement
		if err := query.Order("acknowledged_at DESC, id DESC").Find(&rows).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(rows, NewTermsResponse))
	}
}

// GetTermsHandler returns one visible acknowledgement
func GetTermsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var t domain.TermsAcknowledgement
		if err := db.WithContext(c.Request.Context()).Scopes(ledger.VisibleTerms(currentUser(c))).First(&t, id).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewTermsResponse(&t))
	}
}

// AcknowledgeTermsHandler records the caller's acceptance with client IP and user agent
func AcknowledgeTermsHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ack, err := l.AcknowledgeTerms(c.Request.Context(), currentUser(c), c.ClientIP(), c.Request.UserAgent())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, NewTermsResponse(ack))
	}
}
