package api

import (
	"net/http" // HTTP status codes
	"strings"  // Query normalization

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Ledger operations and scopes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ApproveRequest is the optional body of the approve action
type ApproveRequest struct {
	PaymentDate string `json:"payment_date"` // YYYY-MM-DD
}

// DeclineRequest is the optional body of the decline action
type DeclineRequest struct {
	Reason string `json:"reason"` // Shown to the requester
}

// loadFundRequest reads a visible fund request with its users preloaded
func loadFundRequest(c *gin.Context, db *gorm.DB, id uint) (*domain.FundRequest, error) {
	var fr domain.FundRequest
	err := db.WithContext(c.Request.Context()).
		Scopes(ledger.VisibleFundRequests(currentUser(c))).
		Preload("User").Preload("ReviewedBy").
		First(&fr, id).Error
	return &fr, err
}

// ListFundRequestsHandler lists visible fund requests, newest first. Optional filter: status
func ListFundRequestsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.FundRequest{}).Scopes(ledger.VisibleFundRequests(currentUser(c)))
		if status := c.Query("status"); status != "" {
			query = query.Where("fund_requests.status = ?", strings.ToUpper(status)) // Filter by review status
		}
		query, err := paginate(c, query)
		if err != nil {
			writeError(c, err)
			return
		}
		var requests []domain.FundRequest
		if err := query.Preload("User").Preload("ReviewedBy").Order("requested_date DESC, id DESC").Find(&requests).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(requests, NewFundRequestResponse))
	}
}

// GetFundRequestHandler returns one visible fund request
func GetFundRequestHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		fr, err := loadFundRequest(c, db, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewFundRequestResponse(fr))
	}
}

// CreateFundRequestHandler files a fund request for the caller
func CreateFundRequestHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ledger.FundRequestInput
		if !bindJSON(c, &in) {
			return
		}
		created, err := l.CreateFundRequest(c.Request.Context(), currentUser(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		fr, err := loadFundRequest(c, l.DB(), created.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, NewFundRequestResponse(fr))
	}
}

// UpdateFundRequestHandler edits a pending fund request
func UpdateFundRequestHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var patch ledger.FundRequestPatch
		if !bindJSON(c, &patch) {
			return
		}
		if _, err := l.UpdateFundRequest(c.Request.Context(), currentUser(c), id, patch); err != nil {
			writeError(c, err)
			return
		}
		fr, err := loadFundRequest(c, l.DB(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewFundRequestResponse(fr))
	}
}

// DeleteFundRequestHandler removes a fund request
func DeleteFundRequestHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := l.DeleteFundRequest(c.Request.Context(), currentUser(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ApproveFundRequestHandler approves a pending request with an optional payment date
func ApproveFundRequestHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req ApproveRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		scheduled, err := ledger.ParseDate("payment_date", req.PaymentDate)
		if err != nil {
			writeError(c, err)
			return
		}
		if _, err := l.ApproveFundRequest(c.Request.Context(), id, currentUser(c), scheduled); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "approved"})
	}
}

// DeclineFundRequestHandler declines a pending request with a reason
func DeclineFundRequestHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req DeclineRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		if _, err := l.DeclineFundRequest(c.Request.Context(), id, currentUser(c), req.Reason); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "declined"})
	}
}
