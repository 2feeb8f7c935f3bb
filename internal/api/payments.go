package api

import (
	"net/http" // HTTP status codes
	"strings"  // Query normalization

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Ledger operations and scopes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// loadPayment reads a visible payment with its users preloaded
func loadPayment(c *gin.Context, db *gorm.DB, id uint) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(c.Request.Context()).
		Scopes(ledger.VisiblePayments(currentUser(c))).
		Preload("User").Preload("RecordedBy").
		First(&p, id).Error
	return &p, err
}

// ListPaymentsHandler lists visible payments, newest first. Optional filters: user, transaction_type
func ListPaymentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.Payment{}).Scopes(ledger.VisiblePayments(currentUser(c)))
		if userID := c.Query("user"); userID != "" {
			query = query.Where("payments.user_id = ?", userID) // Filter by payer
		}
		if kind := c.Query("transaction_type"); kind != "" {
			query = query.Where("payments.transaction_type = ?", strings.ToUpper(kind)) // Filter by type
		}
		query, err := paginate(c, query)
		if err != nil {
			writeError(c, err)
			return
		}
		var payments []domain.Payment
		if err := query.Preload("User").Preload("RecordedBy").Order(domain.PaymentOrder).Find(&payments).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(payments, NewPaymentResponse))
	}
}

// GetPaymentHandler returns one visible payment
func GetPaymentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		p, err := loadPayment(c, db, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewPaymentResponse(p))
	}
}

// CreatePaymentHandler records a payment for the caller or someone they may record for
func CreatePaymentHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ledger.PaymentInput
		if !bindJSON(c, &in) {
			return
		}
		payment, err := l.RecordPayment(c.Request.Context(), currentUser(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		p, err := loadPayment(c, l.DB(), payment.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, NewPaymentResponse(p))
	}
}

// UpdatePaymentHandler edits amount, date, time or notes of a payment
func UpdatePaymentHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var patch ledger.PaymentPatch
		if !bindJSON(c, &patch) {
			return
		}
		if _, err := l.UpdatePayment(c.Request.Context(), currentUser(c), id, patch); err != nil {
			writeError(c, err)
			return
		}
		p, err := loadPayment(c, l.DB(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewPaymentResponse(p))
	}
}

// DeletePaymentHandler removes a payment; admins only
func DeletePaymentHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := l.DeletePayment(c.Request.Context(), currentUser(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
