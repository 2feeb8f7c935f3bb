package api

import (
	"net/http" // HTTP status codes
	"strings"  // Query normalization

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Ledger operations and scopes

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// loadWalletTransaction reads a visible wallet transaction with its users preloaded
func loadWalletTransaction(c *gin.Context, db *gorm.DB, id uint) (*domain.WalletTransaction, error) {
	var w domain.WalletTransaction
	err := db.WithContext(c.Request.Context()).
		Scopes(ledger.VisibleWalletTransactions(currentUser(c))).
		Preload("User").Preload("RecordedBy").
		First(&w, id).Error
	return &w, err
}

// ListWalletTransactionsHandler lists visible wallet transactions, newest first. Optional filter: status
func ListWalletTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.WalletTransaction{}).Scopes(ledger.VisibleWalletTransactions(currentUser(c)))
		if status := c.Query("status"); status != "" {
			query = query.Where("wallet_transactions.status = ?", strings.ToUpper(status)) // Filter by review status
		}
		query, err := paginate(c, query)
		if err != nil {
			writeError(c, err)
			return
		}
		var txs []domain.WalletTransaction
		if err := query.Preload("User").Preload("RecordedBy").Order("date DESC, id DESC").Find(&txs).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(txs, NewWalletTransactionResponse))
	}
}

// GetWalletTransactionHandler returns one visible wallet transaction
func GetWalletTransactionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		w, err := loadWalletTransaction(c, db, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewWalletTransactionResponse(w))
	}
}

// CreateWalletTransactionHandler submits a deposit for admin verification
func CreateWalletTransactionHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ledger.WalletInput
		if !bindJSON(c, &in) {
			return
		}
		created, err := l.CreateWalletTransaction(c.Request.Context(), currentUser(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		w, err := loadWalletTransaction(c, l.DB(), created.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, NewWalletTransactionResponse(w))
	}
}

// UpdateWalletTransactionHandler edits a pending wallet transaction
func UpdateWalletTransactionHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var patch ledger.WalletPatch
		if !bindJSON(c, &patch) {
			return
		}
		if _, err := l.UpdateWalletTransaction(c.Request.Context(), currentUser(c), id, patch); err != nil {
			writeError(c, err)
			return
		}
		w, err := loadWalletTransaction(c, l.DB(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewWalletTransactionResponse(w))
	}
}

// DeleteWalletTransactionHandler removes a wallet transaction
func DeleteWalletTransactionHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := l.DeleteWalletTransaction(c.Request.Context(), currentUser(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ApproveWalletTransactionHandler verifies a deposit and records the matching payment
func ApproveWalletTransactionHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		_, payment, err := l.ApproveWalletTransaction(c.Request.Context(), id, currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "approved", "payment_id": payment.ID})
	}
}

// RejectWalletTransactionHandler refuses a deposit
func RejectWalletTransactionHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if _, err := l.RejectWalletTransaction(c.Request.Context(), id, currentUser(c)); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	}
}
