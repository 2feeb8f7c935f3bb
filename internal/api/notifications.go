package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Ledger operations and scopes
	"cbms_backend/internal/notify" // Broadcast errors

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// AnnounceRequest is the body of the announce action
type AnnounceRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority string `json:"priority"` // Defaults to HIGH
}

// NotificationPatch is the only mutable part of a notification
type NotificationPatch struct {
	IsRead *bool `json:"is_read"`
}

// ListNotificationsHandler lists the caller's notifications, newest first. Optional filter: is_read
func ListNotificationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.Notification{}).Scopes(ledger.OwnNotifications(currentUser(c)))
		switch c.Query("is_read") {
		case "true":
			query = query.Where("is_read = ?", true)
		case "false":
			query = query.Where("is_read = ?", false)
		}
		query, err := paginate(c, query)
		if err != nil {
			writeError(c, err)
			return
		}
		var rows []domain.Notification
		if err := query.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(rows, NewNotificationResponse))
	}
}

// GetNotificationHandler returns one of the caller's notifications
func GetNotificationHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var n domain.Notification
		if err := db.WithContext(c.Request.Context()).Scopes(ledger.OwnNotifications(currentUser(c))).First(&n, id).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewNotificationResponse(&n))
	}
}

// CreateNotificationHandler writes a notification for a user; admins only
func CreateNotificationHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ledger.NotificationInput
		if !bindJSON(c, &in) {
			return
		}
		n, err := l.CreateNotification(c.Request.Context(), currentUser(c), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, NewNotificationResponse(n))
	}
}

// UpdateNotificationHandler changes is_read on one of the caller's notifications
func UpdateNotificationHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var patch NotificationPatch
		if !bindJSON(c, &patch) {
			return
		}
		if patch.IsRead == nil {
			writeError(c, ledger.Invalid("is_read", "This field is required."))
			return
		}
		n, err := l.SetNotificationRead(c.Request.Context(), currentUser(c), id, *patch.IsRead)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewNotificationResponse(n))
	}
}

// DeleteNotificationHandler removes one of the caller's notifications
func DeleteNotificationHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := l.DeleteNotification(c.Request.Context(), currentUser(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// MarkReadHandler marks one notification as read
func MarkReadHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if _, err := l.SetNotificationRead(c.Request.Context(), currentUser(c), id, true); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "marked as read"})
	}
}

// MarkAllReadHandler marks every notification of the caller as read
func MarkAllReadHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := l.MarkAllRead(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "all marked as read", "updated": count})
	}
}

// AnnounceHandler broadcasts an announcement to every user; admins only
func AnnounceHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AnnounceRequest
		if !bindJSON(c, &req) {
			return
		}
		count, err := l.Announce(c.Request.Context(), currentUser(c), req.Title, req.Message, req.Priority)
		var partial *notify.PartialBroadcastError
		if errors.As(err, &partial) {
			// Already logged by the ledger; tell the caller who was reached
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":        "Announcement only partially sent",
				"recipients":   partial.Sent,
				"last_user_id": partial.LastUserID,
			})
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "Announcement sent to all members", "recipients": count})
	}
}
