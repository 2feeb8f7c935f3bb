package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error matching
	"strings" // Input trimming

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/notify" // Notification writes

	"gorm.io/gorm" // GORM ORM library
)

// NotificationInput is the body of an admin-authored notification
type NotificationInput struct {
	UserID            uint    `json:"user"`
	Title             string  `json:"title"`
	Message           string  `json:"message"`
	NotificationType  string  `json:"notification_type"`
	Priority          string  `json:"priority"`
	RelatedObjectID   *uint   `json:"related_object_id"`
	RelatedObjectType *string `json:"related_object_type"`
}

// CreateNotification writes a single notification; admins only
func (l *Ledger) CreateNotification(ctx context.Context, actor *domain.User, in NotificationInput) (*domain.Notification, error) {
	if err := requireAdmin(actor, "Only admins can create notifications."); err != nil {
		return nil, err
	}
	v := &ValidationError{}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "This field is required.")
	}
	if strings.TrimSpace(in.Message) == "" {
		v.Add("message", "This field is required.")
	}
	if in.NotificationType == "" {
		in.NotificationType = domain.NotifyInfo
	}
	if !domain.ValidNotificationType(in.NotificationType) {
		v.Add("notification_type", `"`+in.NotificationType+`" is not a valid choice.`)
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityLow
	}
	if !domain.ValidPriority(in.Priority) {
		v.Add("priority", `"`+in.Priority+`" is not a valid choice.`)
	}
	db := l.db.WithContext(ctx)
	var recipient domain.User
	if err := db.Select("id").First(&recipient, in.UserID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		v.Add("user", "Invalid user ID.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	n := &domain.Notification{
		UserID:            recipient.ID,
		Title:             strings.TrimSpace(in.Title),
		Message:           in.Message,
		NotificationType:  in.NotificationType,
		Priority:          in.Priority,
		RelatedObjectID:   in.RelatedObjectID,
		RelatedObjectType: in.RelatedObjectType,
	}
	if err := notify.Create(db, n); err != nil {
		return nil, err
	}
	return n, nil
}

// SetNotificationRead flips is_read on one of the actor's notifications
func (l *Ledger) SetNotificationRead(ctx context.Context, actor *domain.User, id uint, read bool) (*domain.Notification, error) {
	var n domain.Notification
	db := l.db.WithContext(ctx)
	if err := db.Scopes(OwnNotifications(actor)).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Notification not found.")
		}
		return nil, err
	}
	if err := db.Model(&n).Update("is_read", read).Error; err != nil {
		return nil, err
	}
	n.IsRead = read
	return &n, nil
}

// MarkAllRead marks every unread notification of the actor as read
func (l *Ledger) MarkAllRead(ctx context.Context, actor *domain.User) (int64, error) {
	res := l.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// DeleteNotification removes one of the actor's notifications
func (l *Ledger) DeleteNotification(ctx context.Context, actor *domain.User, id uint) error {
	res := l.db.WithContext(ctx).Scopes(OwnNotifications(actor)).Delete(&domain.Notification{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Notification not found.")
	}
	return nil
}
