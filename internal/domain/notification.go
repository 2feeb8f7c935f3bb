package domain

import "time" // Timestamps

// Notification types
const (
	NotifyInfo         = "INFO"
	NotifySuccess      = "SUCCESS"
	NotifyWarning      = "WARNING"
	NotifyError        = "ERROR"
	NotifyPayment      = "PAYMENT"
	NotifyWedding      = "WEDDING"
	NotifyAnnouncement = "ANNOUNCEMENT"
)

// Notification priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Notification Model
type Notification struct {
	ID                uint      `gorm:"primaryKey"`                                    // Primary key
	UserID            uint      `gorm:"index;not null"`                                // Foreign key to the recipient
	User              User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // Recipient
	Title             string    `gorm:"size:255;not null"`                             // Short title
	Message           string    `gorm:"type:text;not null"`                            // Rendered message
	NotificationType  string    `gorm:"size:20;not null;default:INFO"`                 // Category tag
	Priority          string    `gorm:"size:10;not null;default:LOW"`                  // Display priority
	IsRead            bool      `gorm:"not null;default:false;index"`                  // The only mutable field
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`                          // Creation timestamp
	RelatedObjectID   *uint     `gorm:"index"`                                         // Optional link to another record
	RelatedObjectType *string   `gorm:"size:50"`                                       // Kind of the linked record
}

// ValidNotificationType reports whether t is a known notification type
func ValidNotificationType(t string) bool {
	switch t {
	case NotifyInfo, NotifySuccess, NotifyWarning, NotifyError, NotifyPayment, NotifyWedding, NotifyAnnouncement:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
