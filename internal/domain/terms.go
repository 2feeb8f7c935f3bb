package domain

import "time" // Timestamps

// TermsAcknowledgement Model
type TermsAcknowledgement struct {
	ID             uint      `gorm:"primaryKey"`     // Primary key
	UserID         uint      `gorm:"uniqueIndex"`    // One acknowledgement per user
	AcknowledgedAt time.Time `gorm:"autoCreateTime"` // When the terms were accepted
	IPAddress      *string   `gorm:"size:45"`        // Client address, IPv4 or IPv6
	UserAgent      string    `gorm:"type:text"`      // Client user agent
}
