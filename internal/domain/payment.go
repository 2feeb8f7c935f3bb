package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"gorm.io/datatypes"             // Date and time-of-day column types
)

// Payment transaction types
const (
	PaymentCollect  = "COLLECT"  // Money coming into the pool
	PaymentDisburse = "DISBURSE" // Money paid out of the pool
)

// Payment Model
type Payment struct {
	ID              uint            `gorm:"primaryKey"`                                     // Primary key
	UserID          uint            `gorm:"index;not null"`                                 // Foreign key to the payer or recipient
	User            User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"` // Payer or recipient, deletion is blocked
	RecordedByID    *uint           `gorm:"index"`                                          // Foreign key to the auditor
	RecordedBy      *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // Admin or leader who entered the record
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`                    // Amount of the payment
	TransactionType string          `gorm:"size:10;not null;default:COLLECT;index"`         // COLLECT or DISBURSE
	Date            datatypes.Date  `gorm:"not null;index"`                                 // Business date
	Time            datatypes.Time  `gorm:"not null"`                                       // Time of day
	Notes           string          `gorm:"type:text"`                                      // Free text
	CreatedAt       time.Time       // Creation timestamp
	UpdatedAt       time.Time       // Last update timestamp
}

// IsCollect reports whether the payment brings money into the pool
func (p *Payment) IsCollect() bool { return p.TransactionType == PaymentCollect }

// ValidPaymentType reports whether t is a known payment transaction type
func ValidPaymentType(t string) bool {
	return t == PaymentCollect || t == PaymentDisburse
}

// PaymentOrder is the default ledger ordering, newest first
const PaymentOrder = "date DESC, time DESC, id DESC"
