package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"gorm.io/datatypes"             // Date column type
)

// Fund request review statuses
const (
	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestDeclined = "DECLINED"
)

// Fund request payment statuses
const (
	PaymentStatusPending = "PENDING" // Nothing disbursed yet
	PaymentStatusPartial = "PARTIAL" // Some but not all of the amount disbursed
	PaymentStatusPaid    = "PAID"    // Fully disbursed
)

// DefaultRequestReason is used when a request does not name a reason
const DefaultRequestReason = "Marriage Expenses"

// FundRequest Model
type FundRequest struct {
	ID                   uint            `gorm:"primaryKey"`                                     // Primary key
	UserID               uint            `gorm:"index;not null"`                                 // Foreign key to the requester
	User                 User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`  // Requester
	Amount               decimal.Decimal `gorm:"type:decimal(12,2);not null"`                    // Requested amount
	Reason               string          `gorm:"size:100;not null"`                              // Short reason
	DetailedReason       string          `gorm:"type:text"`                                      // Long explanation
	Status               string          `gorm:"size:10;not null;default:PENDING;index"`         // Review status
	RequestedDate        time.Time       `gorm:"autoCreateTime"`                                 // Submission time
	ReviewedByID         *uint           `gorm:"index"`                                          // Foreign key to the reviewing admin
	ReviewedBy           *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // Reviewing admin
	ReviewedAt           *time.Time      // Review time
	RejectionReason      string          `gorm:"type:text"`                              // Why the request was declined
	ScheduledPaymentDate *datatypes.Date // Planned payout date
	PaymentStatus        string          `gorm:"size:10;not null;default:PENDING"`       // Payout progress
	PaidAmount           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Running disbursed total
}

// DerivePaymentStatus maps a disbursed total against the requested amount
func DerivePaymentStatus(paid, amount decimal.Decimal) string {
	if !paid.IsPositive() {
		return PaymentStatusPending
	}
	if paid.GreaterThanOrEqual(amount) {
		return PaymentStatusPaid
	}
	return PaymentStatusPartial
}

// ApplyDisbursement adds a disbursed amount and recomputes the payment status
func (f *FundRequest) ApplyDisbursement(amount decimal.Decimal) {
	f.PaidAmount = f.PaidAmount.Add(amount)                       // Running total only grows
	f.PaymentStatus = DerivePaymentStatus(f.PaidAmount, f.Amount) // PAID once the total covers the request
}

// IsPending reports whether the request still awaits review
func (f *FundRequest) IsPending() bool { return f.Status == RequestPending }
