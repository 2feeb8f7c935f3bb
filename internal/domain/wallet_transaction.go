package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Fixed-precision amounts
)

// Wallet transaction types
const (
	WalletDeposit    = "DEPOSIT"
	WalletWithdrawal = "WITHDRAWAL"
)

// Wallet transaction review statuses
const (
	WalletPending  = "PENDING"
	WalletApproved = "APPROVED"
	WalletRejected = "REJECTED"
)

// Payment methods accepted for wallet transactions
const (
	MethodBankTransfer = "bank_transfer"
	MethodUPI          = "upi"
	MethodCreditCard   = "credit_card"
	MethodDebitCard    = "debit_card"
	MethodNetBanking   = "net_banking"
)

// paymentMethodLabels are the human readable method names used in notifications
var paymentMethodLabels = map[string]string{
	MethodBankTransfer: "Bank Transfer",
	MethodUPI:          "UPI Payment",
	MethodCreditCard:   "Credit Card",
	MethodDebitCard:    "Debit Card",
	MethodNetBanking:   "Net Banking",
}

// WalletTransaction Model
type WalletTransaction struct {
	ID              uint            `gorm:"primaryKey"`                                     // Primary key
	UserID          uint            `gorm:"index;not null"`                                 // Foreign key to the owner
	User            User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`  // Owner of the deposit
	RecordedByID    *uint           `gorm:"index"`                                          // Foreign key to the recorder
	RecordedBy      *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // Who entered the record
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null"`                    // Self-reported amount
	TransactionType string          `gorm:"size:20;not null;default:DEPOSIT"`               // DEPOSIT or WITHDRAWAL
	PaymentMethod   string          `gorm:"size:20;not null;default:bank_transfer"`         // How the money was sent
	TransactionID   string          `gorm:"size:100"`                                       // External reference
	Notes           string          `gorm:"type:text"`                                      // Free text
	Status          string          `gorm:"size:10;not null;default:PENDING;index"`         // Review status
	Date            time.Time       `gorm:"not null;index"`                                 // When the money was sent
	CreatedAt       time.Time       `gorm:"autoCreateTime"`                                 // Creation timestamp
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`                                 // Last update timestamp
}

// IsDeposit reports whether the transaction is a deposit
func (w *WalletTransaction) IsDeposit() bool { return w.TransactionType == WalletDeposit }

// IsWithdrawal reports whether the transaction is a withdrawal
func (w *WalletTransaction) IsWithdrawal() bool { return w.TransactionType == WalletWithdrawal }

// PaymentMethodLabel returns the display name of the payment method
func (w *WalletTransaction) PaymentMethodLabel() string {
	if label, ok := paymentMethodLabels[w.PaymentMethod]; ok {
		return label
	}
	return w.PaymentMethod
}

// ValidPaymentMethod reports whether m is an accepted payment method
func ValidPaymentMethod(m string) bool {
	_, ok := paymentMethodLabels[m]
	return ok
}

// ValidWalletType reports whether t is a known wallet transaction type
func ValidWalletType(t string) bool {
	return t == WalletDeposit || t == WalletWithdrawal
}
