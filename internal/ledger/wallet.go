package ledger

import (
	"context" // Request scoped cancellation
	"fmt"     // Payment notes
	"strings" // Input trimming

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/events" // Post-commit events
	"cbms_backend/internal/notify" // Notification templates

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// WalletInput is the body of a wallet transaction create call
type WalletInput struct {
	Amount          decimal.Decimal `json:"amount"`           // Self-reported amount
	TransactionType string          `json:"transaction_type"` // DEPOSIT (default) or WITHDRAWAL
	PaymentMethod   string          `json:"payment_method"`   // bank_transfer (default), upi, ...
	TransactionID   string          `json:"transaction_id"`   // External reference
	Notes           string          `json:"notes"`            // Free text
	Date            string          `json:"date"`             // RFC 3339 or YYYY-MM-DD, defaults to now
}

// WalletPatch lists the fields an owner may change while the transaction is pending
type WalletPatch struct {
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod *string          `json:"payment_method"`
	TransactionID *string          `json:"transaction_id"`
	Notes         *string          `json:"notes"`
	Date          *string          `json:"date"`
}

// CreateWalletTransaction stores a PENDING deposit for the actor and sends a receipt
func (l *Ledger) CreateWalletTransaction(ctx context.Context, actor *domain.User, in WalletInput) (*domain.WalletTransaction, error) {
	v := &ValidationError{}
	validateAmount(v, "amount", in.Amount)
	kind := strings.ToUpper(strings.TrimSpace(in.TransactionType))
	if kind == "" {
		kind = domain.WalletDeposit
	}
	if !domain.ValidWalletType(kind) {
		v.Add("transaction_type", `"`+in.TransactionType+`" is not a valid choice.`)
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = domain.MethodBankTransfer
	}
	if !domain.ValidPaymentMethod(method) {
		v.Add("payment_method", `"`+in.PaymentMethod+`" is not a valid choice.`)
	}
	when := l.now()
	if at, err := ParseDateTime("date", in.Date); err != nil {
		v.Add("date", err.(*ValidationError).Fields["date"])
	} else if at != nil {
		when = *at
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	w := &domain.WalletTransaction{
		UserID:          actor.ID,
		RecordedByID:    &actor.ID,
		Amount:          in.Amount,
		TransactionType: kind,
		PaymentMethod:   method,
		TransactionID:   strings.TrimSpace(in.TransactionID),
		Notes:           in.Notes,
		Status:          domain.WalletPending, // Always starts pending
		Date:            when,
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		n := notify.WalletProcessed(w)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id": w.ID,              // Wallet transaction ID
		"user_id":   w.UserID,          // Owner
		"amount":    w.Amount.String(), // Reported amount
		"method":    w.PaymentMethod,   // Payment method
	}).Info("Wallet transaction submitted")
	return w, nil
}

// UpdateWalletTransaction edits a pending transaction of the owner, or any pending one for admins
func (l *Ledger) UpdateWalletTransaction(ctx context.Context, actor *domain.User, id uint, patch WalletPatch) (*domain.WalletTransaction, error) {
	var w domain.WalletTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx.Scopes(VisibleWalletTransactions(actor)), &w, id, "Wallet transaction"); err != nil {
			return err
		}
		if w.UserID != actor.ID && !actor.IsAdmin() {
			return forbidden("You can only edit your own wallet transactions.")
		}
		if w.Status != domain.WalletPending {
			return conflict("Only pending wallet transactions can be edited.")
		}
		v := &ValidationError{}
		if patch.Amount != nil {
			validateAmount(v, "amount", *patch.Amount)
			w.Amount = *patch.Amount
		}
		if patch.PaymentMethod != nil {
			if !domain.ValidPaymentMethod(*patch.PaymentMethod) {
				v.Add("payment_method", `"`+*patch.PaymentMethod+`" is not a valid choice.`)
			}
			w.PaymentMethod = *patch.PaymentMethod
		}
		if patch.TransactionID != nil {
			w.TransactionID = strings.TrimSpace(*patch.TransactionID)
		}
		if patch.Notes != nil {
			w.Notes = *patch.Notes
		}
		if patch.Date != nil {
			at, err := ParseDateTime("date", *patch.Date)
			switch {
			case err != nil:
				v.Add("date", err.(*ValidationError).Fields["date"])
			case at == nil:
				v.Add("date", "This field may not be blank.")
			default:
				w.Date = *at
			}
		}
		if err := v.OrNil(); err != nil {
			return err
		}
		return tx.Model(&w).Select("amount", "payment_method", "transaction_id", "notes", "date").Updates(&w).Error
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteWalletTransaction removes a pending transaction of the owner, or any transaction for admins
func (l *Ledger) DeleteWalletTransaction(ctx context.Context, actor *domain.User, id uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w domain.WalletTransaction
		if err := lockByID(tx.Scopes(VisibleWalletTransactions(actor)), &w, id, "Wallet transaction"); err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if w.UserID != actor.ID {
				return forbidden("You can only delete your own wallet transactions.")
			}
			if w.Status != domain.WalletPending {
				return conflict("Only pending wallet transactions can be deleted.")
			}
		}
		return tx.Delete(&w).Error
	})
}

// ApproveWalletTransaction verifies a PENDING deposit and records the matching
// COLLECT payment in the same transaction.
func (l *Ledger) ApproveWalletTransaction(ctx context.Context, id uint, admin *domain.User) (*domain.WalletTransaction, *domain.Payment, error) {
	if err := requireAdmin(admin, "Only admins can approve transactions."); err != nil {
		return nil, nil, err
	}
	var (
		w       domain.WalletTransaction
		payment *domain.Payment
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.resolveWallet(tx, &w, id, domain.WalletApproved); err != nil {
			return err
		}
		payment = &domain.Payment{
			UserID:          w.UserID,
			RecordedByID:    &admin.ID,
			Amount:          w.Amount,
			TransactionType: domain.PaymentCollect,
			Date:            dateOf(w.Date),
			Time:            timeOfDay(w.Date),
			Notes:           fmt.Sprintf("Wallet Deposit Approved (Ref: %s)", w.TransactionID),
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		n := notify.WalletApproved(&w)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id":   w.ID,              // Wallet transaction ID
		"payment_id":  payment.ID,        // Materialized payment
		"approved_by": admin.ID,          // Reviewing admin
		"amount":      w.Amount.String(), // Verified amount
	}).Info("Wallet transaction approved")
	l.emit(ctx, events.WalletApproved, w.ID, admin.ID, map[string]any{
		"payment_id": payment.ID,
		"amount":     w.Amount.String(),
	})
	return &w, payment, nil
}

// RejectWalletTransaction refuses a PENDING deposit and notifies the owner
func (l *Ledger) RejectWalletTransaction(ctx context.Context, id uint, admin *domain.User) (*domain.WalletTransaction, error) {
	if err := requireAdmin(admin, "Only admins can reject transactions."); err != nil {
		return nil, err
	}
	var w domain.WalletTransaction
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.resolveWallet(tx, &w, id, domain.WalletRejected); err != nil {
			return err
		}
		n := notify.WalletRejected(&w)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"wallet_id":   w.ID,     // Wallet transaction ID
		"rejected_by": admin.ID, // Reviewing admin
	}).Info("Wallet transaction rejected")
	l.emit(ctx, events.WalletRejected, w.ID, admin.ID, map[string]any{"amount": w.Amount.String()})
	return &w, nil
}

// resolveWallet moves a locked PENDING transaction to status exactly once
func (l *Ledger) resolveWallet(tx *gorm.DB, w *domain.WalletTransaction, id uint, status string) error {
	if err := lockByID(tx, w, id, "Wallet transaction"); err != nil {
		return err
	}
	if w.Status != domain.WalletPending {
		return conflict("Transaction is already processed.")
	}
	res := tx.Model(&domain.WalletTransaction{}).
		Where("id = ? AND status = ?", id, domain.WalletPending).
		Updates(map[string]any{"status": status, "updated_at": l.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return conflict("Transaction is already processed.")
	}
	w.Status = status
	return nil
}
