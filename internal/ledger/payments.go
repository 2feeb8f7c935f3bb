package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error matching
	"strings" // Input trimming

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/events" // Post-commit events
	"cbms_backend/internal/notify" // Notification templates

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/datatypes"             // Date and time columns
	"gorm.io/gorm"                  // GORM ORM library
)

// PaymentInput is the body of a payment create call
type PaymentInput struct {
	UserID          *uint           `json:"user"`             // Payer or recipient, optional for linked disbursements
	RequestID       *uint           `json:"request_id"`       // Fund request a disbursement pays out
	Amount          decimal.Decimal `json:"amount"`           // Payment amount
	TransactionType string          `json:"transaction_type"` // COLLECT (default) or DISBURSE
	Date            string          `json:"date"`             // YYYY-MM-DD
	Time            string          `json:"time"`             // HH:MM[:SS], defaults to now
	Notes           string          `json:"notes"`            // Free text
}

// PaymentPatch lists the editable fields of a payment
type PaymentPatch struct {
	Amount *decimal.Decimal `json:"amount"`
	Date   *string          `json:"date"`
	Time   *string          `json:"time"`
	Notes  *string          `json:"notes"`
}

// canRecordFor reports whether actor may record a payment for target
func canRecordFor(actor, target *domain.User) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true // Admin can record for anyone
	case domain.RoleResponsibleMember:
		isSelf := target.ID == actor.ID
		isAssigned := target.ResponsibleMemberID != nil && *target.ResponsibleMemberID == actor.ID
		return isSelf || isAssigned
	default:
		return target.ID == actor.ID
	}
}

// RecordPayment validates, authorizes and stores a payment. A DISBURSE linked
// to a fund request updates the request's paid amount in the same transaction;
// a stale request id is logged and otherwise ignored.
func (l *Ledger) RecordPayment(ctx context.Context, actor *domain.User, in PaymentInput) (*domain.Payment, error) {
	db := l.db.WithContext(ctx)

	v := &ValidationError{}
	validateAmount(v, "amount", in.Amount)
	kind := strings.ToUpper(strings.TrimSpace(in.TransactionType))
	if kind == "" {
		kind = domain.PaymentCollect
	}
	if !domain.ValidPaymentType(kind) {
		v.Add("transaction_type", `"`+in.TransactionType+`" is not a valid choice.`)
	}
	day, err := ParseDate("date", in.Date)
	if err != nil {
		v.Add("date", err.(*ValidationError).Fields["date"])
	} else if day == nil {
		v.Add("date", "This field is required.")
	}
	tod := timeOfDay(l.now()) // Time defaults to now
	if strings.TrimSpace(in.Time) != "" {
		if tod, err = ParseTimeOfDay("time", in.Time); err != nil {
			v.Add("time", err.(*ValidationError).Fields["time"])
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if kind == domain.PaymentDisburse && !actor.IsAdmin() {
		return nil, forbidden("Only admins can record disbursements.")
	}

	// Disbursements may name only the request; the recipient is its requester
	targetID := in.UserID
	if targetID == nil && kind == domain.PaymentDisburse && in.RequestID != nil {
		var fr domain.FundRequest
		if err := db.Select("id", "user_id").First(&fr, *in.RequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("Invalid request ID.")
			}
			return nil, err
		}
		targetID = &fr.UserID
	}
	if targetID == nil {
		return nil, Invalid("user", "This field is required.")
	}
	var target domain.User
	if err := db.First(&target, *targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Invalid("user", "Invalid user ID.")
		}
		return nil, err
	}
	if !canRecordFor(actor, &target) {
		if actor.IsLeader() {
			return nil, forbidden("You are not authorized to record payments for this member.")
		}
		return nil, forbidden("You cannot record payments for others.")
	}

	payment := &domain.Payment{
		UserID:          target.ID,
		RecordedByID:    &actor.ID,
		Amount:          in.Amount,
		TransactionType: kind,
		Date:            datatypes.Date(*day),
		Time:            tod,
		Notes:           in.Notes,
	}
	var linked *domain.FundRequest
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		if kind == domain.PaymentDisburse && in.RequestID != nil {
			var fr domain.FundRequest
			err := lockByID(tx, &fr, *in.RequestID, "Fund request")
			switch {
			case isNotFound(err):
				logrus.WithFields(logrus.Fields{
					"request_id": *in.RequestID, // Stale fund request ID
					"payment_id": payment.ID,    // Stored payment
				}).Warn("Disbursement references a missing fund request")
			case err != nil:
				return err
			default:
				if err := applyDisbursement(tx, &fr, payment); err != nil {
					return err
				}
				linked = &fr
			}
		}
		n := notify.PaymentRecorded(payment)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":  payment.ID,              // Payment ID
		"user_id":     payment.UserID,          // Payer or recipient
		"recorded_by": actor.ID,                // Auditor
		"amount":      payment.Amount.String(), // Amount
		"type":        payment.TransactionType, // COLLECT or DISBURSE
	}).Info("Payment recorded")
	l.emit(ctx, events.PaymentRecorded, payment.ID, actor.ID, map[string]any{
		"user_id": payment.UserID,
		"amount":  payment.Amount.String(),
		"type":    payment.TransactionType,
	})
	if linked != nil {
		l.emit(ctx, events.FundRequestDisbursed, linked.ID, actor.ID, map[string]any{
			"paid_amount":    linked.PaidAmount.String(),
			"payment_status": linked.PaymentStatus,
		})
	}
	return payment, nil
}

// UpdatePayment edits a payment the actor recorded (admins: any) and re-sends the notification
func (l *Ledger) UpdatePayment(ctx context.Context, actor *domain.User, id uint, patch PaymentPatch) (*domain.Payment, error) {
	var p domain.Payment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx.Scopes(VisiblePayments(actor)), &p, id, "Payment"); err != nil {
			return err
		}
		if !actor.IsAdmin() && (p.RecordedByID == nil || *p.RecordedByID != actor.ID) {
			return forbidden("You can only edit payments you recorded.")
		}
		v := &ValidationError{}
		if patch.Amount != nil {
			if p.TransactionType == domain.PaymentDisburse && !patch.Amount.Equal(p.Amount) {
				return conflict("Disbursement amounts cannot be edited; record a correcting entry instead.")
			}
			validateAmount(v, "amount", *patch.Amount)
			p.Amount = *patch.Amount
		}
		if patch.Date != nil {
			day, err := ParseDate("date", *patch.Date)
			switch {
			case err != nil:
				v.Add("date", err.(*ValidationError).Fields["date"])
			case day == nil:
				v.Add("date", "This field may not be blank.")
			default:
				p.Date = datatypes.Date(*day)
			}
		}
		if patch.Time != nil {
			tod, err := ParseTimeOfDay("time", *patch.Time)
			if err != nil {
				v.Add("time", err.(*ValidationError).Fields["time"])
			}
			p.Time = tod
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		if err := v.OrNil(); err != nil {
			return err
		}
		if err := tx.Model(&p).Select("amount", "date", "time", "notes").Updates(&p).Error; err != nil {
			return err
		}
		n := notify.PaymentRecorded(&p)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"payment_id": p.ID,     // Payment ID
		"updated_by": actor.ID, // Editor
	}).Info("Payment updated")
	return &p, nil
}

// DeletePayment removes a payment; the ledger is an audit trail so only admins may
func (l *Ledger) DeletePayment(ctx context.Context, actor *domain.User, id uint) error {
	if err := requireAdmin(actor, "Only admins can delete payments."); err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Delete(&domain.Payment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Payment not found.")
	}
	logrus.WithFields(logrus.Fields{
		"payment_id": id,       // Payment ID
		"deleted_by": actor.ID, // Admin
	}).Warn("Payment deleted")
	return nil
}
