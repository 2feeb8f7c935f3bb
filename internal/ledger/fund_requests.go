package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error matching
	"strings" // Input trimming
	"time"    // Review and scheduled dates

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/events" // Post-commit events
	"cbms_backend/internal/notify" // Notification templates

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/datatypes"             // Date column type
	"gorm.io/gorm"                  // GORM ORM library
)

// FundRequestInput is the body of a fund request create call
type FundRequestInput struct {
	Amount         decimal.Decimal `json:"amount"`          // Requested amount
	Reason         string          `json:"reason"`          // Short reason, defaults to "Marriage Expenses"
	DetailedReason string          `json:"detailed_reason"` // Long explanation
}

// FundRequestPatch lists the fields a requester may change while the request is pending
type FundRequestPatch struct {
	Amount         *decimal.Decimal `json:"amount"`
	Reason         *string          `json:"reason"`
	DetailedReason *string          `json:"detailed_reason"`
}

// CreateFundRequest files a new PENDING request for the actor
func (l *Ledger) CreateFundRequest(ctx context.Context, actor *domain.User, in FundRequestInput) (*domain.FundRequest, error) {
	v := &ValidationError{}
	validateAmount(v, "amount", in.Amount)
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = domain.DefaultRequestReason
	} else if len(reason) > 100 {
		v.Add("reason", "Ensure this field has no more than 100 characters.")
	}
	if strings.TrimSpace(in.DetailedReason) == "" {
		v.Add("detailed_reason", "This field is required.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	fr := &domain.FundRequest{
		UserID:         actor.ID,
		Amount:         in.Amount,
		Reason:         reason,
		DetailedReason: strings.TrimSpace(in.DetailedReason),
		Status:         domain.RequestPending,       // Always starts pending
		PaymentStatus:  domain.PaymentStatusPending, // Nothing paid yet
		PaidAmount:     decimal.Zero,
	}
	if err := l.db.WithContext(ctx).Create(fr).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"request_id": fr.ID,              // Fund request ID
		"user_id":    actor.ID,           // Requester
		"amount":     fr.Amount.String(), // Requested amount
	}).Info("Fund request created")
	return fr, nil
}

// UpdateFundRequest edits a request; owners only while it is pending, admins any time before review
func (l *Ledger) UpdateFundRequest(ctx context.Context, actor *domain.User, id uint, patch FundRequestPatch) (*domain.FundRequest, error) {
	var fr domain.FundRequest
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx.Scopes(VisibleFundRequests(actor)), &fr, id, "Fund request"); err != nil {
			return err
		}
		if fr.UserID != actor.ID && !actor.IsAdmin() {
			return forbidden("You can only edit your own fund requests.")
		}
		if !fr.IsPending() {
			return conflict("Only pending fund requests can be edited.")
		}
		v := &ValidationError{}
		if patch.Amount != nil {
			validateAmount(v, "amount", *patch.Amount)
			fr.Amount = *patch.Amount
		}
		if patch.Reason != nil {
			fr.Reason = strings.TrimSpace(*patch.Reason)
			if fr.Reason == "" {
				fr.Reason = domain.DefaultRequestReason
			}
		}
		if patch.DetailedReason != nil {
			if strings.TrimSpace(*patch.DetailedReason) == "" {
				v.Add("detailed_reason", "This field may not be blank.")
			}
			fr.DetailedReason = strings.TrimSpace(*patch.DetailedReason)
		}
		if err := v.OrNil(); err != nil {
			return err
		}
		return tx.Model(&fr).Select("amount", "reason", "detailed_reason").Updates(&fr).Error
	})
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// DeleteFundRequest removes a pending request of the actor, or any request for admins
func (l *Ledger) DeleteFundRequest(ctx context.Context, actor *domain.User, id uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fr domain.FundRequest
		if err := lockByID(tx.Scopes(VisibleFundRequests(actor)), &fr, id, "Fund request"); err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if fr.UserID != actor.ID {
				return forbidden("You can only delete your own fund requests.")
			}
			if !fr.IsPending() {
				return conflict("Only pending fund requests can be deleted.")
			}
		}
		return tx.Delete(&fr).Error
	})
}

// ApproveFundRequest moves a PENDING request to APPROVED and notifies the requester.
// A request that is no longer pending is left untouched and yields a conflict.
func (l *Ledger) ApproveFundRequest(ctx context.Context, id uint, approver *domain.User, scheduled *time.Time) (*domain.FundRequest, error) {
	if err := requireAdmin(approver, "Not authorized."); err != nil {
		return nil, err
	}
	var fr domain.FundRequest
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx, &fr, id, "Fund request"); err != nil {
			return err
		}
		if !fr.IsPending() {
			return conflict("Already " + strings.ToLower(fr.Status) + ".")
		}
		now := l.now()
		updates := map[string]any{
			"status":         domain.RequestApproved,
			"reviewed_by_id": approver.ID,
			"reviewed_at":    now,
			"payment_status": domain.PaymentStatusPending, // Waiting for manual disbursement
		}
		if scheduled != nil {
			updates["scheduled_payment_date"] = datatypes.Date(*scheduled)
		}
		// The status guard makes a concurrent second approval a no-op
		res := tx.Model(&domain.FundRequest{}).Where("id = ? AND status = ?", id, domain.RequestPending).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("Already approved.")
		}
		fr.Status = domain.RequestApproved
		fr.ReviewedByID = &approver.ID
		fr.ReviewedAt = &now
		fr.PaymentStatus = domain.PaymentStatusPending
		if scheduled != nil {
			d := datatypes.Date(*scheduled)
			fr.ScheduledPaymentDate = &d
		}
		n := notify.FundApproved(&fr, scheduled)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"request_id":  fr.ID,              // Fund request ID
		"approved_by": approver.ID,        // Reviewing admin
		"amount":      fr.Amount.String(), // Requested amount
	}).Info("Fund request approved")
	l.emit(ctx, events.FundRequestApproved, fr.ID, approver.ID, map[string]any{"amount": fr.Amount.String()})
	return &fr, nil
}

// DeclineFundRequest moves a PENDING request to DECLINED with a reason and notifies the requester
func (l *Ledger) DeclineFundRequest(ctx context.Context, id uint, approver *domain.User, reason string) (*domain.FundRequest, error) {
	if err := requireAdmin(approver, "Not authorized."); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	var fr domain.FundRequest
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx, &fr, id, "Fund request"); err != nil {
			return err
		}
		if !fr.IsPending() {
			return conflict("Already " + strings.ToLower(fr.Status) + ".")
		}
		now := l.now()
		res := tx.Model(&domain.FundRequest{}).Where("id = ? AND status = ?", id, domain.RequestPending).Updates(map[string]any{
			"status":           domain.RequestDeclined,
			"reviewed_by_id":   approver.ID,
			"reviewed_at":      now,
			"rejection_reason": reason,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("Already reviewed.")
		}
		fr.Status = domain.RequestDeclined
		fr.ReviewedByID = &approver.ID
		fr.ReviewedAt = &now
		fr.RejectionReason = reason
		n := notify.FundDeclined(&fr, reason)
		return notify.Create(tx, &n)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"request_id":  fr.ID,       // Fund request ID
		"declined_by": approver.ID, // Reviewing admin
		"reason":      reason,      // Rejection reason
	}).Info("Fund request declined")
	l.emit(ctx, events.FundRequestDeclined, fr.ID, approver.ID, map[string]any{"reason": reason})
	return &fr, nil
}

// RecordDisbursement applies an already stored DISBURSE payment to an approved request
func (l *Ledger) RecordDisbursement(ctx context.Context, requestID uint, payment *domain.Payment) (*domain.FundRequest, error) {
	var fr domain.FundRequest
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx, &fr, requestID, "Fund request"); err != nil {
			return err
		}
		return applyDisbursement(tx, &fr, payment)
	})
	if err != nil {
		return nil, err
	}
	l.emit(ctx, events.FundRequestDisbursed, fr.ID, payment.UserID, map[string]any{
		"paid_amount":    fr.PaidAmount.String(),
		"payment_status": fr.PaymentStatus,
	})
	return &fr, nil
}

// applyDisbursement adds the payment to the request's running total inside tx
func applyDisbursement(tx *gorm.DB, fr *domain.FundRequest, payment *domain.Payment) error {
	if payment.TransactionType != domain.PaymentDisburse {
		return Invalid("transaction_type", "Only disbursements can be applied to a fund request.")
	}
	if fr.Status != domain.RequestApproved {
		return conflict("Fund request is not approved.")
	}
	if fr.UserID != payment.UserID {
		return Invalid("request_id", "Fund request belongs to another user.")
	}
	fr.ApplyDisbursement(payment.Amount)
	return tx.Model(fr).Updates(map[string]any{
		"paid_amount":    fr.PaidAmount,
		"payment_status": fr.PaymentStatus,
	}).Error
}

// isNotFound reports whether err is a lookup miss
func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
