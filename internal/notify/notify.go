// Package notify builds the notifications written as side effects of ledger events.
package notify

import (
	"fmt"  // Message templating
	"time" // Scheduled dates

	"cbms_backend/internal/domain"  // Importing domain models
	"cbms_backend/internal/metrics" // Notification counters
	"cbms_backend/internal/utils"   // Amount and date formatting

	"gorm.io/gorm" // GORM ORM library
)

// BroadcastObjectType marks announcements in related_object_type
const BroadcastObjectType = "broadcast_by_admin"

// DefaultBatchSize bounds a single broadcast insert
const DefaultBatchSize = 500

// FundApproved tells the requester their request was approved
func FundApproved(req *domain.FundRequest, scheduled *time.Time) domain.Notification {
	when := "the scheduled date"
	if scheduled != nil {
		when = utils.FormatDate(*scheduled)
	}
	return domain.Notification{
		UserID: req.UserID,
		Title:  "Fund Request Approved! 🎉",
		Message: fmt.Sprintf("Your fund request of %s has been approved. You will receive the funds on or before %s.",
			utils.FormatAmount(req.Amount), when),
		NotificationType:  domain.NotifySuccess,
		Priority:          domain.PriorityHigh,
		RelatedObjectID:   &req.ID,
		RelatedObjectType: strPtr("fund_request"),
	}
}

// FundDeclined tells the requester their request was declined and why
func FundDeclined(req *domain.FundRequest, reason string) domain.Notification {
	return domain.Notification{
		UserID: req.UserID,
		Title:  "Fund Request Declined",
		Message: fmt.Sprintf("Your fund request of %s has been declined. Reason: %s",
			utils.FormatAmount(req.Amount), reason),
		NotificationType:  domain.NotifyWarning,
		Priority:          domain.PriorityMedium,
		RelatedObjectID:   &req.ID,
		RelatedObjectType: strPtr("fund_request"),
	}
}

// PaymentRecorded tells the payer or recipient about a ledger entry
func PaymentRecorded(p *domain.Payment) domain.Notification {
	action := "recorded"
	if p.TransactionType == domain.PaymentDisburse {
		action = "disbursed"
	}
	title := "Payment Recorded 💰"
	if action == "disbursed" {
		title = "Payment Disbursed 💰"
	}
	return domain.Notification{
		UserID: p.UserID,
		Title:  title,
		Message: fmt.Sprintf("A payment of %s has been %s on %s.",
			utils.FormatAmount(p.Amount), action, utils.FormatDate(time.Time(p.Date))),
		NotificationType:  domain.NotifyPayment,
		Priority:          domain.PriorityLow,
		RelatedObjectID:   &p.ID,
		RelatedObjectType: strPtr("payment"),
	}
}

// WalletProcessed is the receipt sent when a wallet transaction is submitted
func WalletProcessed(w *domain.WalletTransaction) domain.Notification {
	action, title := "deposited", "Wallet Deposited 💳"
	if w.IsWithdrawal() {
		action, title = "withdrawn", "Wallet Withdrawn 💳"
	}
	return domain.Notification{
		UserID: w.UserID,
		Title:  title,
		Message: fmt.Sprintf("An amount of %s has been %s to your wallet using %s. Transaction ID: %s",
			utils.FormatAmount(w.Amount), action, w.PaymentMethodLabel(), w.TransactionID),
		NotificationType:  domain.NotifyPayment,
		Priority:          domain.PriorityLow,
		RelatedObjectID:   &w.ID,
		RelatedObjectType: strPtr("wallet_transaction"),
	}
}

// WalletApproved tells the user their deposit now counts toward their total
func WalletApproved(w *domain.WalletTransaction) domain.Notification {
	return domain.Notification{
		UserID:            w.UserID,
		Title:             "Deposit Approved ✅",
		Message:           fmt.Sprintf("Your deposit of %s has been verified and added to your total.", utils.FormatAmount(w.Amount)),
		NotificationType:  domain.NotifySuccess,
		Priority:          domain.PriorityMedium,
		RelatedObjectID:   &w.ID,
		RelatedObjectType: strPtr("wallet_transaction"),
	}
}

// WalletRejected tells the user their deposit was refused
func WalletRejected(w *domain.WalletTransaction) domain.Notification {
	return domain.Notification{
		UserID:            w.UserID,
		Title:             "Deposit Rejected ❌",
		Message:           fmt.Sprintf("Your deposit of %s was rejected. Please contact admin.", utils.FormatAmount(w.Amount)),
		NotificationType:  domain.NotifyError,
		Priority:          domain.PriorityHigh,
		RelatedObjectID:   &w.ID,
		RelatedObjectType: strPtr("wallet_transaction"),
	}
}

// Announcement is one recipient's copy of an admin broadcast
func Announcement(userID, adminID uint, title, message, priority string) domain.Notification {
	return domain.Notification{
		UserID:            userID,
		Title:             title,
		Message:           message,
		NotificationType:  domain.NotifyAnnouncement,
		Priority:          priority,
		RelatedObjectID:   &adminID,
		RelatedObjectType: strPtr(BroadcastObjectType),
	}
}

// Create writes a single notification with tx
func Create(tx *gorm.DB, n *domain.Notification) error {
	if err := tx.Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(n.NotificationType).Inc()
	return nil
}

// PartialBroadcastError reports a broadcast that failed after some batches committed.
// Users up to and including LastUserID already hold the announcement.
type PartialBroadcastError struct {
	Sent       int
	LastUserID uint
	Err        error
}

func (e *PartialBroadcastError) Error() string {
	return fmt.Sprintf("announcement sent to %d users (up to user %d) before failing: %v", e.Sent, e.LastUserID, e.Err)
}

func (e *PartialBroadcastError) Unwrap() error { return e.Err }

// Broadcast sends an announcement to every existing user, inserting at most
// batchSize rows per statement. Each batch commits on its own, so a failure
// after the first batch returns a *PartialBroadcastError.
func Broadcast(db *gorm.DB, adminID uint, title, message, priority string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if priority == "" {
		priority = domain.PriorityHigh
	}
	var lastID uint
	total := 0
	fail := func(err error) (int, error) {
		if total == 0 {
			return 0, err
		}
		return total, &PartialBroadcastError{Sent: total, LastUserID: lastID, Err: err}
	}
	for {
		var ids []uint
		// Keyset pagination over the user table
		if err := db.Model(&domain.User{}).Where("id > ?", lastID).Order("id").Limit(batchSize).Pluck("id", &ids).Error; err != nil {
			return fail(fmt.Errorf("page users after %d: %w", lastID, err))
		}
		if len(ids) == 0 {
			break
		}
		rows := make([]domain.Notification, len(ids))
		for i, id := range ids {
			rows[i] = Announcement(id, adminID, title, message, priority)
		}
		if err := db.Create(&rows).Error; err != nil {
			return fail(fmt.Errorf("insert announcement batch: %w", err))
		}
		metrics.NotificationsCreated.WithLabelValues(domain.NotifyAnnouncement).Add(float64(len(rows)))
		total += len(rows)
		lastID = ids[len(ids)-1]
		if len(ids) < batchSize {
			break
		}
	}
	return total, nil
}

func strPtr(s string) *string { return &s }
