package api

import (
	"time" // Timestamps

	"cbms_backend/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Fixed-precision amounts
)

const dateLayout = "2006-01-02"

// mediaURL turns a stored relative path into the URL it is served under
func mediaURL(path string) *string {
	if path == "" {
		return nil
	}
	url := "/media/" + path
	return &url
}

// nameOf returns the full name of an optional user
func nameOf(u *domain.User) *string {
	if u == nil || u.ID == 0 {
		return nil
	}
	name := u.FullName()
	return &name
}

// UserResponse is the full user representation
type UserResponse struct {
	ID                    uint            `json:"id"`
	Username              string          `json:"username"`
	Name                  string          `json:"name"`
	FirstName             string          `json:"first_name"`
	LastName              string          `json:"last_name"`
	Email                 string          `json:"email"`
	Role                  string          `json:"role"`
	MaritalStatus         string          `json:"marital_status"`
	Phone                 string          `json:"phone"`
	ProfilePhoto          *string         `json:"profile_photo"`
	AssignedMonthlyAmount decimal.Decimal `json:"assigned_monthly_amount"`
	ResponsibleMember     *uint           `json:"responsible_member"`
	ResponsibleMemberName *string         `json:"responsible_member_name"`
	DateJoined            time.Time       `json:"date_joined"`
	HasAcknowledgedTerms  bool            `json:"has_acknowledged_terms"`
	TermsAcknowledgedAt   *time.Time      `json:"terms_acknowledged_at"`
	IsActive              bool            `json:"is_active"`
}

// NewUserResponse expects ResponsibleMember and TermsAcknowledgement to be preloaded
func NewUserResponse(u *domain.User) UserResponse {
	r := UserResponse{
		ID:                    u.ID,
		Username:              u.Username,
		Name:                  u.DisplayName(),
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		Email:                 u.Email,
		Role:                  u.Role,
		MaritalStatus:         u.MaritalStatus,
		Phone:                 u.Phone,
		ProfilePhoto:          mediaURL(u.ProfilePhoto),
		AssignedMonthlyAmount: u.AssignedMonthlyAmount,
		ResponsibleMember:     u.ResponsibleMemberID,
		ResponsibleMemberName: nameOf(u.ResponsibleMember),
		DateJoined:            u.DateJoined,
		IsActive:              u.IsActive,
	}
	if u.TermsAcknowledgement != nil {
		r.HasAcknowledgedTerms = true
		at := u.TermsAcknowledgement.AcknowledgedAt
		r.TermsAcknowledgedAt = &at
	}
	return r
}

// PublicUserResponse leaves out contact details and amounts
type PublicUserResponse struct {
	ID                   uint    `json:"id"`
	Name                 string  `json:"name"`
	Role                 string  `json:"role"`
	MaritalStatus        string  `json:"marital_status"`
	ProfilePhoto         *string `json:"profile_photo"`
	ResponsibleMember    *uint   `json:"responsible_member"`
	HasAcknowledgedTerms bool    `json:"has_acknowledged_terms"`
}

// NewPublicUserResponse builds the safe subset of a user
func NewPublicUserResponse(u *domain.User) PublicUserResponse {
	return PublicUserResponse{
		ID:                   u.ID,
		Name:                 u.DisplayName(),
		Role:                 u.Role,
		MaritalStatus:        u.MaritalStatus,
		ProfilePhoto:         mediaURL(u.ProfilePhoto),
		ResponsibleMember:    u.ResponsibleMemberID,
		HasAcknowledgedTerms: u.TermsAcknowledgement != nil,
	}
}

// PaymentResponse is the payment representation
type PaymentResponse struct {
	ID              uint            `json:"id"`
	User            uint            `json:"user"`
	UserName        *string         `json:"user_name"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	RecordedBy      *uint           `json:"recorded_by"`
	RecordedByName  *string         `json:"recorded_by_name"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewPaymentResponse expects User and RecordedBy to be preloaded for the name fields
func NewPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		User:            p.UserID,
		UserName:        nameOf(&p.User),
		Amount:          p.Amount,
		TransactionType: p.TransactionType,
		Date:            time.Time(p.Date).Format(dateLayout),
		Time:            p.Time.String(),
		RecordedBy:      p.RecordedByID,
		RecordedByName:  nameOf(p.RecordedBy),
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
	}
}

// FundRequestResponse is the fund request representation
type FundRequestResponse struct {
	ID                   uint            `json:"id"`
	User                 uint            `json:"user"`
	UserName             *string         `json:"user_name"`
	Amount               decimal.Decimal `json:"amount"`
	Reason               string          `json:"reason"`
	DetailedReason       string          `json:"detailed_reason"`
	Status               string          `json:"status"`
	RequestedDate        time.Time       `json:"requested_date"`
	ReviewedBy           *uint           `json:"reviewed_by"`
	ReviewedByName       *string         `json:"reviewed_by_name"`
	ReviewedAt           *time.Time      `json:"reviewed_at"`
	RejectionReason      string          `json:"rejection_reason"`
	ScheduledPaymentDate *string         `json:"scheduled_payment_date"`
	PaymentStatus        string          `json:"payment_status"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
}

// NewFundRequestResponse expects User and ReviewedBy to be preloaded for the name fields
func NewFundRequestResponse(f *domain.FundRequest) FundRequestResponse {
	r := FundRequestResponse{
		ID:              f.ID,
		User:            f.UserID,
		UserName:        nameOf(&f.User),
		Amount:          f.Amount,
		Reason:          f.Reason,
		DetailedReason:  f.DetailedReason,
		Status:          f.Status,
		RequestedDate:   f.RequestedDate,
		ReviewedBy:      f.ReviewedByID,
		ReviewedByName:  nameOf(f.ReviewedBy),
		ReviewedAt:      f.ReviewedAt,
		RejectionReason: f.RejectionReason,
		PaymentStatus:   f.PaymentStatus,
		PaidAmount:      f.PaidAmount,
	}
	if f.ScheduledPaymentDate != nil {
		s := time.Time(*f.ScheduledPaymentDate).Format(dateLayout)
		r.ScheduledPaymentDate = &s
	}
	return r
}

// WalletTransactionResponse is the wallet transaction representation
type WalletTransactionResponse struct {
	ID              uint            `json:"id"`
	User            uint            `json:"user"`
	UserName        *string         `json:"user_name"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionID   string          `json:"transaction_id"`
	Notes           string          `json:"notes"`
	Status          string          `json:"status"`
	Date            time.Time       `json:"date"`
	RecordedBy      *uint           `json:"recorded_by"`
	RecordedByName  *string         `json:"recorded_by_name"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewWalletTransactionResponse expects User and RecordedBy to be preloaded for the name fields
func NewWalletTransactionResponse(w *domain.WalletTransaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:              w.ID,
		User:            w.UserID,
		UserName:        nameOf(&w.User),
		Amount:          w.Amount,
		TransactionType: w.TransactionType,
		PaymentMethod:   w.PaymentMethod,
		TransactionID:   w.TransactionID,
		Notes:           w.Notes,
		Status:          w.Status,
		Date:            w.Date,
		RecordedBy:      w.RecordedByID,
		RecordedByName:  nameOf(w.RecordedBy),
		CreatedAt:       w.CreatedAt,
	}
}

// NotificationResponse is the notification representation
type NotificationResponse struct {
	ID                uint      `json:"id"`
	User              uint      `json:"user"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	NotificationType  string    `json:"notification_type"`
	Priority          string    `json:"priority"`
	IsRead            bool      `json:"is_read"`
	CreatedAt         time.Time `json:"created_at"`
	RelatedObjectID   *uint     `json:"related_object_id"`
	RelatedObjectType *string   `json:"related_object_type"`
}

// NewNotificationResponse maps a notification row
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:                n.ID,
		User:              n.UserID,
		Title:             n.Title,
		Message:           n.Message,
		NotificationType:  n.NotificationType,
		Priority:          n.Priority,
		IsRead:            n.IsRead,
		CreatedAt:         n.CreatedAt,
		RelatedObjectID:   n.RelatedObjectID,
		RelatedObjectType: n.RelatedObjectType,
	}
}

// TermsResponse is the terms acknowledgement representation
type TermsResponse struct {
	ID             uint      `json:"id"`
	User           uint      `json:"user"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
	IPAddress      *string   `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
}

// NewTermsResponse maps a terms acknowledgement row
func NewTermsResponse(t *domain.TermsAcknowledgement) TermsResponse {
	return TermsResponse{
		ID:             t.ID,
		User:           t.UserID,
		AcknowledgedAt: t.AcknowledgedAt,
		IPAddress:      t.IPAddress,
		UserAgent:      t.UserAgent,
	}
}

// mapAll converts a slice with fn, never returning nil
func mapAll[T any, R any](items []T, fn func(*T) R) []R {
	out := make([]R, len(items))
	for i := range items {
		out[i] = fn(&items[i])
	}
	return out
}
