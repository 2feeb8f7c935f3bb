// Package dbtest provides migrated throwaway databases and fixtures for tests.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"cbms_backend/internal/db"
	"cbms_backend/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Password is the plain text password of every fixture user
const Password = "password123"

// New opens a migrated SQLite database in a temporary directory
func New(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// UserOpt customizes a fixture user
type UserOpt func(*domain.User)

// WithLeader assigns the user to a responsible member
func WithLeader(leader *domain.User) UserOpt {
	return func(u *domain.User) { u.ResponsibleMemberID = &leader.ID }
}

// WithMarital sets the marital status
func WithMarital(status string) UserOpt {
	return func(u *domain.User) { u.MaritalStatus = status }
}

// WithTarget sets an explicit assigned monthly amount
func WithTarget(amount int64) UserOpt {
	return func(u *domain.User) { u.AssignedMonthlyAmount = decimal.NewFromInt(amount) }
}

// WithName sets first and last name
func WithName(first, last string) UserOpt {
	return func(u *domain.User) { u.FirstName, u.LastName = first, last }
}

// CreateUser inserts a user with the given role
func CreateUser(t *testing.T, gdb *gorm.DB, username, role string, opts ...UserOpt) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{Username: username, Password: string(hash), Role: role, IsActive: true}
	for _, opt := range opts {
		opt(u)
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreatePayment inserts a payment dated on day
func CreatePayment(t *testing.T, gdb *gorm.DB, user *domain.User, kind string, amount int64, day time.Time) *domain.Payment {
	t.Helper()
	p := &domain.Payment{
		UserID:          user.ID,
		RecordedByID:    &user.ID,
		Amount:          decimal.NewFromInt(amount),
		TransactionType: kind,
		Date:            datatypes.Date(day),
		Time:            datatypes.NewTime(10, 0, 0, 0),
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return p
}

// CreateFundRequest inserts a pending fund request
func CreateFundRequest(t *testing.T, gdb *gorm.DB, user *domain.User, amount int64) *domain.FundRequest {
	t.Helper()
	fr := &domain.FundRequest{
		UserID:         user.ID,
		Amount:         decimal.NewFromInt(amount),
		Reason:         domain.DefaultRequestReason,
		DetailedReason: "wedding in March",
		Status:         domain.RequestPending,
		PaymentStatus:  domain.PaymentStatusPending,
		PaidAmount:     decimal.Zero,
	}
	if err := gdb.Create(fr).Error; err != nil {
		t.Fatalf("create fund request: %v", err)
	}
	return fr
}

// CreateWalletTransaction inserts a pending deposit
func CreateWalletTransaction(t *testing.T, gdb *gorm.DB, user *domain.User, amount int64, at time.Time) *domain.WalletTransaction {
	t.Helper()
	w := &domain.WalletTransaction{
		UserID:          user.ID,
		RecordedByID:    &user.ID,
		Amount:          decimal.NewFromInt(amount),
		TransactionType: domain.WalletDeposit,
		PaymentMethod:   domain.MethodUPI,
		TransactionID:   "UPI-REF-1",
		Status:          domain.WalletPending,
		Date:            at,
	}
	if err := gdb.Create(w).Error; err != nil {
		t.Fatalf("create wallet transaction: %v", err)
	}
	return w
}
