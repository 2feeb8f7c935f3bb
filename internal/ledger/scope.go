package ledger

import (
	"cbms_backend/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// scopeFunc narrows a query to the rows a user may see
type scopeFunc func(db *gorm.DB, u *domain.User) *gorm.DB

// resourceScopes maps every role to its query scoping function
type resourceScopes map[string]scopeFunc

// apply picks the role's scope, falling back to the most restrictive one
func (s resourceScopes) apply(u *domain.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if fn, ok := s[u.Role]; ok {
			return fn(db, u)
		}
		return s[domain.RoleMember](db, u)
	}
}

// downline is a subquery selecting the IDs of the leader's assigned members
func downline(db *gorm.DB, leader *domain.User) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&domain.User{}).
		Select("id").
		Where("responsible_member_id = ? AND id <> ?", leader.ID, leader.ID)
}

func all(db *gorm.DB, _ *domain.User) *gorm.DB { return db }

var userScopes = resourceScopes{
	domain.RoleAdmin: all,
	domain.RoleResponsibleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("users.id = ? OR users.responsible_member_id = ?", u.ID, u.ID)
	},
	domain.RoleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("users.id = ?", u.ID)
	},
}

var paymentScopes = resourceScopes{
	domain.RoleAdmin: all,
	domain.RoleResponsibleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("payments.recorded_by_id = ? OR payments.user_id = ? OR payments.user_id IN (?)", u.ID, u.ID, downline(db, u))
	},
	domain.RoleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("payments.user_id = ?", u.ID)
	},
}

var fundRequestScopes = resourceScopes{
	domain.RoleAdmin: all,
	domain.RoleResponsibleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("fund_requests.user_id = ? OR fund_requests.user_id IN (?)", u.ID, downline(db, u))
	},
	domain.RoleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("fund_requests.user_id = ?", u.ID)
	},
}

var walletScopes = resourceScopes{
	domain.RoleAdmin: all,
	domain.RoleResponsibleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("wallet_transactions.user_id = ? OR wallet_transactions.user_id IN (?)", u.ID, downline(db, u))
	},
	domain.RoleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("wallet_transactions.user_id = ?", u.ID)
	},
}

var termsScopes = resourceScopes{
	domain.RoleAdmin: all,
	domain.RoleResponsibleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("terms_acknowledgements.user_id = ?", u.ID)
	},
	domain.RoleMember: func(db *gorm.DB, u *domain.User) *gorm.DB {
		return db.Where("terms_acknowledgements.user_id = ?", u.ID)
	},
}

// VisibleUsers scopes a users query: admins see all, leaders themselves and their team, members themselves
func VisibleUsers(u *domain.User) func(*gorm.DB) *gorm.DB { return userScopes.apply(u) }

// VisiblePayments scopes a payments query; leaders also see payments they recorded
func VisiblePayments(u *domain.User) func(*gorm.DB) *gorm.DB { return paymentScopes.apply(u) }

// VisibleFundRequests scopes a fund_requests query
func VisibleFundRequests(u *domain.User) func(*gorm.DB) *gorm.DB { return fundRequestScopes.apply(u) }

// VisibleWalletTransactions scopes a wallet_transactions query
func VisibleWalletTransactions(u *domain.User) func(*gorm.DB) *gorm.DB { return walletScopes.apply(u) }

// VisibleTerms scopes a terms_acknowledgements query
func VisibleTerms(u *domain.User) func(*gorm.DB) *gorm.DB { return termsScopes.apply(u) }

// OwnNotifications scopes a notifications query to the caller, whatever the role
func OwnNotifications(u *domain.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Where("notifications.user_id = ?", u.ID) }
}
