package domain

import (
	"errors" // Sentinel errors
	"time"   // Timestamps

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"gorm.io/gorm"                  // GORM ORM library
)

// User roles
const (
	RoleAdmin             = "admin"              // Full access, approves requests and deposits
	RoleResponsibleMember = "responsible_member" // Team leader collecting from assigned members
	RoleMember            = "member"             // Regular contributor
)

// Marital statuses
const (
	MaritalMarried   = "Married"
	MaritalUnmarried = "Unmarried"
)

// ErrSelfAssigned is returned when a user is set as their own responsible member
var ErrSelfAssigned = errors.New("user cannot be their own responsible member")

// User Model
type User struct {
	ID                    uint            `gorm:"primaryKey"`                                     // Primary key
	Username              string          `gorm:"size:150;uniqueIndex;not null"`                  // Unique username
	Password              string          `gorm:"not null"`                                       // Hashed password
	FirstName             string          `gorm:"size:150"`                                       // Given name
	LastName              string          `gorm:"size:150"`                                       // Family name
	Email                 string          `gorm:"size:254"`                                       // Contact email
	Role                  string          `gorm:"size:20;not null;default:member;index"`          // Role: admin, responsible_member or member
	IsSuperuser           bool            `gorm:"not null;default:false"`                         // Superusers are always admins
	IsActive              bool            `gorm:"not null;default:true"`                          // Inactive users cannot log in
	ResponsibleMemberID   *uint           `gorm:"index"`                                          // Foreign key to the leader
	ResponsibleMember     *User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // Leader of this user
	AssignedMembers       []User          `gorm:"foreignKey:ResponsibleMemberID"`                 // Downline of a leader
	MaritalStatus         string          `gorm:"size:10;not null;default:Unmarried"`             // Married or Unmarried
	Phone                 string          `gorm:"size:15"`                                        // Phone number
	ProfilePhoto          string          `gorm:"size:255"`                                       // Path relative to the media root
	AssignedMonthlyAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`          // Explicit per-member target
	DateJoined            time.Time       `gorm:"autoCreateTime"`                                 // Registration time

	TermsAcknowledgement *TermsAcknowledgement `gorm:"constraint:OnDelete:CASCADE;"` // Optional terms record
}

// BeforeSave normalizes the role and rejects self-assigned leaders
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.IsSuperuser {
		u.Role = RoleAdmin // Superusers are promoted automatically
	}
	if u.Role == "" {
		u.Role = RoleMember // Default role
	}
	if u.MaritalStatus == "" {
		u.MaritalStatus = MaritalUnmarried
	}
	if u.ID != 0 && u.ResponsibleMemberID != nil && *u.ResponsibleMemberID == u.ID {
		return ErrSelfAssigned
	}
	return nil
}

// FullName returns "first last" or an empty string
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// DisplayName falls back to the username when no full name is set
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsLeader reports whether the user is a responsible member
func (u *User) IsLeader() bool { return u.Role == RoleResponsibleMember }

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleResponsibleMember || role == RoleMember
}

// ValidMaritalStatus reports whether status is a known marital status
func ValidMaritalStatus(status string) bool {
	return status == MaritalMarried || status == MaritalUnmarried
}
