package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error matching
	"net"     // Client address parsing
	"regexp"  // Username validation
	"strings" // Input normalization

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/events" // Post-commit events
	"cbms_backend/internal/notify" // Broadcasts

	"github.com/shopspring/decimal" // Fixed-precision amounts
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/crypto/bcrypt"    // Password hashing
	"gorm.io/gorm"                  // GORM ORM library
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

// ErrInvalidCredentials is returned for an unknown user, a wrong password or an inactive account
var ErrInvalidCredentials = errors.New("no active account found with the given credentials")

// UserInput is the body of a user create or update call; nil fields are left unchanged
type UserInput struct {
	Username              *string          `json:"username" form:"username"`
	Password              *string          `json:"password" form:"password"`
	FirstName             *string          `json:"first_name" form:"first_name"`
	LastName              *string          `json:"last_name" form:"last_name"`
	Email                 *string          `json:"email" form:"email"`
	Role                  *string          `json:"role" form:"role"`
	MaritalStatus         *string          `json:"marital_status" form:"marital_status"`
	Phone                 *string          `json:"phone" form:"phone"`
	ResponsibleMemberID   *uint            `json:"responsible_member" form:"responsible_member"`
	ClearLeader           bool             `json:"-" form:"-"` // Set when responsible_member was sent as null
	AssignedMonthlyAmount *decimal.Decimal `json:"assigned_monthly_amount" form:"assigned_monthly_amount"`
	IsActive              *bool            `json:"is_active" form:"is_active"`
	ProfilePhoto          *string          `json:"-" form:"-"` // Stored path, set by the upload handler
}

// HashPassword hashes a plain password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks a username and password pair
func (l *Ledger) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	if err := l.db.WithContext(ctx).Where("username = ?", strings.ToLower(strings.TrimSpace(username))).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// CreateUser registers a new account; admins only
func (l *Ledger) CreateUser(ctx context.Context, actor *domain.User, in UserInput) (*domain.User, error) {
	if err := requireAdmin(actor, "Only admins can create users."); err != nil {
		return nil, err
	}
	v := &ValidationError{}
	if in.Username == nil || strings.TrimSpace(*in.Username) == "" {
		v.Add("username", "This field is required.")
	}
	if in.Password == nil || *in.Password == "" {
		v.Add("password", "This field is required.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	user := &domain.User{IsActive: true, AssignedMonthlyAmount: decimal.Zero}
	inactive := in.IsActive != nil && !*in.IsActive
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyUserInput(tx, user, in); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		// Create skips the zero value and reads back the column default
		if inactive {
			user.IsActive = false
			return tx.Model(user).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,       // New user
		"username":   user.Username, // Login name
		"role":       user.Role,     // Assigned role
		"created_by": actor.ID,      // Admin
	}).Info("User created")
	return user, nil
}

// UpdateUser edits a visible user. Non-admins may only edit their own profile
// and cannot change their role, leader or monthly amount.
func (l *Ledger) UpdateUser(ctx context.Context, actor *domain.User, id uint, in UserInput) (*domain.User, error) {
	var user domain.User
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx.Scopes(VisibleUsers(actor)), &user, id, "User"); err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if user.ID != actor.ID {
				return forbidden("You can only edit your own profile.")
			}
			if in.Role != nil || in.ResponsibleMemberID != nil || in.ClearLeader || in.AssignedMonthlyAmount != nil || in.IsActive != nil {
				return forbidden("Only admins can change role, team or monthly amount.")
			}
		}
		wasLeader := user.IsLeader()
		if err := applyUserInput(tx, &user, in); err != nil {
			return err
		}
		if err := tx.Omit("AssignedMembers", "ResponsibleMember", "TermsAcknowledgement").Save(&user).Error; err != nil {
			return err
		}
		// A demoted leader no longer owns a team
		if wasLeader && !user.IsLeader() {
			return tx.Model(&domain.User{}).Where("responsible_member_id = ?", user.ID).Update("responsible_member_id", nil).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// applyUserInput validates in and copies it onto user
func applyUserInput(tx *gorm.DB, user *domain.User, in UserInput) error {
	v := &ValidationError{}
	if in.Username != nil {
		name := strings.ToLower(strings.TrimSpace(*in.Username))
		if !usernamePattern.MatchString(name) {
			v.Add("username", "Enter a valid username. Letters, digits and @/./+/-/_ only.")
		} else {
			var taken int64
			if err := tx.Model(&domain.User{}).Where("username = ? AND id <> ?", name, user.ID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				v.Add("username", "A user with that username already exists.")
			}
		}
		user.Username = name
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			v.Add("password", "This password is too short. It must contain at least 8 characters.")
		} else {
			hash, err := HashPassword(*in.Password)
			if err != nil {
				return err
			}
			user.Password = hash
		}
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		if len(*in.Phone) > 15 {
			v.Add("phone", "Ensure this field has no more than 15 characters.")
		}
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		if !domain.ValidRole(*in.Role) {
			v.Add("role", `"`+*in.Role+`" is not a valid choice.`)
		}
		user.Role = *in.Role
	}
	if in.MaritalStatus != nil {
		if !domain.ValidMaritalStatus(*in.MaritalStatus) {
			v.Add("marital_status", `"`+*in.MaritalStatus+`" is not a valid choice.`)
		}
		user.MaritalStatus = *in.MaritalStatus
	}
	if in.AssignedMonthlyAmount != nil {
		if in.AssignedMonthlyAmount.IsNegative() {
			v.Add("assigned_monthly_amount", "Ensure this value is greater than or equal to 0.")
		}
		user.AssignedMonthlyAmount = *in.AssignedMonthlyAmount
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.ProfilePhoto != nil {
		user.ProfilePhoto = *in.ProfilePhoto
	}
	switch {
	case in.ClearLeader:
		user.ResponsibleMemberID = nil
	case in.ResponsibleMemberID != nil:
		leaderID := *in.ResponsibleMemberID
		if user.ID != 0 && leaderID == user.ID {
			v.Add("responsible_member", domain.ErrSelfAssigned.Error())
			break
		}
		var leader domain.User
		err := tx.Select("id", "role").First(&leader, leaderID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v.Add("responsible_member", "Invalid user ID.")
		case err != nil:
			return err
		case !leader.IsLeader():
			v.Add("responsible_member", "Selected user is not a responsible member.")
		default:
			user.ResponsibleMemberID = &leader.ID
		}
	}
	// Leaders head their own team and report to nobody
	if user.IsLeader() {
		if in.ResponsibleMemberID != nil {
			v.Add("responsible_member", "A responsible member cannot be assigned to another responsible member.")
		}
		user.ResponsibleMemberID = nil
	}
	return v.OrNil()
}

// DeleteUser removes an account; admins only, and not while payments reference it
func (l *Ledger) DeleteUser(ctx context.Context, actor *domain.User, id uint) error {
	if err := requireAdmin(actor, "Only admins can delete users."); err != nil {
		return err
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := lockByID(tx, &user, id, "User"); err != nil {
			return err
		}
		var payments int64
		if err := tx.Model(&domain.Payment{}).Where("user_id = ?", id).Count(&payments).Error; err != nil {
			return err
		}
		if payments > 0 {
			return conflict("Cannot delete a user with recorded payments.")
		}
		if err := tx.Model(&domain.User{}).Where("responsible_member_id = ?", id).Update("responsible_member_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    id,       // Deleted user
		"deleted_by": actor.ID, // Admin
	}).Warn("User deleted")
	return nil
}

// CreateSuperuser bootstraps an admin account without an acting user
func (l *Ledger) CreateSuperuser(ctx context.Context, username, password string) (*domain.User, error) {
	role := domain.RoleAdmin
	user := &domain.User{IsActive: true, IsSuperuser: true, AssignedMonthlyAmount: decimal.Zero}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyUserInput(tx, user, UserInput{Username: &username, Password: &password, Role: &role}); err != nil {
			return err
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,       // New admin
		"username": user.Username, // Login name
	}).Info("Superuser created")
	return user, nil
}

// SetPassword replaces a user's password by username
func (l *Ledger) SetPassword(ctx context.Context, username, password string) error {
	if len(password) < 8 {
		return Invalid("password", "This password is too short. It must contain at least 8 characters.")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", strings.ToLower(username)).Update("password", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("User not found.")
	}
	return nil
}

// AcknowledgeTerms records that the actor accepted the terms; a second call conflicts
func (l *Ledger) AcknowledgeTerms(ctx context.Context, actor *domain.User, ip, userAgent string) (*domain.TermsAcknowledgement, error) {
	ack := &domain.TermsAcknowledgement{UserID: actor.ID, UserAgent: userAgent}
	if parsed := net.ParseIP(ip); parsed != nil {
		addr := parsed.String()
		ack.IPAddress = &addr
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&domain.TermsAcknowledgement{}).Where("user_id = ?", actor.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return conflict("Terms already acknowledged.")
		}
		return tx.Create(ack).Error
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": actor.ID, // Acknowledging user
		"ip":      ip,       // Client address
	}).Info("Terms acknowledged")
	return ack, nil
}

// Announce broadcasts an announcement to every user and returns the number of rows written
func (l *Ledger) Announce(ctx context.Context, admin *domain.User, title, message, priority string) (int, error) {
	if err := requireAdmin(admin, "Only admins can send announcements."); err != nil {
		return 0, err
	}
	v := &ValidationError{}
	if strings.TrimSpace(title) == "" {
		v.Add("title", "This field is required.")
	}
	if strings.TrimSpace(message) == "" {
		v.Add("message", "This field is required.")
	}
	if priority != "" && !domain.ValidPriority(priority) {
		v.Add("priority", `"`+priority+`" is not a valid choice.`)
	}
	if err := v.OrNil(); err != nil {
		return 0, err
	}
	count, err := notify.Broadcast(l.db.WithContext(ctx), admin.ID, title, message, priority, l.batchSize)
	if err != nil {
		var partial *notify.PartialBroadcastError
		if errors.As(err, &partial) {
			logrus.WithError(partial.Err).WithFields(logrus.Fields{
				"admin_id":     admin.ID,           // Sender
				"recipients":   partial.Sent,       // Notifications already committed
				"last_user_id": partial.LastUserID, // Last user reached
			}).Error("Announcement broadcast stopped part way")
		}
		return count, err
	}
	logrus.WithFields(logrus.Fields{
		"admin_id":   admin.ID, // Sender
		"recipients": count,    // Notifications written
	}).Info("Announcement broadcast")
	l.emit(ctx, events.AnnouncementBroadcasted, admin.ID, admin.ID, map[string]any{
		"title":      title,
		"recipients": count,
	})
	return count, nil
}
