package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleBenevole is a volunteer account, the registration default
	RoleBenevole UserRole = "benevole"
	// RoleDonateur is a donor account
	RoleDonateur UserRole = "donateur"
	// RolePartenaire is a partner-organization account
	RolePartenaire UserRole = "partenaire"
	// RoleAdmin is an association administrator
	RoleAdmin UserRole = "admin"
)

// UserStatus is the account lifecycle status
type UserStatus = string

const (
	// UserStatusPending is the registration default, awaiting admin review
	UserStatusPending UserStatus = "pending"
	// UserStatusApproved grants full authenticated access
	UserStatusApproved UserStatus = "approved"
	// UserStatusSuspended blocks access, reversible by an admin
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusBanned blocks access permanently
	UserStatusBanned UserStatus = "banned"
)

// User is the user model
type User struct {
	bun.BaseModel          `bun:"table:users,alias:usr"`
	ID                     uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role                   UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status                 UserStatus `bun:"status,notnull" json:"status,omitempty"`
	FirstName              string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName               string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email                  string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone                  string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash           string     `bun:"password_hash" json:"-"`
	PasswordChangedAt      *time.Time `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	PasswordResetTokenHash string     `bun:"password_reset_token_hash,nullzero" json:"-"`
	PasswordResetExpiresAt *time.Time `bun:"password_reset_expires_at,nullzero" json:"-"`
	LoginAttempts          int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt         *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt             *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt              *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt              *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the registration default for rows created
// before the status column existed.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// EnsureRole backfills the registration default role.
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleBenevole
	}
}

// HasActiveReset reports whether a reset ticket is outstanding. The reset
// digest and expiry are either both set or both empty.
func (u *User) HasActiveReset() bool {
	return u.PasswordResetTokenHash != "" && u.PasswordResetExpiresAt != nil
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
// Email uniqueness is case-insensitive so we normalize at every write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
