package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// UserStatus represents the lifecycle state of a user account.
type UserStatus string

const (
	// UserStatusActive indicates a normal, usable account.
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusSuspended indicates an account put on hold by an administrator.
	UserStatusSuspended UserStatus = "SUSPENDED"
	// UserStatusDeleted indicates a soft-deleted account that must not log in.
	UserStatusDeleted UserStatus = "DELETED"
)

// User represents a local identity record scoped to a tenant.
// Users either carry a locally set password or were synchronized from an
// external SSO backend, in which case the password is random and unusable.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// TenantID scopes the user to a tenant. Usernames are unique per tenant.
	TenantID string `gorm:"size:36;not null;uniqueIndex:idx_users_tenant_username"`
	// Username is the login name, unique within the tenant.
	Username string `gorm:"size:100;not null;uniqueIndex:idx_users_tenant_username"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// Email is the user's email address, refreshed on every external login.
	Email string `gorm:"size:255"`
	// FullName is the user's display name, refreshed on every external login.
	FullName string `gorm:"size:255"`
	// Status is the account lifecycle state (ACTIVE, SUSPENDED, DELETED).
	Status UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	// Enabled indicates whether the account may log in at all.
	Enabled bool
	// Locked indicates the account was locked, e.g. after repeated failures.
	Locked bool
	// FailedAttempts counts consecutive failed local password checks.
	FailedAttempts int
	// Roles are the tenant roles assigned to this user.
	Roles []Role `gorm:"many2many:user_roles"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// It is used for locally managed passwords and for the random unusable
// passwords assigned to SSO-synchronized users.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hash.
// It uses constant-time comparison to prevent timing attacks.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// LoginAllowed reports whether the account state permits a login.
// It does not verify credentials.
func (u *User) LoginAllowed() bool {
	return u.Enabled && !u.Locked &&
		u.Status != UserStatusDeleted && u.Status != UserStatusSuspended
}

// RoleNames returns the names of the user's assigned roles.
func (u *User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}

	return names
}
