package models

import "time"

// Tenant represents one isolated customer of the broker. All users, roles,
// SSO configurations and external identity mappings are scoped to a tenant.
type Tenant struct {
	// ID is the tenant identifier, a UUID string assigned at creation.
	ID string `gorm:"primaryKey;size:36"`
	// Name is the human-readable tenant name.
	Name string `gorm:"size:255;not null"`
	// Enabled indicates whether logins for this tenant are accepted.
	Enabled bool
	// CreatedAt is the timestamp when the tenant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the tenant was last updated (managed by GORM).
	UpdatedAt time.Time
}
