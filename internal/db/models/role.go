package models

import "time"

// Role represents a tenant-scoped role that can be assigned to users.
// External SSO role names are matched against these records by
// (tenant, name) during identity synchronization.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// TenantID scopes the role to a tenant. Role names are unique per tenant.
	TenantID string `gorm:"size:36;not null;uniqueIndex:idx_roles_tenant_name"`
	// Name is the role name (e.g. "admin", "user"), unique within the tenant.
	Name string `gorm:"size:100;not null;uniqueIndex:idx_roles_tenant_name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
