package models

import "time"

// ExternalUserMapping is the durable link between a local user and one
// external identity at one backend. It is created on the first successful
// external login for an identity never seen before; LastSyncedAt is
// refreshed on every subsequent external login.
type ExternalUserMapping struct {
	// ID is the unique identifier for the mapping.
	ID uint64 `gorm:"primaryKey"`
	// TenantID scopes the mapping to a tenant.
	TenantID string `gorm:"size:36;not null;uniqueIndex:idx_ext_mappings_identity"`
	// UserID is the local user this external identity resolves to.
	UserID uint64 `gorm:"not null;index"`
	// ExternalUserID is the identifier the backend reported for the user.
	ExternalUserID string `gorm:"size:255;not null;uniqueIndex:idx_ext_mappings_identity"`
	// ExternalSystem is the backend type the identity belongs to.
	ExternalSystem SSOType `gorm:"type:varchar(20);not null;uniqueIndex:idx_ext_mappings_identity"`
	// LastSyncedAt is the time of the most recent external login.
	LastSyncedAt time.Time
	// CreatedAt is the timestamp when the mapping was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the mapping was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the ExternalUserMapping model.
func (ExternalUserMapping) TableName() string {
	return "external_user_mappings"
}
