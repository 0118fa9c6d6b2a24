package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ProfileSource identifies where a profile payload came from.
type ProfileSource string

const (
	// ProfileSourceSSO marks profiles written during SSO synchronization.
	ProfileSourceSSO ProfileSource = "SSO"
	// ProfileSourceManual marks profiles edited by an administrator.
	ProfileSourceManual ProfileSource = "MANUAL"
	// ProfileSourceImport marks profiles loaded by a bulk import.
	ProfileSourceImport ProfileSource = "IMPORT"
	// ProfileSourceSCIM marks profiles provisioned over SCIM.
	ProfileSourceSCIM ProfileSource = "SCIM"
)

// UserProfile holds free-form profile attributes for one user in one tenant.
// There is exactly one row per (user, tenant); each sync overwrites
// ProfileData wholesale, it is never merged field by field.
type UserProfile struct {
	// ID is the unique identifier for the profile row.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the owning user.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_user_profiles_user_tenant"`
	// TenantID scopes the profile to a tenant.
	TenantID string `gorm:"size:36;not null;uniqueIndex:idx_user_profiles_user_tenant"`
	// ProfileData is the profile payload as a JSON object.
	ProfileData datatypes.JSON
	// Source identifies how the profile was written (SSO, MANUAL, IMPORT, SCIM).
	Source ProfileSource `gorm:"type:varchar(20);not null"`
	// SourceSystem names the concrete system the data came from, e.g. the SSO type.
	SourceSystem string `gorm:"size:50"`
	// SyncedAt is the time of the last write.
	SyncedAt time.Time
	// CreatedAt is the timestamp when the profile was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the profile was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the UserProfile model.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// Data decodes ProfileData into a generic map. Malformed or absent payloads
// yield an empty map.
func (p *UserProfile) Data() map[string]interface{} {
	out := map[string]interface{}{}
	if len(p.ProfileData) == 0 {
		return out
	}

	if err := json.Unmarshal(p.ProfileData, &out); err != nil {
		return map[string]interface{}{}
	}

	return out
}
