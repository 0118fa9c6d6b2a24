package sso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

func syncConfig(syncRoles bool) *models.TenantSSOConfig {
	return &models.TenantSSOConfig{
		TenantID:           testTenantID,
		SSOType:            models.SSOTypeKeycloak,
		SSOEnabled:         true,
		SyncEnabled:        true,
		RoleMappingEnabled: syncRoles,
	}
}

func externalResult() *Result {
	res := Succeed("ext-42", "jdoe")
	res.Email = "jdoe@example.com"
	res.FullName = "Jane Doe"
	res.AdditionalData["studentId"] = "2024001"
	res.AdditionalData["grade"] = "3"

	return res
}

func TestSyncUser_CreatesUserAndMapping(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	syncer := NewSyncer(db)

	user, err := syncer.SyncUser(syncConfig(false), externalResult())
	require.NoError(t, err)

	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, "jdoe@example.com", user.Email)
	assert.True(t, user.Enabled)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NotEmpty(t, user.Password, "synced users must carry an unusable random password")

	var mapping models.ExternalUserMapping
	require.NoError(t, db.First(&mapping, "external_user_id = ?", "ext-42").Error)
	assert.Equal(t, user.ID, mapping.UserID)
	assert.Equal(t, models.SSOTypeKeycloak, mapping.ExternalSystem)
	assert.False(t, mapping.LastSyncedAt.IsZero())
}

func TestSyncUser_RepeatedLoginsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	syncer := NewSyncer(db)
	cfg := syncConfig(false)

	first, err := syncer.SyncUser(cfg, externalResult())
	require.NoError(t, err)

	// second login with changed attributes
	res := externalResult()
	res.Email = "jane.doe@example.com"

	second, err := syncer.SyncUser(cfg, res)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same external identity must resolve to the same user")
	assert.Equal(t, "jane.doe@example.com", second.Email)

	var userCount, mappingCount int64
	db.Model(&models.User{}).Count(&userCount)
	db.Model(&models.ExternalUserMapping{}).Count(&mappingCount)

	assert.Equal(t, int64(1), userCount)
	assert.Equal(t, int64(1), mappingCount)
}

func TestSyncUser_RoleMapping(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	require.NoError(t, db.Create(&models.Role{TenantID: testTenantID, Name: "student"}).Error)
	require.NoError(t, db.Create(&models.Role{TenantID: testTenantID, Name: "library"}).Error)

	syncer := NewSyncer(db)

	res := externalResult()
	res.Roles = []string{"student", "unknown-role"}

	user, err := syncer.SyncUser(syncConfig(true), res)
	require.NoError(t, err)

	// unknown-role is skipped, student assigned
	assert.Equal(t, []string{"student"}, user.RoleNames())
}

func TestSyncUser_NoMatchingRolesKeepsExisting(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	role := models.Role{TenantID: testTenantID, Name: "legacy"}
	require.NoError(t, db.Create(&role).Error)

	syncer := NewSyncer(db)
	cfg := syncConfig(true)

	// first login assigns legacy via a matching role name
	res := externalResult()
	res.Roles = []string{"legacy"}

	_, err := syncer.SyncUser(cfg, res)
	require.NoError(t, err)

	// second login reports only unknown roles
	res = externalResult()
	res.Roles = []string{"nonexistent"}

	user, err := syncer.SyncUser(cfg, res)
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.Preload("Roles").First(&reloaded, user.ID).Error)
	assert.Equal(t, []string{"legacy"}, reloaded.RoleNames())
}

func TestSyncUser_RoleMappingDisabled(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	require.NoError(t, db.Create(&models.Role{TenantID: testTenantID, Name: "student"}).Error)

	syncer := NewSyncer(db)

	res := externalResult()
	res.Roles = []string{"student"}

	user, err := syncer.SyncUser(syncConfig(false), res)
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.Preload("Roles").First(&reloaded, user.ID).Error)
	assert.Empty(t, reloaded.RoleNames())
}

func TestSyncUser_ProfileOverwrite(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	syncer := NewSyncer(db)
	cfg := syncConfig(false)

	res := externalResult()
	res.AdditionalData = map[string]interface{}{
		"department": "Physics",
		"grade":      "3",
	}

	user, err := syncer.SyncUser(cfg, res)
	require.NoError(t, err)

	// next sync carries grade only; department must be gone afterwards
	res = externalResult()
	res.AdditionalData = map[string]interface{}{"grade": "4"}

	_, err = syncer.SyncUser(cfg, res)
	require.NoError(t, err)

	var profile models.UserProfile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)

	data := profile.Data()
	assert.Equal(t, "4", data["grade"])

	_, hasDepartment := data["department"]
	assert.False(t, hasDepartment, "profile writes replace the payload wholesale")

	assert.Equal(t, models.ProfileSourceSSO, profile.Source)
	assert.Equal(t, string(models.SSOTypeKeycloak), profile.SourceSystem)
}

func TestSyncUser_InternalKeysNeverReachProfile(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	syncer := NewSyncer(db)

	res := externalResult()
	res.AdditionalData[FallbackKey] = true
	res.AdditionalData[FallbackReasonKey] = "TIMEOUT"

	user, err := syncer.SyncUser(syncConfig(false), res)
	require.NoError(t, err)

	var profile models.UserProfile
	require.NoError(t, db.First(&profile, "user_id = ?", user.ID).Error)

	data := profile.Data()
	_, hasFallback := data[FallbackKey]
	assert.False(t, hasFallback)
	assert.Equal(t, "2024001", data["studentId"])
}

func TestSyncUser_RejectsFailedResult(t *testing.T) {
	db := newTestDB(t)
	syncer := NewSyncer(db)

	_, err := syncer.SyncUser(syncConfig(false), Fail(CodeInvalidCredentials, "no"))
	assert.Error(t, err)
}

func TestSyncUser_SameExternalIDDifferentSystems(t *testing.T) {
	db := newTestDB(t)
	seedTenant(t, db)

	syncer := NewSyncer(db)

	keycloak := syncConfig(false)

	cas := syncConfig(false)
	cas.SSOType = models.SSOTypeCAS

	res := externalResult()

	first, err := syncer.SyncUser(keycloak, res)
	require.NoError(t, err)

	// same external id at a different backend is a different identity;
	// it maps onto a new mapping row
	res2 := externalResult()
	res2.Username = "jdoe-cas"

	second, err := syncer.SyncUser(cas, res2)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	var mappingCount int64
	db.Model(&models.ExternalUserMapping{}).Count(&mappingCount)
	assert.Equal(t, int64(2), mappingCount)
}
