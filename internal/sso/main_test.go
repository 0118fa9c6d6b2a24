package sso

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

const testTenantID = "11111111-1111-1111-1111-111111111111"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.TenantSSOConfig{},
		&models.ExternalUserMapping{},
		&models.UserProfile{},
	); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	return db
}

func seedTenant(t *testing.T, db *gorm.DB) *models.Tenant {
	t.Helper()

	tenant := models.Tenant{ID: testTenantID, Name: "test", Enabled: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}

	return &tenant
}

func seedUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	user := models.User{
		TenantID: testTenantID,
		Username: username,
		Password: models.HashPassword(password),
		Email:    username + "@example.com",
		FullName: "Test " + username,
		Status:   models.UserStatusActive,
		Enabled:  true,
	}

	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	return &user
}
