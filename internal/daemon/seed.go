package daemon

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ssobridge/ssobridge/internal/config"
	"github.com/ssobridge/ssobridge/internal/db/models"
)

func seed(_ *config.Config, db *gorm.DB) {
	// Seed initial data if tenant table is empty

	var count int64
	db.Model(&models.Tenant{}).Count(&count)

	if count > 0 {
		return
	}

	tenant := models.Tenant{
		ID:      uuid.NewString(),
		Name:    "default",
		Enabled: true,
	}

	if err := db.Create(&tenant).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed default tenant")
		return
	}

	adminRole := models.Role{
		TenantID: tenant.ID,
		Name:     "admin",
	}

	if err := db.Create(&adminRole).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin role")
		return
	}

	// Create default admin user, change password after first login
	admin := models.User{
		TenantID: tenant.ID,
		Username: "admin",
		Password: models.HashPassword("changeme"),
		Status:   models.UserStatusActive,
		Enabled:  true,
		Roles:    []models.Role{adminRole},
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin user")
		return
	}

	log.Info().Str("tenant", tenant.ID).Msg("seeded default tenant and admin user")
}
