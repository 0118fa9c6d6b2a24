package sso

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ssobridge/ssobridge/internal/db/models"
	"github.com/ssobridge/ssobridge/internal/uniuri"
)

const syncPasswordLen = 32

// Syncer turns a successful external authentication result into a durable
// local user record and maintains the external identity mapping.
type Syncer struct {
	db *gorm.DB
}

// NewSyncer creates a new identity syncer.
func NewSyncer(db *gorm.DB) *Syncer {
	return &Syncer{db: db}
}

// SyncUser finds or creates the local user for the normalized result.
// Repeated logins with the same external identity update the existing user
// and mapping; they never duplicate rows. Role replacement happens only
// when the tenant enables it; profile persistence is best-effort and never
// fails the login.
func (s *Syncer) SyncUser(cfg *models.TenantSSOConfig, res *Result) (*models.User, error) {
	if !res.Success {
		return nil, fmt.Errorf("cannot sync a failed result (%s)", res.ErrorCode)
	}

	var mapping models.ExternalUserMapping

	err := s.db.Where(
		"tenant_id = ? AND external_user_id = ? AND external_system = ?",
		cfg.TenantID, res.ExternalUserID, cfg.SSOType,
	).First(&mapping).Error

	notFound := errors.Is(err, gorm.ErrRecordNotFound)

	if err != nil && !notFound {
		return nil, fmt.Errorf("failed to query external mapping: %w", err)
	}

	var user *models.User

	if notFound {
		user, err = s.createUser(cfg, res)
	} else {
		user, err = s.updateUser(&mapping, res)
	}

	if err != nil {
		return nil, err
	}

	if cfg.RoleMappingEnabled && len(res.Roles) > 0 {
		if err := s.syncRoles(user, res.Roles); err != nil {
			return nil, err
		}
	}

	// Best-effort: a profile failure must never fail the login.
	s.syncProfile(cfg, user, res)

	return user, nil
}

// createUser creates a fresh local user with a random unusable password and
// the mapping row linking it to the external identity.
func (s *Syncer) createUser(cfg *models.TenantSSOConfig, res *Result) (*models.User, error) {
	user := models.User{
		TenantID: cfg.TenantID,
		Username: res.Username,
		Password: models.HashPassword(uniuri.NewLen(syncPasswordLen)),
		Email:    res.Email,
		FullName: res.FullName,
		Status:   models.UserStatusActive,
		Enabled:  true,
		Locked:   false,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	mapping := models.ExternalUserMapping{
		TenantID:       cfg.TenantID,
		UserID:         user.ID,
		ExternalUserID: res.ExternalUserID,
		ExternalSystem: cfg.SSOType,
		LastSyncedAt:   time.Now(),
	}

	if err := s.db.Create(&mapping).Error; err != nil {
		return nil, fmt.Errorf("failed to create external mapping: %w", err)
	}

	log.Info().
		Str("tenant", cfg.TenantID).
		Str("username", user.Username).
		Str("sso_type", string(cfg.SSOType)).
		Msg("created local user from external identity")

	return &user, nil
}

// updateUser refreshes the mapped user from the result and stamps the
// mapping's last sync time.
func (s *Syncer) updateUser(
	mapping *models.ExternalUserMapping,
	res *Result,
) (*models.User, error) {
	var user models.User

	if err := s.db.Preload("Roles").First(&user, mapping.UserID).Error; err != nil {
		return nil, fmt.Errorf("failed to load mapped user: %w", err)
	}

	user.Email = res.Email
	user.FullName = res.FullName

	if err := s.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	mapping.LastSyncedAt = time.Now()

	if err := s.db.Save(mapping).Error; err != nil {
		return nil, fmt.Errorf("failed to refresh external mapping: %w", err)
	}

	return &user, nil
}

// syncRoles replaces the user's role set with the local roles matching the
// external role names. Unmatched names are skipped with a warning; when
// nothing matches the existing roles stay untouched.
func (s *Syncer) syncRoles(user *models.User, externalRoles []string) error {
	matched := make([]models.Role, 0, len(externalRoles))

	for _, name := range externalRoles {
		var role models.Role

		err := s.db.Where("tenant_id = ? AND name = ?", user.TenantID, name).
			First(&role).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().
				Str("tenant", user.TenantID).
				Str("role", name).
				Msg("external role has no local counterpart, skipping")

			continue
		}

		if err != nil {
			return fmt.Errorf("failed to look up role %q: %w", name, err)
		}

		matched = append(matched, role)
	}

	if len(matched) == 0 {
		log.Warn().
			Str("tenant", user.TenantID).
			Str("username", user.Username).
			Msg("no external role matched, keeping existing roles")

		return nil
	}

	if err := s.db.Model(user).Association("Roles").Replace(matched); err != nil {
		return fmt.Errorf("failed to replace user roles: %w", err)
	}

	user.Roles = matched

	return nil
}

// syncProfile overwrites the user's profile with the non-internal fields of
// the result. Failures are logged and swallowed: profile data is
// best-effort and must never fail an otherwise-successful login.
func (s *Syncer) syncProfile(cfg *models.TenantSSOConfig, user *models.User, res *Result) {
	data := map[string]interface{}{}

	for k, v := range res.AdditionalData {
		if !strings.HasPrefix(k, "_") {
			data[k] = v
		}
	}

	if len(data) == 0 {
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode profile data")
		return
	}

	var profile models.UserProfile

	err = s.db.Where("user_id = ? AND tenant_id = ?", user.ID, user.TenantID).
		First(&profile).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = models.UserProfile{
			UserID:   user.ID,
			TenantID: user.TenantID,
		}
	case err != nil:
		log.Warn().Err(err).Msg("failed to load user profile, skipping sync")
		return
	}

	// Overwritten wholesale, never merged field by field.
	profile.ProfileData = datatypes.JSON(payload)
	profile.Source = models.ProfileSourceSSO
	profile.SourceSystem = string(cfg.SSOType)
	profile.SyncedAt = time.Now()

	if err := s.db.Save(&profile).Error; err != nil {
		log.Warn().Err(err).Msg("failed to persist user profile")
	}
}
