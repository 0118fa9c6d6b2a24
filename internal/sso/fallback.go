package sso

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

// FallbackProvider wraps any Provider and, when the wrapped provider
// reports a fallbackable connectivity failure and tenant policy permits it,
// re-authenticates against already-synchronized local credentials.
//
// Fallback fails closed: it never creates users, rejects disabled and
// locked accounts, and optionally requires a local password check. Any
// unexpected internal failure during fallback becomes a FALLBACK_ERROR
// result, never an error to the caller.
type FallbackProvider struct {
	next Provider
	db   *gorm.DB
}

// WithFallback wraps the given provider with local-credential fallback.
func WithFallback(next Provider, db *gorm.DB) *FallbackProvider {
	return &FallbackProvider{next: next, db: db}
}

// Type passes through to the wrapped provider.
func (f *FallbackProvider) Type() models.SSOType {
	return f.next.Type()
}

// LoginURL passes through to the wrapped provider.
func (f *FallbackProvider) LoginURL(cfg *models.TenantSSOConfig, callback string) string {
	return f.next.LoginURL(cfg, callback)
}

// LogoutURL passes through to the wrapped provider.
func (f *FallbackProvider) LogoutURL(cfg *models.TenantSSOConfig, callback string) string {
	return f.next.LogoutURL(cfg, callback)
}

// Authenticate invokes the wrapped provider and intercepts fallbackable
// connectivity failures. Everything else propagates unchanged.
func (f *FallbackProvider) Authenticate(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	res, err := f.next.Authenticate(ctx, cfg, req)
	if err == nil {
		return res, nil
	}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) || !connErr.Fallbackable() || !cfg.FallbackEnabled {
		return nil, err
	}

	log.Warn().
		Str("tenant", cfg.TenantID).
		Str("sso_type", string(cfg.SSOType)).
		Str("reason", string(connErr.Class)).
		Msg("SSO backend unreachable, attempting local fallback")

	fallbackActivations.WithLabelValues(string(cfg.SSOType), string(connErr.Class)).Inc()

	return f.authenticateLocally(cfg, req, connErr), nil
}

// authenticateLocally verifies the attempt against the synchronized local
// user. It only ever returns a Result.
func (f *FallbackProvider) authenticateLocally(
	cfg *models.TenantSSOConfig,
	req *Request,
	cause *ConnectionError,
) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic during fallback authentication")

			res = Fail(CodeFallbackError, "fallback authentication failed")
		}
	}()

	var user models.User

	err := f.db.Preload("Roles").
		Where("username = ? AND tenant_id = ?", req.Username, req.TenantID).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Fail(CodeFallbackUserNotFound, "no synchronized local user for fallback")
	}

	if err != nil {
		log.Error().Err(err).Msg("fallback user lookup failed")

		return Fail(CodeFallbackError, "fallback authentication failed")
	}

	if !user.Enabled || user.Locked {
		return Fail(CodeFallbackAccountDisabled, "local account is disabled or locked")
	}

	if cfg.FallbackPasswordRequired && !user.VerifyPassword(req.Password) {
		return Fail(CodeFallbackInvalidPassword, "local password did not match")
	}

	out := Succeed(user.Username, user.Username)
	out.Email = user.Email
	out.FullName = user.FullName
	out.Roles = user.RoleNames()

	for k, v := range f.loadProfile(&user) {
		out.AdditionalData[k] = v
	}

	out.AdditionalData[FallbackKey] = true
	out.AdditionalData[FallbackReasonKey] = string(cause.Class)

	if cause.HTTPStatus > 0 {
		out.AdditionalData[FallbackHTTPStatusKey] = cause.HTTPStatus
	}

	return out
}

// loadProfile fetches previously-synced profile fields. A storage error
// must not abort the fallback; it downgrades to an empty profile.
func (f *FallbackProvider) loadProfile(user *models.User) map[string]interface{} {
	var profile models.UserProfile

	err := f.db.Where("user_id = ? AND tenant_id = ?", user.ID, user.TenantID).
		First(&profile).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("failed to load user profile during fallback")
		}

		return map[string]interface{}{}
	}

	return profile.Data()
}
