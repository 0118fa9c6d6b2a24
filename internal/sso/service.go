package sso

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ssobridge/ssobridge/internal/db/models"
	"github.com/ssobridge/ssobridge/internal/token"
)

// TokenIssuer signs session token pairs for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (*token.Pair, error)
	Validate(raw string) (*token.Claims, error)
	ValidateRefresh(raw string) (*token.Claims, error)
}

// LoginResult is the outcome of a successful login: the resolved local
// user, the issued tokens and the normalized attributes from the backend.
type LoginResult struct {
	User       *models.User
	Tokens     *token.Pair
	SSOType    models.SSOType
	Fallback   bool
	Attributes map[string]interface{}
}

// Service orchestrates the full login flow: tenant resolution, protocol
// dispatch through the registry, fallback wrapping, response normalization,
// identity synchronization and token issuance.
type Service struct {
	db       *gorm.DB
	registry *Registry
	tokens   TokenIssuer
	syncer   *Syncer
}

// NewService creates the login orchestrator.
func NewService(db *gorm.DB, registry *Registry, tokens TokenIssuer) *Service {
	return &Service{
		db:       db,
		registry: registry,
		tokens:   tokens,
		syncer:   NewSyncer(db),
	}
}

// Login authenticates the request against the tenant's configured SSO
// backend and returns the resolved local user with a signed token pair.
//
// Credential failures surface as *AuthError or one of the package
// sentinels; connectivity failures that survive fallback policy surface as
// *ConnectionError. The caller can rely on that split for status mapping.
func (s *Service) Login(ctx context.Context, req *Request) (*LoginResult, error) {
	cfg, err := s.tenantConfig(req.TenantID)
	if err != nil {
		return nil, err
	}

	var out *LoginResult

	// A tenant that switched SSO off authenticates internally no matter
	// what backend type the row still carries.
	if cfg.SSOType == models.SSOTypeInternal || !cfg.SSOEnabled {
		out, err = s.loginInternal(cfg, req)
	} else {
		out, err = s.loginExternal(ctx, cfg, req)
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	loginAttempts.WithLabelValues(string(cfg.SSOType), outcome).Inc()

	return out, err
}

// Logout resolves the backend's logout URL for the tenant. Token-based
// sessions have no server state to tear down; external backends may.
func (s *Service) Logout(tenantID, callback string) (string, error) {
	cfg, err := s.tenantConfig(tenantID)
	if err != nil {
		return "", err
	}

	if cfg.SSOType == models.SSOTypeInternal || !cfg.SSOEnabled {
		return "", nil
	}

	provider, err := s.registry.Provider(cfg.SSOType)
	if err != nil {
		return "", err
	}

	return provider.LogoutURL(cfg, callback), nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user is
// re-loaded so revocations (disable, lock) take effect at rotation.
func (s *Service) Refresh(raw string) (*LoginResult, error) {
	claims, err := s.tokens.ValidateRefresh(raw)
	if err != nil {
		return nil, err
	}

	var user models.User

	if err := s.db.Preload("Roles").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, token.ErrInvalidToken
		}

		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}

	if err := checkUserStatus(&user); err != nil {
		return nil, err
	}

	pair, err := s.tokens.Issue(&user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: &user, Tokens: pair}, nil
}

// Validate checks an access token and returns its claims.
func (s *Service) Validate(raw string) (*token.Claims, error) {
	return s.tokens.Validate(raw)
}

// tenantConfig loads the tenant and its SSO configuration. A tenant with
// no configuration row authenticates internally.
func (s *Service) tenantConfig(tenantID string) (*models.TenantSSOConfig, error) {
	var tenant models.Tenant

	err := s.db.First(&tenant, "id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantDisabled
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	if !tenant.Enabled {
		return nil, ErrTenantDisabled
	}

	var cfg models.TenantSSOConfig

	err = s.db.First(&cfg, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.TenantSSOConfig{
			TenantID: tenantID,
			SSOType:  models.SSOTypeInternal,
		}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load tenant SSO config: %w", err)
	}

	if cfg.SSOType == "" {
		cfg.SSOType = models.SSOTypeInternal
	}

	return &cfg, nil
}

// loginInternal authenticates against locally stored credentials.
func (s *Service) loginInternal(
	cfg *models.TenantSSOConfig,
	req *Request,
) (*LoginResult, error) {
	var user models.User

	err := s.db.Preload("Roles").
		Where("username = ? AND tenant_id = ?", req.Username, req.TenantID).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.VerifyPassword(req.Password) {
		user.FailedAttempts++

		if err := s.db.Model(&user).
			Update("failed_attempts", user.FailedAttempts).Error; err != nil {
			log.Warn().Err(err).Msg("failed to persist failed login attempt count")
		}

		return nil, ErrInvalidCredentials
	}

	if err := checkUserStatus(&user); err != nil {
		return nil, err
	}

	return s.finishLogin(cfg, &user, false, nil)
}

// loginExternal dispatches to the protocol adapter, applies fallback
// policy, normalizes the backend's response and resolves the local user.
func (s *Service) loginExternal(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*LoginResult, error) {
	provider, err := s.registry.Provider(cfg.SSOType)
	if err != nil {
		return nil, err
	}

	res, err := WithFallback(provider, s.db).Authenticate(ctx, cfg, req)
	if err != nil {
		return nil, err
	}

	if !res.Success {
		return nil, &AuthError{Code: res.ErrorCode, Message: res.ErrorMessage}
	}

	res.AdditionalData = Normalize(cfg, res.AdditionalData)

	fellBack, _ := res.AdditionalData[FallbackKey].(bool)

	var user *models.User

	switch {
	case fellBack:
		// The backend was unreachable; the local user already exists and
		// must not be re-synced from stale fallback data.
		user, err = s.localUser(req.TenantID, res.Username)
	case cfg.SyncEnabled:
		user, err = s.syncer.SyncUser(cfg, res)
	default:
		user, err = s.resolveMapped(cfg, res)
	}

	if err != nil {
		return nil, err
	}

	if err := checkUserStatus(user); err != nil {
		return nil, err
	}

	return s.finishLogin(cfg, user, fellBack, res.AdditionalData)
}

// resolveMapped finds the local user for an external identity without
// creating or mutating anything. Used when the tenant disables sync.
func (s *Service) resolveMapped(
	cfg *models.TenantSSOConfig,
	res *Result,
) (*models.User, error) {
	var mapping models.ExternalUserMapping

	err := s.db.Where(
		"tenant_id = ? AND external_user_id = ? AND external_system = ?",
		cfg.TenantID, res.ExternalUserID, cfg.SSOType,
	).First(&mapping).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.localUser(cfg.TenantID, res.Username)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query external mapping: %w", err)
	}

	var user models.User

	if err := s.db.Preload("Roles").First(&user, mapping.UserID).Error; err != nil {
		return nil, fmt.Errorf("failed to load mapped user: %w", err)
	}

	return &user, nil
}

func (s *Service) localUser(tenantID, username string) (*models.User, error) {
	var user models.User

	err := s.db.Preload("Roles").
		Where("username = ? AND tenant_id = ?", username, tenantID).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &AuthError{
			Code:    CodeUserNotFound,
			Message: "no local account for authenticated identity",
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &user, nil
}

func (s *Service) finishLogin(
	cfg *models.TenantSSOConfig,
	user *models.User,
	fellBack bool,
	attributes map[string]interface{},
) (*LoginResult, error) {
	if user.FailedAttempts > 0 {
		if err := s.db.Model(user).Update("failed_attempts", 0).Error; err != nil {
			log.Warn().Err(err).Msg("failed to reset failed login attempt count")
		}

		user.FailedAttempts = 0
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant", user.TenantID).
		Str("username", user.Username).
		Str("sso_type", string(cfg.SSOType)).
		Bool("fallback", fellBack).
		Msg("login succeeded")

	return &LoginResult{
		User:       user,
		Tokens:     pair,
		SSOType:    cfg.SSOType,
		Fallback:   fellBack,
		Attributes: attributes,
	}, nil
}

// checkUserStatus enforces account state after credential verification.
func checkUserStatus(user *models.User) error {
	if user.Locked {
		return ErrAccountLocked
	}

	if !user.LoginAllowed() {
		return ErrAccountDisabled
	}

	return nil
}
