// Package auth exposes the authentication JSON API: login, logout,
// refresh and validate.
package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ssobridge/ssobridge/internal/config"
	"github.com/ssobridge/ssobridge/internal/sso"
	"github.com/ssobridge/ssobridge/internal/token"
	"github.com/ssobridge/ssobridge/internal/web/handler"
)

const (
	// Path is the route group for the auth API.
	Path = handler.APIBasePath + "/auth"
)

// Service is the auth handler service.
type Service struct {
	cfg      *config.Config
	auth     *sso.Service
	validate *validator.Validate
}

// Handler is the auth handler.
var Handler = Service{}

// Init initializes the auth handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authService *sso.Service) error {
	if app == nil || cfg == nil || authService == nil {
		return errors.New(handler.ErrNilACSFatalLogMsg)
	}

	s.cfg = cfg
	s.auth = authService
	s.validate = validator.New()

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Post("/login", s.Login)
		router.Post("/logout", s.Logout)
		router.Post("/refresh", s.Refresh)
		router.Post("/validate", s.Validate)
	})

	return nil
}

// Login handles POST /api/v1/auth/login.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(loginRequest)

	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "unparseable request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := s.auth.Login(c.UserContext(), &sso.Request{
		TenantID:     req.TenantID,
		Username:     req.Username,
		Password:     req.Password,
		Token:        req.Token,
		IPAddress:    c.IP(),
		Mobile:       req.Mobile,
		UserDivision: req.UserDivision,
		Extra:        req.Extra,
	})
	if err != nil {
		return respondAuthError(c, err)
	}

	return c.JSON(loginResponse{
		User: userResponse{
			ID:       out.User.ID,
			TenantID: out.User.TenantID,
			Username: out.User.Username,
			Email:    out.User.Email,
			FullName: out.User.FullName,
			Roles:    out.User.RoleNames(),
		},
		AccessToken:  out.Tokens.AccessToken,
		RefreshToken: out.Tokens.RefreshToken,
		ExpiresAt:    out.Tokens.ExpiresAt,
		SSOType:      string(out.SSOType),
		Fallback:     out.Fallback,
		Attributes:   out.Attributes,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (s *Service) Logout(c *fiber.Ctx) error {
	req := new(logoutRequest)

	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "unparseable request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	logoutURL, err := s.auth.Logout(req.TenantID, req.Callback)
	if err != nil {
		return respondAuthError(c, err)
	}

	return c.JSON(logoutResponse{LogoutURL: logoutURL})
}

// Refresh handles POST /api/v1/auth/refresh.
func (s *Service) Refresh(c *fiber.Ctx) error {
	req := new(refreshRequest)

	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "unparseable request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	out, err := s.auth.Refresh(req.RefreshToken)
	if err != nil {
		return respondAuthError(c, err)
	}

	return c.JSON(loginResponse{
		User: userResponse{
			ID:       out.User.ID,
			TenantID: out.User.TenantID,
			Username: out.User.Username,
			Email:    out.User.Email,
			FullName: out.User.FullName,
			Roles:    out.User.RoleNames(),
		},
		AccessToken:  out.Tokens.AccessToken,
		RefreshToken: out.Tokens.RefreshToken,
		ExpiresAt:    out.Tokens.ExpiresAt,
	})
}

// Validate handles POST /api/v1/auth/validate.
func (s *Service) Validate(c *fiber.Ctx) error {
	req := new(validateRequest)

	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "unparseable request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	claims, err := s.auth.Validate(req.AccessToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(validateResponse{Valid: false})
	}

	return c.JSON(validateResponse{
		Valid:    true,
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Username: claims.Username,
		Roles:    claims.Roles,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
		Error:   "INVALID_REQUEST",
		Message: msg,
	})
}

// respondAuthError maps the service's two error channels onto HTTP status
// codes: connectivity failures become 503, credential failures 401 and
// configuration mistakes 400. Everything else is a 500.
func respondAuthError(c *fiber.Ctx, err error) error {
	var connErr *sso.ConnectionError
	if errors.As(err, &connErr) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{
			Error:   string(connErr.Class),
			Message: connErr.Error(),
		})
	}

	var authErr *sso.AuthError
	if errors.As(err, &authErr) {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error:   authErr.Code,
			Message: authErr.Message,
		})
	}

	switch {
	case errors.Is(err, sso.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error: sso.CodeInvalidCredentials,
		})
	case errors.Is(err, sso.ErrAccountLocked):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error: "ACCOUNT_LOCKED",
		})
	case errors.Is(err, sso.ErrAccountDisabled):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error: "ACCOUNT_DISABLED",
		})
	case errors.Is(err, sso.ErrTenantDisabled):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error: "TENANT_DISABLED",
		})
	case errors.Is(err, sso.ErrUnsupportedSSOType):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error:   "UNSUPPORTED_SSO_TYPE",
			Message: err.Error(),
		})
	case errors.Is(err, token.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Error: "TOKEN_INVALID",
		})
	}

	log.Error().Err(err).Msg("unexpected error during authentication")

	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
		Error: "INTERNAL_ERROR",
	})
}
