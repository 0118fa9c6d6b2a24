package sso

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

const defaultJWTExpirySeconds = 3600

// JWTProvider serves tenants whose gateway exchanges HMAC-signed tokens
// with the broker. It is dual-mode: a request carrying a token is verified,
// a request without one mints a fresh signed token for the caller.
//
// The signing key is derived from the tenant's configured secret once and
// cached per tenant; the cache is safe under concurrent logins.
type JWTProvider struct {
	mu   sync.Mutex
	keys map[string][]byte
}

// NewJWTProvider creates a new JWT adapter with an empty key cache.
func NewJWTProvider() *JWTProvider {
	return &JWTProvider{keys: map[string][]byte{}}
}

// Type reports the SSO type this adapter serves.
func (p *JWTProvider) Type() models.SSOType {
	return models.SSOTypeJWT
}

// Authenticate verifies the supplied token, or mints one when the request
// carries none.
func (p *JWTProvider) Authenticate(
	_ context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	key, err := p.signingKey(cfg)
	if err != nil {
		return Fail(CodeConfigError, err.Error()), nil
	}

	if req.Token != "" {
		return p.verify(key, req)
	}

	return p.mint(key, cfg, req)
}

// LoginURL is empty: the JWT gateway drives its own login flow.
func (p *JWTProvider) LoginURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// LogoutURL is empty: tokens simply expire.
func (p *JWTProvider) LogoutURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// signingKey returns the tenant's derived HMAC key, creating and caching it
// on first use. Derivation is SHA-256 of the configured secret.
func (p *JWTProvider) signingKey(cfg *models.TenantSSOConfig) ([]byte, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret not configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := p.keys[cfg.TenantID]; ok {
		return key, nil
	}

	sum := sha256.Sum256([]byte(cfg.JWTSecret))
	key := sum[:]
	p.keys[cfg.TenantID] = key

	return key, nil
}

func (p *JWTProvider) verify(key []byte, req *Request) (*Result, error) {
	parsed, err := jwt.Parse(req.Token,
		func(_ *jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Fail(CodeTokenExpired, "token has expired"), nil
	case err != nil:
		return Fail(CodeTokenInvalid, "token rejected: "+err.Error()), nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Fail(CodeTokenInvalid, "unexpected claim format"), nil
	}

	username, _ := claims["username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}

	if username == "" {
		return Fail(CodeTokenInvalid, "token carries no username"), nil
	}

	res := Succeed(username, username)
	res.Email, _ = claims["email"].(string)
	res.FullName, _ = claims["name"].(string)

	for k, v := range claims {
		switch k {
		case "username", "sub", "email", "name", "exp", "iat", "nbf":
		default:
			res.AdditionalData[k] = v
		}
	}

	return res, nil
}

func (p *JWTProvider) mint(key []byte, cfg *models.TenantSSOConfig, req *Request) (*Result, error) {
	if req.Username == "" {
		return Fail(CodeInvalidCredentials, "username required to issue a token"), nil
	}

	expiry := cfg.JWTExpirySeconds
	if expiry <= 0 {
		expiry = defaultJWTExpirySeconds
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"username": req.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(time.Duration(expiry) * time.Second).Unix(),
	}

	for k, v := range req.Extra {
		if _, reserved := claims[k]; !reserved {
			claims[k] = v
		}
	}

	if agent := req.Extra["agentId"]; agent != "" {
		claims["agentId"] = agent
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	res := Succeed(req.Username, req.Username)
	res.AdditionalData["token"] = signed

	return res, nil
}
