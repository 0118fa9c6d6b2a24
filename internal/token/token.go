// Package token issues and validates the signed session tokens handed out
// after a successful login. Access tokens carry the identity claims; refresh
// tokens only carry enough to re-issue a pair.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

const (
	// DefaultAccessTTL is used when the configuration does not set one.
	DefaultAccessTTL = 30 * time.Minute

	// DefaultRefreshTTL is used when the configuration does not set one.
	DefaultRefreshTTL = 14 * 24 * time.Hour

	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// ErrInvalidToken covers every way a presented token can be unusable:
// bad signature, wrong use, expiry, malformed claims.
var ErrInvalidToken = errors.New("invalid token")

// Pair is the access/refresh token pair returned to a client.
type Pair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Claims is the decoded identity carried by an access token.
type Claims struct {
	UserID   uint64   `json:"uid"`
	TenantID string   `json:"tenant"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	Use      string   `json:"use"`

	jwt.RegisteredClaims
}

// Service signs and verifies token pairs with a single HMAC key.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New creates a token service. Zero TTLs fall back to the defaults.
func New(secret string, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}

	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}

	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue signs a fresh access/refresh pair for the given user.
func (s *Service) Issue(user *models.User) (*Pair, error) {
	now := time.Now()
	accessExpiry := now.Add(s.accessTTL)

	access, err := s.sign(&Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Username: user.Username,
		Roles:    user.RoleNames(),
		Use:      tokenUseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	})
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(&Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Username: user.Username,
		Use:      tokenUseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExpiry,
	}, nil
}

// Validate parses an access token and returns its claims.
func (s *Service) Validate(raw string) (*Claims, error) {
	return s.parse(raw, tokenUseAccess)
}

// ValidateRefresh parses a refresh token and returns its claims.
func (s *Service) ValidateRefresh(raw string) (*Claims, error) {
	return s.parse(raw, tokenUseRefresh)
}

func (s *Service) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

func (s *Service) parse(raw, use string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	if claims.Use != use {
		return nil, errors.Wrapf(ErrInvalidToken, "token is not a %s token", use)
	}

	return claims, nil
}
