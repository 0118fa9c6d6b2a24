package sso

import (
	"context"
	"fmt"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

// Provider is the capability every protocol adapter implements.
//
// Authenticate returns a Result for every credential-class outcome, good or
// bad. It returns a *ConnectionError only for connectivity-class failures,
// so the caller can decide about fallback. Providers are stateless with
// respect to tenants; the configuration is passed per call.
type Provider interface {
	// Authenticate verifies one login attempt against the backend.
	Authenticate(ctx context.Context, cfg *models.TenantSSOConfig, req *Request) (*Result, error)
	// LoginURL builds the backend's interactive login URL for a callback.
	LoginURL(cfg *models.TenantSSOConfig, callback string) string
	// LogoutURL builds the backend's logout URL for a callback.
	LogoutURL(cfg *models.TenantSSOConfig, callback string) string
	// Type reports the SSO type this adapter serves.
	Type() models.SSOType
}

// Registry resolves a tenant's configured SSO type to the adapter instance
// registered for it. It is populated once at startup and read-only after.
type Registry struct {
	providers map[models.SSOType]Provider
}

// NewRegistry builds a registry from the given adapters, keyed by their type.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[models.SSOType]Provider, len(providers))
	for _, p := range providers {
		m[p.Type()] = p
	}

	return &Registry{providers: m}
}

// Provider returns the adapter for the given SSO type. Types without an
// adapter (INTERNAL, EXTERNAL, unset) are rejected.
func (r *Registry) Provider(t models.SSOType) (Provider, error) {
	p, ok := r.providers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSSOType, t)
	}

	return p, nil
}
