package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SSOType identifies which authentication backend a tenant uses.
type SSOType string

const (
	// SSOTypeInternal authenticates against the local credential store.
	SSOTypeInternal SSOType = "INTERNAL"
	// SSOTypeRelay delegates authentication to a federated relay service.
	SSOTypeRelay SSOType = "RELAY"
	// SSOTypeKeycloak authenticates against a Keycloak realm.
	SSOTypeKeycloak SSOType = "KEYCLOAK"
	// SSOTypeLDAP authenticates against an LDAP directory.
	SSOTypeLDAP SSOType = "LDAP"
	// SSOTypeCAS validates a CAS ticket against a CAS server.
	SSOTypeCAS SSOType = "CAS"
	// SSOTypeJWT verifies or mints HMAC-signed tokens with a shared tenant secret.
	SSOTypeJWT SSOType = "JWT_SSO"
	// SSOTypeRESTToken authenticates through a two-step REST token gateway.
	SSOTypeRESTToken SSOType = "REST_TOKEN"
	// SSOTypeHTTPForm authenticates through a legacy HTTP form-confirm endpoint.
	SSOTypeHTTPForm SSOType = "HTTP_FORM"
	// SSOTypeExternal is a legacy marker for unspecified external backends.
	// No adapter exists for it; it is rejected at dispatch time.
	SSOTypeExternal SSOType = "EXTERNAL"
)

// TenantSSOConfig holds one tenant's SSO settings. It is loaded fresh for
// every authentication attempt and treated as immutable for the duration of
// the request. A tenant without a row behaves as INTERNAL with SSO enabled
// and synchronization disabled.
type TenantSSOConfig struct {
	// ID is the unique identifier for the configuration row.
	ID uint64 `gorm:"primaryKey"`
	// TenantID is the owning tenant; exactly one configuration per tenant.
	TenantID string `gorm:"size:36;not null;uniqueIndex"`
	// SSOType selects the authentication backend.
	SSOType SSOType `gorm:"type:varchar(20);not null;default:'INTERNAL'"`
	// SSOEnabled disables external authentication entirely when false.
	SSOEnabled bool

	// ServerURL is the backend base URL (CAS server, Keycloak server,
	// HTTP-form host).
	ServerURL string `gorm:"size:500"`
	// Realm is the Keycloak realm name.
	Realm string `gorm:"size:100"`
	// ClientID is the OAuth2/REST client identifier.
	ClientID string `gorm:"size:255"`
	// ClientSecret is the OAuth2/REST client secret.
	ClientSecret string `gorm:"size:255"`

	// JWTSecret is the shared secret the per-tenant HMAC signing key is
	// derived from (JWT_SSO only).
	JWTSecret string `gorm:"size:255"`
	// JWTExpirySeconds is the lifetime of minted tokens; 0 means 3600.
	JWTExpirySeconds int

	// CASValidateEndpoint is the ticket validation path, e.g. "/serviceValidate".
	CASValidateEndpoint string `gorm:"size:255"`
	// CASServiceURL is the service URL registered with the CAS server.
	CASServiceURL string `gorm:"size:500"`

	// RESTEndpoint is the REST token gateway URL (REST_TOKEN only).
	RESTEndpoint string `gorm:"size:500"`

	// FormConfirmURL is the confirm endpoint of the HTTP form gateway.
	FormConfirmURL string `gorm:"size:500"`
	// FormIDParam is the query parameter carrying the username; default "id".
	FormIDParam string `gorm:"size:50"`
	// FormPasswordParam is the query parameter carrying the password; default "pw".
	FormPasswordParam string `gorm:"size:50"`
	// FormEncodePassword pre-URL-encodes the password value when true.
	FormEncodePassword bool

	// RelayEndpoint is the federated relay service endpoint (RELAY only).
	RelayEndpoint string `gorm:"size:500"`

	// ReadTimeoutMs bounds every outbound read; 0 means 5000.
	ReadTimeoutMs int

	// FallbackEnabled permits local re-authentication when the backend is
	// unreachable.
	FallbackEnabled bool
	// FallbackPasswordRequired requires a local password check during fallback.
	FallbackPasswordRequired bool

	// SyncEnabled creates/updates local users from external results.
	SyncEnabled bool
	// RoleMappingEnabled replaces the user's roles from external role names.
	RoleMappingEnabled bool

	// UserDivisionMapping maps division hints to backend division codes
	// (REST_TOKEN only). JSON object of string to string.
	UserDivisionMapping datatypes.JSON
	// AdditionalConfig holds free-form backend settings: "responseMapping",
	// "customFields", and protocol extras such as "ldap_url" and "base_dn".
	AdditionalConfig datatypes.JSON

	// CreatedAt is the timestamp when the configuration was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the configuration was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the TenantSSOConfig model.
func (TenantSSOConfig) TableName() string {
	return "tenant_sso_configs"
}

const defaultReadTimeoutMs = 5000

// ReadTimeout returns the configured read timeout with the 5s default applied.
func (c *TenantSSOConfig) ReadTimeout() time.Duration {
	ms := c.ReadTimeoutMs
	if ms <= 0 {
		ms = defaultReadTimeoutMs
	}

	return time.Duration(ms) * time.Millisecond
}

// Additional decodes AdditionalConfig into a generic map. Malformed or
// absent configuration yields an empty map, never an error.
func (c *TenantSSOConfig) Additional() map[string]interface{} {
	out := map[string]interface{}{}
	if len(c.AdditionalConfig) == 0 {
		return out
	}

	if err := json.Unmarshal(c.AdditionalConfig, &out); err != nil {
		return map[string]interface{}{}
	}

	return out
}

// AdditionalString returns a string entry from AdditionalConfig, or "" when
// absent or not a string.
func (c *TenantSSOConfig) AdditionalString(key string) string {
	v, _ := c.Additional()[key].(string)
	return v
}

// DivisionMapping decodes UserDivisionMapping. Malformed or absent
// configuration yields an empty map.
func (c *TenantSSOConfig) DivisionMapping() map[string]string {
	out := map[string]string{}
	if len(c.UserDivisionMapping) == 0 {
		return out
	}

	if err := json.Unmarshal(c.UserDivisionMapping, &out); err != nil {
		return map[string]string{}
	}

	return out
}
