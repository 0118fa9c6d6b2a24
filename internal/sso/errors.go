package sso

import "errors"

var (
	// ErrUnsupportedSSOType is returned when a tenant's configured SSO type
	// has no registered adapter.
	ErrUnsupportedSSOType = errors.New("unsupported sso type")

	// ErrInvalidCredentials is returned for failed local password checks
	// and unknown users. Deliberately indistinguishable from the outside.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountLocked is returned when the account is locked.
	ErrAccountLocked = errors.New("account is locked")

	// ErrAccountDisabled is returned when the account is disabled, deleted
	// or suspended.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrTenantDisabled is returned when the tenant itself does not accept
	// logins.
	ErrTenantDisabled = errors.New("tenant is disabled")
)

// AuthError carries a provider failure result across the orchestrator
// boundary as an error with its original code and message.
type AuthError struct {
	// Code is the provider's failure code, e.g. "TOKEN_INVALID".
	Code string
	// Message is the provider's failure description.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Message == "" {
		return e.Code
	}

	return e.Code + ": " + e.Message
}
