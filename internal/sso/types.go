package sso

// Request carries one authentication attempt against a tenant's backend.
// It is transient; one instance per attempt.
type Request struct {
	// TenantID selects the tenant configuration.
	TenantID string
	// Username is the login name presented by the caller.
	Username string
	// Password is the plaintext credential, empty for ticket-based flows.
	Password string
	// IPAddress is the caller's address, recorded for auditing.
	IPAddress string
	// Token is a pre-obtained backend token, e.g. a CAS ticket or a JWT.
	Token string
	// Extra holds caller-supplied parameters forwarded to the backend.
	Extra map[string]string
	// Mobile marks attempts from mobile clients (REST_TOKEN gateways care).
	Mobile bool
	// UserDivision is a tenant-specific division hint (REST_TOKEN gateways).
	UserDivision string
}

// Result is the normalized outcome of one authentication attempt. Exactly
// one branch is populated: a success carries the external identity fields,
// a failure carries an error code and message. AdditionalData is never nil
// on success.
type Result struct {
	// Success indicates which branch of the result is populated.
	Success bool

	// ExternalUserID is the backend's identifier for the user.
	ExternalUserID string
	// Username is the login name as confirmed by the backend.
	Username string
	// Email is the user's email address, when the backend reports one.
	Email string
	// FullName is the user's display name, when the backend reports one.
	FullName string
	// Roles are external role names reported by the backend.
	Roles []string
	// AdditionalData carries all remaining backend attributes. Keys
	// prefixed with "_" are broker-internal and never synchronized.
	AdditionalData map[string]interface{}

	// ErrorCode classifies a failure, e.g. "INVALID_CREDENTIALS".
	ErrorCode string
	// ErrorMessage is the human-readable failure description.
	ErrorMessage string
}

// Succeed builds a success result with an empty AdditionalData map.
func Succeed(externalUserID, username string) *Result {
	return &Result{
		Success:        true,
		ExternalUserID: externalUserID,
		Username:       username,
		AdditionalData: map[string]interface{}{},
	}
}

// Fail builds a failure result.
func Fail(code, message string) *Result {
	return &Result{ErrorCode: code, ErrorMessage: message}
}

// Failure result codes shared across providers.
const (
	// CodeInvalidCredentials is returned when the backend rejected the
	// supplied username/password pair.
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	// CodeUserNotFound is returned when the backend has no such user.
	CodeUserNotFound = "USER_NOT_FOUND"
	// CodeTokenInvalid is returned for malformed, unknown or rejected tokens.
	CodeTokenInvalid = "TOKEN_INVALID"
	// CodeTokenExpired is returned when a token's expiry has passed.
	CodeTokenExpired = "TOKEN_EXPIRED"
	// CodeUnauthorized is returned when the backend rejected the service
	// itself rather than the credentials.
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeLoginFailed is returned when the backend signalled a generic
	// authentication failure.
	CodeLoginFailed = "LOGIN_FAILED"
	// CodeConfigError is returned when the tenant configuration is missing
	// or invalid. It never triggers fallback: retrying cannot fix it.
	CodeConfigError = "CONFIG_ERROR"

	// CodeFallbackUserNotFound is returned when fallback found no
	// synchronized local user. Fallback never creates users.
	CodeFallbackUserNotFound = "FALLBACK_USER_NOT_FOUND"
	// CodeFallbackAccountDisabled is returned when the local user exists
	// but is disabled or locked.
	CodeFallbackAccountDisabled = "FALLBACK_ACCOUNT_DISABLED"
	// CodeFallbackInvalidPassword is returned when the tenant requires a
	// password check during fallback and it did not match.
	CodeFallbackInvalidPassword = "FALLBACK_INVALID_PASSWORD"
	// CodeFallbackError is returned when fallback itself failed
	// unexpectedly; it is never propagated as an error.
	CodeFallbackError = "FALLBACK_ERROR"
)

// Keys the fallback decorator tags onto AdditionalData.
const (
	// FallbackKey marks a result produced by local fallback.
	FallbackKey = "_fallback"
	// FallbackReasonKey carries the connectivity failure class that
	// triggered the fallback.
	FallbackReasonKey = "_fallbackReason"
	// FallbackHTTPStatusKey carries the upstream HTTP status, when known.
	FallbackHTTPStatusKey = "_fallbackHttpStatus"
)
