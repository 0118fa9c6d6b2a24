package auth

import (
	"time"
)

// loginRequest is the JSON body of POST /api/v1/auth/login.
type loginRequest struct {
	TenantID     string            `json:"tenantId" validate:"required"`
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	Token        string            `json:"token"`
	Mobile       bool              `json:"mobile"`
	UserDivision string            `json:"userDivision"`
	Extra        map[string]string `json:"extra"`
}

// logoutRequest is the JSON body of POST /api/v1/auth/logout.
type logoutRequest struct {
	TenantID string `json:"tenantId" validate:"required"`
	Callback string `json:"callback"`
}

// refreshRequest is the JSON body of POST /api/v1/auth/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// validateRequest is the JSON body of POST /api/v1/auth/validate.
type validateRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
}

// userResponse is the resolved user as returned to clients.
type userResponse struct {
	ID       uint64   `json:"id"`
	TenantID string   `json:"tenantId"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

// loginResponse is the JSON answer to a successful login.
type loginResponse struct {
	User         userResponse           `json:"user"`
	AccessToken  string                 `json:"accessToken"`
	RefreshToken string                 `json:"refreshToken"`
	ExpiresAt    time.Time              `json:"expiresAt"`
	SSOType      string                 `json:"ssoType"`
	Fallback     bool                   `json:"fallback"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

// logoutResponse carries the backend's logout URL when one exists.
type logoutResponse struct {
	LogoutURL string `json:"logoutUrl,omitempty"`
}

// validateResponse is the JSON answer to a token validation.
type validateResponse struct {
	Valid    bool     `json:"valid"`
	UserID   uint64   `json:"userId,omitempty"`
	TenantID string   `json:"tenantId,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
