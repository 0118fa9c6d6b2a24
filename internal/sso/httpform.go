package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

// HTTPFormProvider probes a legacy confirm endpoint with a single GET
// carrying the credentials as query parameters. The endpoint answers either
// with JSON or with a bare Y/success text body.
type HTTPFormProvider struct{}

// NewHTTPFormProvider creates a new HTTP form adapter.
func NewHTTPFormProvider() *HTTPFormProvider {
	return &HTTPFormProvider{}
}

// Type reports the SSO type this adapter serves.
func (p *HTTPFormProvider) Type() models.SSOType {
	return models.SSOTypeHTTPForm
}

// Authenticate issues the confirm GET and interprets the response.
func (p *HTTPFormProvider) Authenticate(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	if cfg.FormConfirmURL == "" {
		return Fail(CodeConfigError, "form confirm URL not configured"), nil
	}

	idParam := cfg.FormIDParam
	if idParam == "" {
		idParam = "id"
	}

	passwordParam := cfg.FormPasswordParam
	if passwordParam == "" {
		passwordParam = "pw"
	}

	password := req.Password
	if cfg.FormEncodePassword {
		// Some gateways decode the parameter twice.
		password = url.QueryEscape(password)
	}

	query := url.Values{
		idParam:       {req.Username},
		passwordParam: {password},
	}

	confirmURL := cfg.FormConfirmURL
	if strings.Contains(confirmURL, "?") {
		confirmURL += "&" + query.Encode()
	} else {
		confirmURL += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, confirmURL, nil)
	if err != nil {
		return Fail(CodeConfigError, "invalid confirm URL: "+err.Error()), nil
	}

	resp, err := httpClient(cfg).Do(httpReq)
	if err != nil {
		return nil, classifyTransport("confirm request failed", err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close confirm response body")
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, ServerError(resp.StatusCode, "confirm endpoint server error")
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, classifyTransport("failed to read confirm response", err)
	}

	if !confirmAccepted(body) {
		return Fail(CodeLoginFailed, "confirm endpoint rejected the credentials"), nil
	}

	return Succeed(req.Username, req.Username), nil
}

// LoginURL is empty: the form gateway has no broker-driven login page.
func (p *HTTPFormProvider) LoginURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// LogoutURL is empty: the form gateway keeps no session.
func (p *HTTPFormProvider) LogoutURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// confirmAccepted interprets the confirm response. JSON bodies are checked
// for result/status values or the presence of a truthy success key; plain
// text bodies must be Y or success, case-insensitive.
func confirmAccepted(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return false
	}

	if strings.HasPrefix(trimmed, "{") {
		payload := map[string]interface{}{}
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return false
		}

		if truthy(payload["result"]) || truthy(payload["status"]) {
			return true
		}

		if v, present := payload["success"]; present {
			return truthy(v)
		}

		return false
	}

	return truthy(trimmed)
}

// truthy accepts Y, success, and true in any casing, plus boolean true.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "y", "success", "true":
			return true
		}
	}

	return false
}
