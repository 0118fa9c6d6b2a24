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

// defaultDivisionCodes maps division hints to the gateway's numeric codes
// when the tenant configures no mapping of its own.
var defaultDivisionCodes = map[string]string{ //nolint:gochecknoglobals
	"student":  "1",
	"graduate": "2",
	"faculty":  "3",
	"staff":    "4",
}

const defaultDivisionCode = "1"

// RESTTokenProvider drives a two-step token gateway: first a system access
// token is obtained with client credentials (state=create), then the user's
// credentials are verified with that token (state=verify). A non-blank
// user_info field in the verify response signals success.
type RESTTokenProvider struct{}

// NewRESTTokenProvider creates a new REST token adapter.
func NewRESTTokenProvider() *RESTTokenProvider {
	return &RESTTokenProvider{}
}

// Type reports the SSO type this adapter serves.
func (p *RESTTokenProvider) Type() models.SSOType {
	return models.SSOTypeRESTToken
}

// Authenticate runs the create/verify flow against the tenant's gateway.
func (p *RESTTokenProvider) Authenticate(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	if cfg.RESTEndpoint == "" || cfg.ClientID == "" {
		return Fail(CodeConfigError, "REST endpoint or client id not configured"), nil
	}

	client := httpClient(cfg)

	systemToken, errResult, err := p.createSystemToken(ctx, client, cfg)
	if err != nil || errResult != nil {
		return errResult, err
	}

	return p.verifyCredentials(ctx, client, cfg, req, systemToken)
}

// LoginURL is empty: the gateway has no interactive login page.
func (p *RESTTokenProvider) LoginURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// LogoutURL is empty: system tokens are short-lived.
func (p *RESTTokenProvider) LogoutURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// createSystemToken performs the state=create call and extracts the
// short-lived system access token.
func (p *RESTTokenProvider) createSystemToken(
	ctx context.Context,
	client *http.Client,
	cfg *models.TenantSSOConfig,
) (string, *Result, error) {
	form := url.Values{
		"state":         {"create"},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}

	body, connErr := p.postForm(ctx, client, cfg.RESTEndpoint, form, "system token request")
	if connErr != nil {
		return "", nil, connErr
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", Fail(CodeLoginFailed, "unparseable system token response"), nil
	}

	token := stringField(payload, "access_token")
	if token == "" {
		token = stringField(payload, "token")
	}

	if token == "" {
		return "", Fail(CodeLoginFailed, "gateway returned no system token"), nil
	}

	return token, nil, nil
}

// verifyCredentials performs the state=verify call. Success is signalled by
// a non-blank user_info field; a present-but-empty one is a normal failure.
func (p *RESTTokenProvider) verifyCredentials(
	ctx context.Context,
	client *http.Client,
	cfg *models.TenantSSOConfig,
	req *Request,
	systemToken string,
) (*Result, error) {
	mobile := "N"
	if req.Mobile {
		mobile = "Y"
	}

	form := url.Values{
		"state":         {"verify"},
		"token":         {systemToken},
		"username":      {req.Username},
		"password":      {req.Password},
		"mobile_yn":     {mobile},
		"user_division": {p.divisionCode(cfg, req)},
	}

	body, connErr := p.postForm(ctx, client, cfg.RESTEndpoint, form, "credential verify request")
	if connErr != nil {
		return nil, connErr
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Fail(CodeLoginFailed, "unparseable verify response"), nil
	}

	info, ok := userInfo(payload)
	if !ok {
		return Fail(CodeLoginFailed, "gateway reported authentication failure"), nil
	}

	externalID := stringField(info, "user_id")
	if externalID == "" {
		externalID = req.Username
	}

	res := Succeed(externalID, req.Username)
	res.Email = stringField(info, "email")
	res.FullName = stringField(info, "name")

	for k, v := range info {
		switch k {
		case "user_id", "email", "name":
		default:
			res.AdditionalData[k] = v
		}
	}

	return res, nil
}

// postForm posts the form and returns the body. 5xx responses and transport
// failures come back as connection errors so the caller can fall back.
func (p *RESTTokenProvider) postForm(
	ctx context.Context,
	client *http.Client,
	endpoint string,
	form url.Values,
	what string,
) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ConfigError("invalid REST endpoint: " + err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(what+" failed", err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close gateway response body")
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, ServerError(resp.StatusCode, what+" hit a gateway server error")
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, classifyTransport("failed to read gateway response", err)
	}

	return body, nil
}

// divisionCode resolves the tenant's user-division code, preferring the
// configured mapping over the built-in defaults.
func (p *RESTTokenProvider) divisionCode(cfg *models.TenantSSOConfig, req *Request) string {
	division := strings.ToLower(req.UserDivision)

	if mapped, ok := cfg.DivisionMapping()[division]; ok {
		return mapped
	}

	if mapped, ok := defaultDivisionCodes[division]; ok {
		return mapped
	}

	return defaultDivisionCode
}

// userInfo extracts a usable user_info payload. The gateways disagree about
// the field's shape: some return a JSON object, some a JSON-encoded string.
// A missing or blank field means the login failed.
func userInfo(payload map[string]interface{}) (map[string]interface{}, bool) {
	switch v := payload["user_info"].(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, false
		}

		return v, true
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}

		info := map[string]interface{}{}
		if err := json.Unmarshal([]byte(v), &info); err != nil {
			// A non-JSON string still proves the gateway accepted the login.
			return map[string]interface{}{"user_info": v}, true
		}

		return info, true
	default:
		return nil, false
	}
}

// stringField returns a string entry from a generic JSON object.
func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}
