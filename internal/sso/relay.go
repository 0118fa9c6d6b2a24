package sso

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

// RelayResponse is the federated relay service's answer to an
// authentication request.
type RelayResponse struct {
	Success        bool                   `json:"success"`
	UserID         string                 `json:"userId"`
	Username       string                 `json:"username"`
	Email          string                 `json:"email"`
	FullName       string                 `json:"fullName"`
	Roles          []string               `json:"roles"`
	Data           map[string]interface{} `json:"data"`
	ErrorCode      string                 `json:"errorCode"`
	ErrorMessage   string                 `json:"errorMessage"`
}

// RelayClient talks to a federated relay service at a tenant-configured
// endpoint. Implementations return *ConnectionError for connectivity-class
// failures so the adapter can pass the classification through.
type RelayClient interface {
	Authenticate(ctx context.Context, cfg *models.TenantSSOConfig, req *Request) (*RelayResponse, error)
}

// RelayProvider delegates authentication to a federated relay service and
// maps its response straight onto a Result.
type RelayProvider struct {
	client RelayClient
}

// NewRelayProvider creates a new relay adapter around the given client.
func NewRelayProvider(client RelayClient) *RelayProvider {
	return &RelayProvider{client: client}
}

// Type reports the SSO type this adapter serves.
func (p *RelayProvider) Type() models.SSOType {
	return models.SSOTypeRelay
}

// Authenticate forwards the attempt to the relay service.
func (p *RelayProvider) Authenticate(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	if cfg.RelayEndpoint == "" {
		return Fail(CodeConfigError, "relay endpoint not configured"), nil
	}

	resp, err := p.client.Authenticate(ctx, cfg, req)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, connErr
		}

		return nil, classifyTransport("relay authentication failed", err)
	}

	if !resp.Success {
		code := resp.ErrorCode
		if code == "" {
			code = CodeLoginFailed
		}

		return Fail(code, resp.ErrorMessage), nil
	}

	externalID := resp.UserID
	if externalID == "" {
		externalID = resp.Username
	}

	username := resp.Username
	if username == "" {
		username = req.Username
	}

	res := Succeed(externalID, username)
	res.Email = resp.Email
	res.FullName = resp.FullName
	res.Roles = resp.Roles

	for k, v := range resp.Data {
		res.AdditionalData[k] = v
	}

	return res, nil
}

// LoginURL points at the relay endpoint's login page.
func (p *RelayProvider) LoginURL(cfg *models.TenantSSOConfig, _ string) string {
	return cfg.RelayEndpoint
}

// LogoutURL is empty: sessions live at the relay.
func (p *RelayProvider) LogoutURL(_ *models.TenantSSOConfig, _ string) string {
	return ""
}

// HTTPRelayClient is the default RelayClient: one JSON POST per attempt.
type HTTPRelayClient struct{}

// NewHTTPRelayClient creates the default HTTP relay client.
func NewHTTPRelayClient() *HTTPRelayClient {
	return &HTTPRelayClient{}
}

// Authenticate posts the attempt to the tenant's relay endpoint.
func (c *HTTPRelayClient) Authenticate(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*RelayResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"tenantId": req.TenantID,
		"username": req.Username,
		"password": req.Password,
		"token":    req.Token,
		"extra":    req.Extra,
	})
	if err != nil {
		return nil, NetworkError("failed to encode relay request", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, cfg.RelayEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, ConfigError("invalid relay endpoint: " + err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(cfg).Do(httpReq)
	if err != nil {
		return nil, classifyTransport("relay request failed", err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close relay response body")
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, ServerError(resp.StatusCode, "relay server error")
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, classifyTransport("failed to read relay response", err)
	}

	out := &RelayResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, NetworkError("unparseable relay response", err)
	}

	return out, nil
}
