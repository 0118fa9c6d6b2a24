package sso

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

// CASProvider validates a pre-obtained CAS ticket against the tenant's CAS
// server. The caller must have completed the interactive CAS login and put
// the ticket into Request.Token.
type CASProvider struct{}

// NewCASProvider creates a new CAS adapter.
func NewCASProvider() *CASProvider {
	return &CASProvider{}
}

// Type reports the SSO type this adapter serves.
func (p *CASProvider) Type() models.SSOType {
	return models.SSOTypeCAS
}

// Authenticate validates the CAS ticket with the configured validate
// endpoint and maps the XML response onto a Result.
func (p *CASProvider) Authenticate(
	ctx context.Context,
	cfg *models.TenantSSOConfig,
	req *Request,
) (*Result, error) {
	if req.Token == "" {
		return Fail(CodeTokenInvalid, "missing CAS ticket"), nil
	}

	if cfg.ServerURL == "" || cfg.CASValidateEndpoint == "" || cfg.CASServiceURL == "" {
		return Fail(CodeConfigError, "CAS server, validate endpoint or service URL not configured"), nil
	}

	validateURL := fmt.Sprintf("%s%s?ticket=%s&service=%s",
		strings.TrimRight(cfg.ServerURL, "/"),
		cfg.CASValidateEndpoint,
		url.QueryEscape(req.Token),
		url.QueryEscape(cfg.CASServiceURL),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURL, nil)
	if err != nil {
		return Fail(CodeConfigError, "invalid CAS validate URL: "+err.Error()), nil
	}

	resp, err := httpClient(cfg).Do(httpReq)
	if err != nil {
		return nil, classifyTransport("CAS ticket validation failed", err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close CAS response body")
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, ServerError(resp.StatusCode, "CAS server error")
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, classifyTransport("failed to read CAS response", err)
	}

	validation, err := parseCASResponse(body)
	if err != nil {
		return Fail(CodeTokenInvalid, "unparseable CAS response: "+err.Error()), nil
	}

	if !validation.success {
		return Fail(mapCASFailureCode(validation.failureCode), validation.failureMessage), nil
	}

	res := Succeed(validation.user, validation.user)
	res.Email = firstAttr(validation.attributes, "email", "mail")
	res.FullName = firstAttr(validation.attributes, "displayName", "cn", "name")

	for k, v := range validation.attributes {
		res.AdditionalData[k] = v
	}

	return res, nil
}

// LoginURL builds the CAS interactive login URL.
func (p *CASProvider) LoginURL(cfg *models.TenantSSOConfig, callback string) string {
	return strings.TrimRight(cfg.ServerURL, "/") + "/login?service=" + url.QueryEscape(callback)
}

// LogoutURL builds the CAS logout URL.
func (p *CASProvider) LogoutURL(cfg *models.TenantSSOConfig, callback string) string {
	return strings.TrimRight(cfg.ServerURL, "/") + "/logout?service=" + url.QueryEscape(callback)
}

// mapCASFailureCode maps CAS protocol failure codes onto result codes.
func mapCASFailureCode(code string) string {
	switch code {
	case "INVALID_TICKET":
		return CodeTokenInvalid
	case "INVALID_SERVICE":
		return CodeUnauthorized
	default:
		return CodeTokenInvalid
	}
}

// firstAttr returns the first non-empty value among the given keys.
func firstAttr(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := attrs[k]; v != "" {
			return v
		}
	}

	return ""
}

// casValidation is the flattened outcome of one serviceValidate response.
type casValidation struct {
	success        bool
	user           string
	attributes     map[string]string
	failureCode    string
	failureMessage string
}

var errCASNoOutcome = errors.New("response contains neither authenticationSuccess nor authenticationFailure")

// parseCASResponse walks the validate response XML by local element names so
// that any namespace prefix (cas:, saml:, none) is accepted. The decoder
// rejects DOCTYPE declarations and resolves no entities, so external entity
// injection cannot reach the broker.
func parseCASResponse(data []byte) (*casValidation, error) { //nolint:funlen
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = map[string]string{}

	out := &casValidation{attributes: map[string]string{}}

	var (
		inSuccess    bool
		inAttributes bool
		sawOutcome   bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("malformed XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.Directive:
			if bytes.HasPrefix(bytes.TrimSpace(t), []byte("DOCTYPE")) {
				return nil, errors.New("DOCTYPE declarations are not allowed")
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "authenticationSuccess":
				inSuccess = true
				sawOutcome = true
				out.success = true
			case "authenticationFailure":
				sawOutcome = true

				for _, a := range t.Attr {
					if a.Name.Local == "code" {
						out.failureCode = a.Value
					}
				}

				var msg string
				if err := dec.DecodeElement(&msg, &t); err != nil {
					return nil, fmt.Errorf("malformed failure element: %w", err)
				}

				out.failureMessage = strings.TrimSpace(msg)
			case "user":
				if inSuccess {
					var user string
					if err := dec.DecodeElement(&user, &t); err != nil {
						return nil, fmt.Errorf("malformed user element: %w", err)
					}

					out.user = strings.TrimSpace(user)
				}
			case "attributes":
				if inSuccess {
					inAttributes = true
				}
			default:
				if inAttributes {
					var value string
					if err := dec.DecodeElement(&value, &t); err != nil {
						return nil, fmt.Errorf("malformed attribute element: %w", err)
					}

					out.attributes[t.Name.Local] = strings.TrimSpace(value)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "authenticationSuccess":
				inSuccess = false
			case "attributes":
				inAttributes = false
			}
		}
	}

	if !sawOutcome {
		return nil, errCASNoOutcome
	}

	return out, nil
}
