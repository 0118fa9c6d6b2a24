package sso

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssobridge/ssobridge/internal/db/models"
)

func keycloakConfig(serverURL string) *models.TenantSSOConfig {
	return &models.TenantSSOConfig{
		TenantID:     testTenantID,
		SSOType:      models.SSOTypeKeycloak,
		ServerURL:    serverURL,
		Realm:        "campus",
		ClientID:     "broker",
		ClientSecret: "broker-secret",
	}
}

// fakeAccessToken builds a structurally valid JWT with the given claims and
// a junk signature. The adapter decodes the payload without verification.
func fakeAccessToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))

	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to encode claims: %v", err)
	}

	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2ln"
}

func TestKeycloakAuthenticate_Success(t *testing.T) {
	var accessToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/campus/protocol/openid-connect/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		_ = r.ParseForm()

		if r.PostFormValue("grant_type") != "password" {
			t.Errorf("grant_type = %q", r.PostFormValue("grant_type"))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	}))
	defer srv.Close()

	accessToken = fakeAccessToken(t, map[string]interface{}{
		"sub":                "f0e1d2c3",
		"preferred_username": "jdoe",
		"email":              "jdoe@example.com",
		"name":               "Jane Doe",
		"realm_access":       map[string]interface{}{"roles": []interface{}{"student", "library"}},
		"department":         "Physics",
	})

	p := NewKeycloakProvider()

	res, err := p.Authenticate(context.Background(), keycloakConfig(srv.URL), &Request{
		Username: "jdoe",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.ErrorCode, res.ErrorMessage)
	}

	if res.ExternalUserID != "f0e1d2c3" || res.Username != "jdoe" {
		t.Errorf("identity = %q / %q", res.ExternalUserID, res.Username)
	}

	if len(res.Roles) != 2 || res.Roles[0] != "student" {
		t.Errorf("Roles = %v", res.Roles)
	}

	if res.AdditionalData["department"] != "Physics" {
		t.Errorf("department = %v", res.AdditionalData["department"])
	}
}

func TestKeycloakAuthenticate_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid user credentials",
		})
	}))
	defer srv.Close()

	p := NewKeycloakProvider()

	res, err := p.Authenticate(context.Background(), keycloakConfig(srv.URL), &Request{
		Username: "jdoe",
		Password: "wrong",
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if res.Success || res.ErrorCode != CodeInvalidCredentials {
		t.Errorf("expected INVALID_CREDENTIALS, got %+v", res)
	}

	if res.ErrorMessage != "Invalid user credentials" {
		t.Errorf("ErrorMessage = %q", res.ErrorMessage)
	}
}

func TestKeycloakAuthenticate_ServerErrorIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewKeycloakProvider()

	_, err := p.Authenticate(context.Background(), keycloakConfig(srv.URL), &Request{
		Username: "jdoe",
		Password: "secret",
	})

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}

	if connErr.Class != FailureServer {
		t.Errorf("Class = %s, want SERVER_ERROR", connErr.Class)
	}
}

func TestKeycloakAuthenticate_MissingConfig(t *testing.T) {
	p := NewKeycloakProvider()

	res, err := p.Authenticate(context.Background(), &models.TenantSSOConfig{
		TenantID: testTenantID,
	}, &Request{Username: "jdoe"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if res.Success || res.ErrorCode != CodeConfigError {
		t.Errorf("expected CONFIG_ERROR, got %+v", res)
	}
}

func TestKeycloakURLs(t *testing.T) {
	p := NewKeycloakProvider()
	cfg := keycloakConfig("https://kc.example.com/")

	login := p.LoginURL(cfg, "https://app.example.com/cb")
	want := "https://kc.example.com/realms/campus/protocol/openid-connect/auth" +
		"?client_id=broker&redirect_uri=https%3A%2F%2Fapp.example.com%2Fcb&response_type=code"

	if login != want {
		t.Errorf("LoginURL = %q, want %q", login, want)
	}
}

func TestDecodeTokenPayload_RejectsNonJWT(t *testing.T) {
	if _, err := decodeTokenPayload("not-a-jwt"); err == nil {
		t.Fatal("expected error for a non-JWT token")
	}
}
