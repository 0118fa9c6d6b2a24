package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ssobridge/ssobridge/internal/config"
	"github.com/ssobridge/ssobridge/internal/db/models"
	"github.com/ssobridge/ssobridge/internal/sso"
	"github.com/ssobridge/ssobridge/internal/token"
)

const testTenantID = "11111111-1111-1111-1111-111111111111"

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.TenantSSOConfig{},
		&models.ExternalUserMapping{},
		&models.UserProfile{},
	))

	require.NoError(t, db.Create(&models.Tenant{
		ID:      testTenantID,
		Name:    "test",
		Enabled: true,
	}).Error)

	authService := sso.NewService(db, sso.NewRegistry(), token.New("handler-test-secret", 0, 0))

	app := fiber.New()

	cfg := &config.Config{}
	require.NoError(t, Handler.Init(app, cfg, authService))

	return app, db
}

func seedUser(t *testing.T, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	user := models.User{
		TenantID: testTenantID,
		Username: username,
		Password: models.HashPassword(password),
		Email:    username + "@example.com",
		FullName: "Test " + username,
		Status:   models.UserStatusActive,
		Enabled:  true,
	}
	require.NoError(t, db.Create(&user).Error)

	return &user
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestLoginHandler_Success(t *testing.T) {
	app, db := newTestApp(t)
	seedUser(t, db, "jdoe", "secret")

	resp := postJSON(t, app, Path+"/login", map[string]string{
		"tenantId": testTenantID,
		"username": "jdoe",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out loginResponse
	decode(t, resp, &out)

	assert.Equal(t, "jdoe", out.User.Username)
	assert.Equal(t, testTenantID, out.User.TenantID)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, string(models.SSOTypeInternal), out.SSOType)
	assert.False(t, out.Fallback)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	app, db := newTestApp(t)
	seedUser(t, db, "jdoe", "secret")

	resp := postJSON(t, app, Path+"/login", map[string]string{
		"tenantId": testTenantID,
		"username": "jdoe",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var out errorResponse
	decode(t, resp, &out)
	assert.Equal(t, sso.CodeInvalidCredentials, out.Error)
}

func TestLoginHandler_MissingTenant(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, Path+"/login", map[string]string{
		"username": "jdoe",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	decode(t, resp, &out)
	assert.Equal(t, "INVALID_REQUEST", out.Error)
}

func TestLoginHandler_UnparseableBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodPost, Path+"/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLoginHandler_UnknownTenant(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, Path+"/login", map[string]string{
		"tenantId": "00000000-0000-0000-0000-000000000000",
		"username": "jdoe",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var out errorResponse
	decode(t, resp, &out)
	assert.Equal(t, "TENANT_DISABLED", out.Error)
}

func TestLogoutHandler(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, Path+"/logout", map[string]string{
		"tenantId": testTenantID,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out logoutResponse
	decode(t, resp, &out)
	assert.Empty(t, out.LogoutURL)
}

func TestRefreshHandler(t *testing.T) {
	app, db := newTestApp(t)
	seedUser(t, db, "jdoe", "secret")

	loginResp := postJSON(t, app, Path+"/login", map[string]string{
		"tenantId": testTenantID,
		"username": "jdoe",
		"password": "secret",
	})

	var login loginResponse
	decode(t, loginResp, &login)

	resp := postJSON(t, app, Path+"/refresh", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var refreshed loginResponse
	decode(t, resp, &refreshed)
	assert.Equal(t, "jdoe", refreshed.User.Username)
	assert.NotEmpty(t, refreshed.AccessToken)

	// access tokens are rejected for rotation
	resp = postJSON(t, app, Path+"/refresh", map[string]string{
		"refreshToken": login.AccessToken,
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestValidateHandler(t *testing.T) {
	app, db := newTestApp(t)
	seedUser(t, db, "jdoe", "secret")

	loginResp := postJSON(t, app, Path+"/login", map[string]string{
		"tenantId": testTenantID,
		"username": "jdoe",
		"password": "secret",
	})

	var login loginResponse
	decode(t, loginResp, &login)

	resp := postJSON(t, app, Path+"/validate", map[string]string{
		"accessToken": login.AccessToken,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out validateResponse
	decode(t, resp, &out)
	assert.True(t, out.Valid)
	assert.Equal(t, "jdoe", out.Username)
	assert.Equal(t, testTenantID, out.TenantID)

	// garbage token
	resp = postJSON(t, app, Path+"/validate", map[string]string{
		"accessToken": "not-a-token",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var bad validateResponse
	decode(t, resp, &bad)
	assert.False(t, bad.Valid)
}
