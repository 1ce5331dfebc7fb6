package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensedesk/internal/account"
	"licensedesk/internal/auth"
	"licensedesk/internal/config"
	"licensedesk/internal/license"
	"licensedesk/internal/metrics"
	"licensedesk/internal/store"
)

var testToday = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "licensedesk", TTL: time.Hour},
		RateLimit: config.RateLimitConfig{
			AuthRPS: 100, AuthBurst: 100,
			CheckRPS: 100, CheckBurst: 100,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	db, err := store.Open(config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	reg := prometheus.NewRegistry()
	licenses, err := license.NewService(license.Dependencies{
		Store:    store.NewLicenseStore(db, time.Second, 2),
		Events:   store.NewAuditStore(db, time.Second),
		Clock:    license.ClockFunc(func() time.Time { return testToday }),
		Hasher:   auth.HashPassword,
		Observer: metrics.NewLicenseMetrics(reg),
	})
	require.NoError(t, err)

	return NewRouter(Deps{
		DB:       db,
		Config:   cfg,
		Licenses: licenses,
		Accounts: account.NewService(db, cfg.JWT, time.Second),
		Gatherer: reg,
	})
}

type response struct {
	Code int
	Body map[string]any
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := response{Code: rec.Code, Body: map[string]any{}}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.Body))
	}
	return out
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	res := do(t, h, http.MethodPost, "/api/signup", "", map[string]any{
		"name": "Operator", "email": "ops@example.com", "password": "secret123", "amount": "0",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)

	res = do(t, h, http.MethodPost, "/api/login", "", map[string]any{
		"email": "ops@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	tok, _ := res.Body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestRouter_LicenseLifecycle(t *testing.T) {
	h := newTestRouter(t, testConfig())
	tok := login(t, h)

	activate := map[string]any{
		"client_name": "Acme", "email": "buyer@acme.io", "client_id": "ACME-1",
		"transaction_id": "tx-1", "duration": 10,
	}
	res := do(t, h, http.MethodPost, "/api/licenses", tok, activate)
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	assert.Equal(t, "License activated for Acme.", res.Body["message"])
	lic := res.Body["license"].(map[string]any)
	assert.Equal(t, "2025-03-01", lic["last_payment"])
	assert.Equal(t, "2025-03-11", lic["valid_until"])
	assert.Equal(t, "Active", lic["status"])
	machineID := lic["machine_id"]
	assert.NotContains(t, lic, "password")

	res = do(t, h, http.MethodPost, "/api/licenses", tok, activate)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, true, res.Body["already_activated"])
	assert.Equal(t, machineID, res.Body["license"].(map[string]any)["machine_id"])

	res = do(t, h, http.MethodPost, "/api/check_license", "", map[string]any{"license_key": "ACME-1"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "License valid", res.Body["message"])
	assert.Equal(t, "2025-03-11", res.Body["expiry_date"])

	res = do(t, h, http.MethodPost, "/api/licenses/ACME-1/deactivate", tok, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "Client ACME-1 deactivated.", res.Body["message"])

	res = do(t, h, http.MethodPost, "/api/check_license", "", map[string]any{"client_id": "ACME-1"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "License inactive", res.Body["message"])
	assert.Equal(t, false, res.Body["success"])

	res = do(t, h, http.MethodPost, "/api/licenses/ACME-1/reactivate?email=buyer@acme.io", tok, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "Client ACME-1 reactivated for 30 days.", res.Body["message"])
	assert.Equal(t, "2025-03-31", res.Body["valid_until"])

	res = do(t, h, http.MethodGet, "/api/admin/licenses", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 1, res.Body["count"])
	assert.EqualValues(t, 1, res.Body["counts"].(map[string]any)["Active"])

	res = do(t, h, http.MethodGet, "/api/admin/licenses/ACME-1/events", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	events := res.Body["events"].([]any)
	require.Len(t, events, 3)
	assert.Equal(t, license.ActionReactivate, events[0].(map[string]any)["action"])
}

func TestRouter_CheckLicenseErrors(t *testing.T) {
	h := newTestRouter(t, testConfig())

	res := do(t, h, http.MethodPost, "/api/check_license", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "License key required", res.Body["message"])

	res = do(t, h, http.MethodPost, "/api/check_license", "", map[string]any{"client_id": "missing"})
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "License not found", res.Body["message"])
}

func TestRouter_ActivateValidation(t *testing.T) {
	h := newTestRouter(t, testConfig())
	tok := login(t, h)

	res := do(t, h, http.MethodPost, "/api/licenses", tok, map[string]any{
		"client_id": "C1", "email": "not-an-email", "duration": 0,
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body["message"], "email must be a valid email")
	assert.Contains(t, res.Body["message"], "duration is required")

	res = do(t, h, http.MethodPost, "/api/licenses", tok, map[string]any{
		"client_id": "C1", "email": "a@x.com", "duration": 4000000,
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "duration must be at most 36500", res.Body["message"])

	res = do(t, h, http.MethodPost, "/api/check_license", "", map[string]any{"client_id": "C1"})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, testConfig())

	for _, path := range []string{"/api/me", "/api/admin/licenses"} {
		res := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.Code, path)
	}
	res := do(t, h, http.MethodPost, "/api/licenses", "garbage", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRouter_LogoutRevokesSession(t *testing.T) {
	h := newTestRouter(t, testConfig())
	tok := login(t, h)

	res := do(t, h, http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ops@example.com", res.Body["user"].(map[string]any)["email"])

	res = do(t, h, http.MethodPost, "/api/logout", tok, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, h, http.MethodGet, "/api/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRouter_LoginErrors(t *testing.T) {
	h := newTestRouter(t, testConfig())
	login(t, h)

	res := do(t, h, http.MethodPost, "/api/login", "", map[string]any{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, h, http.MethodPost, "/api/login", "", map[string]any{"email": "ops@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Invalid password", res.Body["message"])

	res = do(t, h, http.MethodPost, "/api/signup", "", map[string]any{
		"name": "Again", "email": "ops@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Email already exists!", res.Body["message"])
}

func TestRouter_CheckLicenseRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.CheckRPS = 0.001
	cfg.RateLimit.CheckBurst = 1
	h := newTestRouter(t, cfg)

	body := map[string]any{"client_id": "missing"}
	res := do(t, h, http.MethodPost, "/api/check_license", "", body)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, h, http.MethodPost, "/api/check_license", "", body)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, testConfig())

	res := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	do(t, h, http.MethodPost, "/api/check_license", "", map[string]any{"client_id": "missing"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `licensedesk_license_operations_total{op="check",outcome="not_found"} 1`)
}
