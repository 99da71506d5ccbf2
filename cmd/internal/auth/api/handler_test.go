package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carepass/cmd/customer"
	"carepass/cmd/internal/auth/session"
	"carepass/cmd/internal/dbx"
	"carepass/cmd/internal/migrations"
	"carepass/cmd/security/password"
)

type apiFixture struct {
	svc   *session.Service
	store customer.Store
	srv   *httptest.Server
	reg   *prometheus.Registry
	now   time.Time
}

func newAPIFixture(t *testing.T, mutate func(*session.Config)) *apiFixture {
	t.Helper()

	ctx := context.Background()
	db, err := dbx.OpenSQLite(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = migrations.Up(ctx, db, migrations.SQLite)
	require.NoError(t, err)

	store, err := customer.NewSQLiteStore(db)
	require.NoError(t, err)
	ledger, err := session.NewSQLiteLedger(db)
	require.NoError(t, err)

	cfg := session.DefaultConfig()
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if mutate != nil {
		mutate(&cfg)
	}
	issuer, err := session.NewJWTIssuer(cfg)
	require.NoError(t, err)

	pcfg := password.DefaultConfig()
	pcfg.Params.MemoryKiB = 8 * 1024
	pcfg.Params.Iterations = 1
	pcfg.Params.Parallelism = 1

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := session.NewService(cfg, store, ledger, issuer, password.NewHasher(pcfg), session.WithLogger(log))
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := prometheus.NewRegistry()
	h, err := NewHandler(log, svc, DefaultConfig(),
		WithRegisterer(reg),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &apiFixture{svc: svc, store: store, srv: srv, reg: reg, now: now}
}

type apiResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, bearer string) (int, apiResponse) {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	require.NoError(t, err)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func signupBody() map[string]any {
	return map[string]any{
		"email":         "a@b.com",
		"mobile_number": "9876543210",
		"password":      "longpass1",
		"first_name":    "A",
		"last_name":     "B",
	}
}

func (f *apiFixture) login(t *testing.T) loginResponse {
	t.Helper()
	status, res := f.do(t, http.MethodPost, "/api/v1/customers/login",
		map[string]string{"email": "a@b.com", "password": "longpass1"}, "")
	require.Equal(t, http.StatusOK, status, res.Message)

	var out loginResponse
	require.NoError(t, json.Unmarshal(res.Data, &out))
	return out
}

func TestAPI_SignupLoginMeLogoutRefresh(t *testing.T) {
	f := newAPIFixture(t, nil)

	status, res := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status, res.Message)
	assert.True(t, res.Success)
	assert.Equal(t, "Registration successful", res.Message)

	var signup signupResponse
	require.NoError(t, json.Unmarshal(res.Data, &signup))
	assert.Positive(t, signup.CustomerID)
	assert.Equal(t, "a@b.com", signup.Email)
	assert.Equal(t, "A B", signup.Customer.FullName)

	login := f.login(t)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	assert.NotNil(t, login.Customer.LastLogin)

	status, res = f.do(t, http.MethodGet, "/api/v2/customers/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, status, res.Message)
	var me customerResponse
	require.NoError(t, json.Unmarshal(res.Data, &me))
	assert.Equal(t, "a@b.com", me.Email)
	assert.Equal(t, signup.CustomerID, me.ID)

	status, res = f.do(t, http.MethodPost, "/api/v3/customers/logout", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, "Logged out successfully", res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, res.Success)
	assert.Equal(t, "Token has been revoked", res.Message)
}

func TestAPI_SignupErrors(t *testing.T) {
	f := newAPIFixture(t, nil)

	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)

	status, res := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already registered", res.Message)

	dup := signupBody()
	dup["email"] = "other@b.com"
	status, res = f.do(t, http.MethodPost, "/api/v1/customers/signup", dup, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Mobile number already registered", res.Message)

	missing := signupBody()
	delete(missing, "email")
	status, res = f.do(t, http.MethodPost, "/api/v1/customers/signup", missing, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)

	extra := signupBody()
	extra["email"] = "extra@b.com"
	extra["mobile_number"] = "9876543211"
	extra["confirm_password"] = "longpass1"
	extra["is_active"] = false
	status, res = f.do(t, http.MethodPost, "/api/v1/customers/signup", extra, "")
	require.Equal(t, http.StatusCreated, status, res.Message)
	created, err := f.store.FindByEmail(context.Background(), "extra@b.com")
	require.NoError(t, err)
	assert.True(t, created.IsActive, "is_active is not client-settable")

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/login",
		map[string]any{"email": "extra@b.com", "password": "longpass1", "remember_me": true}, "")
	assert.Equal(t, http.StatusOK, status, res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/signup", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, msgInvalidBody, res.Message)
}

func TestAPI_LoginFailuresLookAlike(t *testing.T) {
	f := newAPIFixture(t, nil)
	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)

	cases := []map[string]string{
		{"email": "a@b.com", "password": "wrongpass1"},
		{"email": "nobody@b.com", "password": "longpass1"},
	}
	for _, body := range cases {
		status, res := f.do(t, http.MethodPost, "/api/v1/customers/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Invalid email or password", res.Message)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(eventCounter(t, f.reg, "login", "invalid_credentials")))
}

func eventCounter(t *testing.T, reg *prometheus.Registry, op, result string) prometheus.Collector {
	t.Helper()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carepass",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Customer auth operations by operation and outcome.",
	}, []string{"op", "outcome"})
	err := reg.Register(counter)
	are, ok := err.(prometheus.AlreadyRegisteredError)
	require.True(t, ok, "auth counters must already be registered")
	return are.ExistingCollector.(*prometheus.CounterVec).WithLabelValues(op, result)
}

func TestAPI_GateRejections(t *testing.T) {
	f := newAPIFixture(t, nil)
	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)
	login := f.login(t)

	tests := []struct {
		name   string
		bearer string
		want   string
	}{
		{"missing", "", "Authorization token is missing"},
		{"garbage", "abc.def.ghi", "Invalid token"},
		{"refresh as access", login.RefreshToken, "Invalid token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, res := f.do(t, http.MethodGet, "/api/v1/customers/me", nil, tc.bearer)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tc.want, res.Message)
		})
	}
}

func TestAPI_RefreshFromBodyAndHeader(t *testing.T) {
	f := newAPIFixture(t, nil)
	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)
	login := f.login(t)

	status, res := f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.AccessToken)
	assert.Empty(t, res.RefreshToken, "no rotation by default")

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/refresh",
		map[string]string{"refresh_token": login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.NotEmpty(t, res.AccessToken)

	status, res = f.do(t, http.MethodGet, "/api/v1/customers/me", nil, res.AccessToken)
	assert.Equal(t, http.StatusOK, status, res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authorization token is missing", res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", res.Message)
}

func TestAPI_RefreshRotation(t *testing.T) {
	f := newAPIFixture(t, func(c *session.Config) { c.RotateRefreshTokens = true })
	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)
	login := f.login(t)

	status, res := f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	require.Equal(t, http.StatusOK, status, res.Message)
	require.NotEmpty(t, res.RefreshToken)
	rotated := res.RefreshToken

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", res.Message)

	status, _ = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, rotated)
	assert.Equal(t, http.StatusUnauthorized, status, "reuse revokes the whole family")
}

func TestAPI_DeactivatedCustomer(t *testing.T) {
	f := newAPIFixture(t, nil)
	status, res := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)
	var signup signupResponse
	require.NoError(t, json.Unmarshal(res.Data, &signup))
	login := f.login(t)

	require.NoError(t, f.svc.DeactivateAccount(context.Background(), f.now, signup.CustomerID))

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/login",
		map[string]string{"email": "a@b.com", "password": "longpass1"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", res.Message)

	status, _ = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Reactivation does not resurrect revoked tokens.
	require.NoError(t, f.svc.ReactivateAccount(context.Background(), f.now, signup.CustomerID))
	status, _ = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_RefreshInactiveMessage(t *testing.T) {
	f := newAPIFixture(t, func(c *session.Config) { c.HideDeactivated = false })
	status, res := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)
	var signup signupResponse
	require.NoError(t, json.Unmarshal(res.Data, &signup))

	// Deactivating through the store leaves the refresh token unrevoked, so
	// the customer check is what rejects it.
	login := f.login(t)
	require.NoError(t, f.store.SetActive(context.Background(), signup.CustomerID, false, f.now))

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/login",
		map[string]string{"email": "a@b.com", "password": "longpass1"}, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Account is deactivated", res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/refresh", nil, login.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Customer not found or inactive", res.Message)
}

func TestAPI_UpdateProfileRoundTrip(t *testing.T) {
	f := newAPIFixture(t, nil)
	body := signupBody()
	body["address"] = "12 MG Road"
	body["state"] = "MH"
	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", body, "")
	require.Equal(t, http.StatusCreated, status)
	login := f.login(t)

	status, res := f.do(t, http.MethodPut, "/api/v1/customers/me",
		map[string]any{"city": "Pune", "email": "ignored@b.com", "pincode": "411001"}, login.AccessToken)
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, "Profile updated successfully", res.Message)

	status, res = f.do(t, http.MethodGet, "/api/v1/customers/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, status)
	var me customerResponse
	require.NoError(t, json.Unmarshal(res.Data, &me))

	assert.Equal(t, "a@b.com", me.Email)
	require.NotNil(t, me.City)
	assert.Equal(t, "Pune", *me.City)
	require.NotNil(t, me.PostalCode)
	assert.Equal(t, "411001", *me.PostalCode)
	require.NotNil(t, me.Address)
	assert.Equal(t, "12 MG Road", *me.Address)
	require.NotNil(t, me.State)
	assert.Equal(t, "MH", *me.State)
	assert.Equal(t, "A", me.FirstName)
}

func TestAPI_ChangePassword(t *testing.T) {
	f := newAPIFixture(t, nil)
	status, _ := f.do(t, http.MethodPost, "/api/v1/customers/signup", signupBody(), "")
	require.Equal(t, http.StatusCreated, status)
	login := f.login(t)

	status, res := f.do(t, http.MethodPost, "/api/v1/customers/change-password",
		map[string]string{"current_password": "nope-nope", "new_password": "brandnew22"}, login.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Current password is incorrect", res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/change-password",
		map[string]string{"new_password": "brandnew22"}, login.AccessToken)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Current password is required", res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/change-password",
		map[string]string{"current_password": "longpass1", "new_password": "brandnew22", "confirm": "brandnew22"}, login.AccessToken)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, msgInvalidBody, res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/change-password",
		map[string]string{"old_password": "longpass1", "new_password": "short"}, login.AccessToken)
	assert.Equal(t, http.StatusBadRequest, status, res.Message)

	status, res = f.do(t, http.MethodPost, "/api/v1/customers/change-password",
		map[string]string{"old_password": "longpass1", "new_password": "brandnew22"}, login.AccessToken)
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, "Password changed successfully", res.Message)

	status, _ = f.do(t, http.MethodPost, "/api/v1/customers/login",
		map[string]string{"email": "a@b.com", "password": "longpass1"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = f.do(t, http.MethodPost, "/api/v1/customers/login",
		map[string]string{"email": "a@b.com", "password": "brandnew22"}, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_VersionsAreConfigurable(t *testing.T) {
	f := newAPIFixture(t, nil)
	cfg := DefaultConfig()
	cfg.Versions = []string{"v3"}
	h, err := NewHandler(nil, f.svc, cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	res, err := srv.Client().Get(srv.URL + "/api/v1/customers/me")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = srv.Client().Get(srv.URL + "/api/v3/customers/me")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestNewHandler_RejectsBadInput(t *testing.T) {
	_, err := NewHandler(nil, nil, DefaultConfig())
	assert.Error(t, err)

	f := newAPIFixture(t, nil)
	_, err = NewHandler(nil, f.svc, Config{MaxBodyBytes: 1, Versions: []string{"latest"}})
	assert.Error(t, err)
}
