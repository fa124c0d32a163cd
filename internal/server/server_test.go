package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"employee-directory/internal/audit"
	"employee-directory/internal/auth"
	"employee-directory/internal/config"
	"employee-directory/internal/database/dbtest"
	"employee-directory/internal/directory"
	"employee-directory/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db := dbtest.New(t)
	cfg := &config.Config{
		JWTSecret:   "0123456789abcdef0123456789abcdef",
		CORSOrigins: "http://localhost:3000",
	}
	return New(Deps{
		Config:    cfg,
		Logger:    logger.Nop(),
		Store:     auth.NewStore(db),
		Tokens:    auth.NewTokenService(cfg.JWTSecret, auth.AccessTokenTTL),
		Directory: directory.NewService(db),
		Audit:     audit.NewService(db),
	})
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, out), string(r.body))
}

func send(t *testing.T, app *fiber.App, method, path, body, token string) response {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()

	creds := `{"username":"` + username + `","password":"` + password + `"}`
	require.Equal(t, http.StatusCreated, send(t, app, http.MethodPost, "/api/register", creds, "").status)

	res := send(t, app, http.MethodPost, "/api/login", creds, "")
	require.Equal(t, http.StatusOK, res.status)

	var out auth.LoginResponse
	res.decode(t, &out)
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func TestHealthzIsPublic(t *testing.T) {
	app := newTestApp(t)

	res := send(t, app, http.MethodGet, "/api/healthz", "", "")
	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.body))
	assert.NotEmpty(t, res.header.Get(fiber.HeaderXRequestID))
}

func TestEmployeesRequireToken(t *testing.T) {
	app := newTestApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/employees"},
		{http.MethodPost, "/api/employees"},
		{http.MethodPut, "/api/employees/1"},
		{http.MethodDelete, "/api/employees/1"},
		{http.MethodGet, "/api/audit-logs"},
	} {
		res := send(t, app, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, res.status, tc.method+" "+tc.path)

		var body map[string]string
		res.decode(t, &body)
		assert.NotEmpty(t, body["msg"])
	}

	res := send(t, app, http.MethodGet, "/api/employees", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	app := newTestApp(t)
	login(t, app, "alice", "pw1")

	wrongPassword := send(t, app, http.MethodPost, "/api/login", `{"username":"alice","password":"nope"}`, "")
	unknownUser := send(t, app, http.MethodPost, "/api/login", `{"username":"mallory","password":"pw1"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.status)
	assert.Equal(t, wrongPassword.status, unknownUser.status)
	assert.Equal(t, string(wrongPassword.body), string(unknownUser.body))
}

func TestDuplicateRegistration(t *testing.T) {
	app := newTestApp(t)
	login(t, app, "alice", "pw1")

	res := send(t, app, http.MethodPost, "/api/register", `{"username":"alice","password":"other"}`, "")
	assert.Equal(t, http.StatusConflict, res.status)
	assert.JSONEq(t, `{"msg":"User already exists"}`, string(res.body))
}

func TestEmployeeLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "alice", "pw1")

	res := send(t, app, http.MethodPost, "/api/employees", `{"name":"Bob","department":"Engineering"}`, token)
	require.Equal(t, http.StatusCreated, res.status)

	var bob directory.EmployeeResponse
	res.decode(t, &bob)
	assert.Equal(t, uint(1), bob.CreatedBy)
	assert.Equal(t, "Engineering", bob.Department)

	res = send(t, app, http.MethodGet, "/api/employees?q=eng", "", token)
	require.Equal(t, http.StatusOK, res.status)
	var list []directory.EmployeeResponse
	res.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, bob.ID, list[0].ID)

	path := "/api/employees/" + strconv.FormatUint(uint64(bob.ID), 10)

	res = send(t, app, http.MethodPut, path, `{"department":"Sales"}`, token)
	require.Equal(t, http.StatusOK, res.status)
	var updated directory.EmployeeResponse
	res.decode(t, &updated)
	assert.Equal(t, "Bob", updated.Name)
	assert.Equal(t, "Sales", updated.Department)

	res = send(t, app, http.MethodDelete, path, "", token)
	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `{"msg":"deleted"}`, string(res.body))

	res = send(t, app, http.MethodDelete, path, "", token)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = send(t, app, http.MethodDelete, "/api/employees/abc", "", token)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = send(t, app, http.MethodGet, "/api/audit-logs?entity_id="+strconv.FormatUint(uint64(bob.ID), 10), "", token)
	require.Equal(t, http.StatusOK, res.status)
	var trail []audit.LogResponse
	res.decode(t, &trail)
	require.Len(t, trail, 3)
	assert.Equal(t, "delete", string(trail[0].Action))
	assert.Equal(t, "update", string(trail[1].Action))
	assert.Equal(t, "create", string(trail[2].Action))
	for _, entry := range trail {
		assert.Equal(t, uint(1), entry.UserID)
	}
}

func TestUnknownRouteUsesJSONErrors(t *testing.T) {
	app := newTestApp(t)

	res := send(t, app, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, res.status)

	var body map[string]string
	res.decode(t, &body)
	assert.NotEmpty(t, body["msg"])
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/employees", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodGet)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	send(t, app, http.MethodGet, "/api/healthz", "", "")
	send(t, app, http.MethodGet, "/api/employees", "", "")
	send(t, app, http.MethodPost, "/api/login", `{"username":"x","password":"y"}`, "")
	send(t, app, http.MethodPut, "/api/employees/1", "", "")
	send(t, app, http.MethodDelete, "/api/employees/1", "", "")
	send(t, app, http.MethodOptions, "/api/employees", "", "")
	send(t, app, http.MethodGet, "/api/nope", "", "")
	send(t, app, http.MethodGet, "/api/employees", "", "")

	res := send(t, app, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), "directory_http_requests_total")
}
