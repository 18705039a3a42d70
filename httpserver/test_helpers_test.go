//nolint:unused
package httpserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"cinerate/httpserver"
	"cinerate/pkg/config"
	"cinerate/pkg/jwt"
	"cinerate/user"

	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.RefreshTTL = 24 * time.Hour
	return cfg
}

var (
	testUser  = user.User{ID: "0b6f3c1e-8c43-4d8e-9a57-1f2f3b4c5d6e", Username: "ann", Email: "ann@example.com", Role: user.RoleUser}
	testAdmin = user.User{ID: "9d1c6a2b-3e4f-4a5b-8c7d-6e5f4a3b2c1d", Username: "root", Email: "root@example.com", Role: user.RoleAdmin}
)

func signTestToken(t testing.TB, u user.User) string {
	t.Helper()
	token, err := jwt.NewJWTProvider(testJWTSecret, time.Hour, time.Hour).GenerateAccessToken(u)
	require.NoError(t, err)
	return token
}

type apiResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Info    string          `json:"info"`
}

func decodeAPIResponse(t testing.TB, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func decodeResult(t testing.TB, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	resp := decodeAPIResponse(t, rec)
	require.NoError(t, json.Unmarshal(resp.Result, dest), string(resp.Result))
}

// doRequest sends body as JSON and authenticates as u when u is not nil.
func doRequest(t testing.TB, server *httpserver.Server, method, path string, body interface{}, u *user.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, *u))
	}
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	return rec
}

func newTestServer() *httpserver.Server {
	return httpserver.Default(testConfig())
}

func assertStatus(t testing.TB, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
