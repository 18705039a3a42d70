// nolint: funlen
package httpserver_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cinerate/auth"
	"cinerate/errs"
	"cinerate/httpserver"
	"cinerate/movie"
	"cinerate/pkg/jwt"
	"cinerate/rating"
	"cinerate/user"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	server := httpserver.Default(testConfig())

	assert.NotNil(t, server.Router, "Router should be initialized")
	assert.Equal(t, ":8080", server.Addr, "Default address should be :8080")
	assert.Equal(t, []string{"*"}, server.AllowOrigins, "Default CORS should allow all origins")
}

func TestDefault_FromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 9090
	cfg.AllowOrigins = " https://cinerate.app , https://admin.cinerate.app ,"

	server := httpserver.Default(cfg)

	assert.Equal(t, ":9090", server.Addr)
	assert.Equal(t, []string{"https://cinerate.app", "https://admin.cinerate.app"}, server.AllowOrigins)
}

func TestServerStartAndShutdown(t *testing.T) {
	server := httpserver.Default(testConfig())
	port := allocateRandomPort(t)
	server.Addr = fmt.Sprintf("127.0.0.1:%d", port)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/healthcheck", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond, "server should answer /healthcheck")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("unexpected error during shutdown: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not stop within timeout")
	}
}

func TestRegisterGlobalMiddlewares(t *testing.T) {
	server := httpserver.Default(testConfig())
	addTestRoute(server)

	response := makeRequest(server, http.MethodGet, "/test", map[string]string{"Accept-Encoding": "gzip"})

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NotEmpty(t, response.Header().Get(echo.HeaderXRequestID), "request id middleware should add header")
	assert.Equal(t, "nosniff", response.Header().Get(echo.HeaderXContentTypeOptions), "secure middleware should add headers")
	assert.Equal(t, "gzip", response.Header().Get(echo.HeaderContentEncoding), "gzip middleware should compress")
}

func TestCORSConfiguration(t *testing.T) {
	tests := []struct {
		name          string
		allowOrigins  string
		requestOrigin string
		expectOrigin  string
	}{
		{
			name:          "unset allows all origins",
			allowOrigins:  "",
			requestOrigin: "https://example.com",
			expectOrigin:  "*",
		},
		{
			name:          "listed origin is echoed",
			allowOrigins:  "https://cinerate.app,https://example.com",
			requestOrigin: "https://example.com",
			expectOrigin:  "https://example.com",
		},
		{
			name:          "unlisted origin is not allowed",
			allowOrigins:  "https://cinerate.app",
			requestOrigin: "https://example.com",
			expectOrigin:  "",
		},
		{
			name:          "dash disables CORS",
			allowOrigins:  "-",
			requestOrigin: "https://example.com",
			expectOrigin:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AllowOrigins = tt.allowOrigins
			server := httpserver.Default(cfg)
			addTestRoute(server)

			response := makeRequest(server, http.MethodGet, "/test", map[string]string{"Origin": tt.requestOrigin})

			assert.Equal(t, tt.expectOrigin, response.Header().Get(echo.HeaderAccessControlAllowOrigin))
		})
	}
}

func TestRateLimiter(t *testing.T) {
	server := httpserver.Default(testConfig())
	addTestRoute(server)

	var last *httptest.ResponseRecorder
	for i := 0; i < 25; i++ {
		last = makeRequest(server, http.MethodGet, "/test", nil)
		if last.Code == http.StatusTooManyRequests {
			break
		}
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "rate limit exceeded", decodeAPIResponse(t, last).Message)
}

func TestMiddlewareRecoveryBehavior(t *testing.T) {
	server := httpserver.Default(testConfig())
	server.Router.GET("/panic", func(c echo.Context) error {
		panic("test panic")
	})

	response := makeRequest(server, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, response.Code, "should return 500 on panic")
	assert.Equal(t, "Internal server error", decodeAPIResponse(t, response).Message)
}

func TestCustomErrorHandler(t *testing.T) {
	tests := []struct {
		name               string
		error              error
		expectedStatusCode int
		expectedCode       string
		expectedMessage    string
	}{
		{
			name:               "invalid score",
			error:              rating.ErrInvalidScore,
			expectedStatusCode: http.StatusBadRequest,
			expectedCode:       "100010",
			expectedMessage:    "rating: score must be between 1 and 10",
		},
		{
			name:               "missing movie",
			error:              fmt.Errorf("load movie 42: %w", movie.ErrNotFound),
			expectedStatusCode: http.StatusNotFound,
			expectedCode:       "100404",
			expectedMessage:    "movie: not found",
		},
		{
			name:               "duplicate email",
			error:              user.ErrEmailTaken,
			expectedStatusCode: http.StatusConflict,
			expectedCode:       "100409",
			expectedMessage:    "user: email already registered",
		},
		{
			name:               "bad credentials",
			error:              errs.Errorf(errs.EUNAUTHORIZED, "invalid email or password"),
			expectedStatusCode: http.StatusUnauthorized,
			expectedCode:       "100401",
			expectedMessage:    "invalid email or password",
		},
		{
			name:               "rating owned by someone else",
			error:              rating.ErrForbidden,
			expectedStatusCode: http.StatusForbidden,
			expectedCode:       "100403",
			expectedMessage:    "rating: not allowed",
		},
		{
			name:               "locked account",
			error:              auth.ErrAccountLocked,
			expectedStatusCode: http.StatusTooManyRequests,
			expectedCode:       "100429",
			expectedMessage:    auth.ErrAccountLocked.Error(),
		},
		{
			name:               "tmdb not configured",
			error:              movie.ErrTMDBNotConfigured,
			expectedStatusCode: http.StatusNotImplemented,
			expectedCode:       "100501",
			expectedMessage:    "movie: tmdb is not configured",
		},
		{
			name:               "internal application error hides message",
			error:              errs.Errorf(errs.EINTERNAL, "database connection failed"),
			expectedStatusCode: http.StatusInternalServerError,
			expectedCode:       "100500",
			expectedMessage:    "Internal server error",
		},
		{
			name:               "driver error hides message",
			error:              fmt.Errorf("refresh stats: %w", errors.New("pq: connection reset by peer")),
			expectedStatusCode: http.StatusInternalServerError,
			expectedCode:       "100500",
			expectedMessage:    "Internal server error",
		},
		{
			name:               "deadline exceeded",
			error:              context.DeadlineExceeded,
			expectedStatusCode: http.StatusInternalServerError,
			expectedCode:       "100500",
			expectedMessage:    "Internal server error",
		},
		{
			name:               "echo http error preserves status code",
			error:              echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large"),
			expectedStatusCode: http.StatusRequestEntityTooLarge,
			expectedCode:       "100413",
			expectedMessage:    "payload too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httpserver.Default(testConfig())
			server.Router.GET("/error", func(c echo.Context) error {
				return tt.error
			})

			response := makeRequest(server, http.MethodGet, "/error", nil)

			assert.Equal(t, tt.expectedStatusCode, response.Code)
			resp := decodeAPIResponse(t, response)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.Equal(t, tt.expectedMessage, resp.Message)
		})
	}
}

func TestAuthentication(t *testing.T) {
	refresh, err := jwt.NewJWTProvider(testJWTSecret, time.Hour, time.Hour).GenerateRefreshToken(testUser)
	require.NoError(t, err)
	foreign, err := jwt.NewJWTProvider("another-secret", time.Hour, time.Hour).GenerateAccessToken(testUser)
	require.NoError(t, err)
	expired, err := jwt.NewJWTProvider(testJWTSecret, -time.Minute, time.Hour).GenerateAccessToken(testUser)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing token", header: ""},
		{name: "malformed header", header: "Token abc"},
		{name: "refresh token used as access token", header: "Bearer " + refresh},
		{name: "token signed with another secret", header: "Bearer " + foreign},
		{name: "expired token", header: "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httpserver.Default(testConfig())
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}

			response := makeRequest(server, http.MethodGet, "/api/users/me", headers)

			assert.Equal(t, http.StatusUnauthorized, response.Code)
			assert.Equal(t, "100401", decodeAPIResponse(t, response).Code)
		})
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	server := httpserver.Default(testConfig())

	response := doRequest(t, server, http.MethodPost, "/api/movies", map[string]string{"title": "Heat"}, &testUser)

	assert.Equal(t, http.StatusForbidden, response.Code)
	assert.Equal(t, "admin role required", decodeAPIResponse(t, response).Message)
}

func TestUnknownAPIRoute(t *testing.T) {
	tests := []struct {
		name   string
		caller *user.User
		status int
	}{
		{name: "anonymous", caller: nil, status: http.StatusUnauthorized},
		{name: "user", caller: &testUser, status: http.StatusNotFound},
		{name: "admin", caller: &testAdmin, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httpserver.Default(testConfig())

			response := doRequest(t, server, http.MethodGet, "/api/no-such-thing", nil, tt.caller)

			assert.Equal(t, tt.status, response.Code, response.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := httpserver.Default(testConfig())

	response := makeRequest(server, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, response.Body.String(), "go_goroutines")
}

func allocateRandomPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

func makeRequest(server *httpserver.Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	return rec
}

func addTestRoute(server *httpserver.Server) {
	server.Router.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "test")
	})
}
