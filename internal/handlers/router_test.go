package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SAP-F-2025/auth-service/internal/events"
	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories/memory"
	"github.com/SAP-F-2025/auth-service/internal/services"
	"github.com/SAP-F-2025/auth-service/internal/validator"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "rootpassword1"

	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type testServer struct {
	router *gin.Engine
	sm     services.ServiceManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validator.New()
	sm := services.NewServiceManager(memory.NewMemoryRepository(nil), events.NewMockEventPublisher(slogger), slogger, v, services.ServiceManagerConfig{
		Token: services.TokenConfig{
			AccessSecret:     testAccessSecret,
			AccessExpiresIn:  15 * time.Minute,
			RefreshSecret:    testRefreshSecret,
			RefreshExpiresIn: time.Hour,
		},
		BcryptCost:           bcrypt.MinCost,
		RefreshTokenRotation: true,
		StoreTimeout:         time.Second,
	})
	require.NoError(t, sm.Initialize(context.Background()))
	require.NoError(t, sm.Admin().EnsureAdmin(context.Background(), adminEmail, adminPassword))

	logger := testLogger()
	router := gin.New()
	SetupMiddleware(router, logger, []string{"https://app.example.com"})
	NewHandlerManager(sm, v, logger).SetupRoutes(router)

	return &testServer{router: router, sm: sm}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func registerBody(email, role string) map[string]any {
	body := map[string]any{
		"email":    email,
		"password": "password123",
		"profile":  map[string]string{"firstName": "Grace", "lastName": "Hopper"},
	}
	if role != "" {
		body["role"] = role
	}
	return body
}

func (s *testServer) register(t *testing.T, email, role string) models.AuthResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/auth/register", registerBody(email, role), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func (s *testServer) login(t *testing.T, email, password string) models.AuthResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/register", registerBody("Grace@Example.com", ""), "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "$2a$")

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "grace@example.com", resp.User.Email)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestRegisterEndpoint_Rejects(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "taken@example.com", "")

	tests := []struct {
		name       string
		body       any
		status     int
		message    string
		withErrors bool
	}{
		{name: "duplicate", body: registerBody("TAKEN@example.com", ""), status: http.StatusBadRequest, message: "User already exists with this email"},
		{name: "admin role", body: registerBody("boss@example.com", "admin"), status: http.StatusBadRequest, message: "Validation failed", withErrors: true},
		{name: "weak password", body: map[string]any{
			"email": "weak@example.com", "password": "short",
			"profile": map[string]string{"firstName": "A", "lastName": "B"},
		}, status: http.StatusBadRequest, message: "Validation failed", withErrors: true},
		{name: "password longer than bcrypt accepts", body: map[string]any{
			"email": "long@example.com", "password": strings.Repeat("a", 80),
			"profile": map[string]string{"firstName": "A", "lastName": "B"},
		}, status: http.StatusBadRequest, message: "Validation failed", withErrors: true},
		{name: "malformed json", body: "{not json", status: http.StatusBadRequest, message: "Invalid request payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
			if tt.withErrors {
				assert.NotEmpty(t, env.Errors)
			}
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ada@example.com", "educator")

	resp := s.login(t, " ADA@example.com ", "password123")
	assert.Equal(t, models.RoleEducator, resp.User.Role)
	assert.NotNil(t, resp.User.LastLoginAt)

	tests := []struct {
		name string
		body any
	}{
		{name: "wrong password", body: map[string]string{"email": "ada@example.com", "password": "password124"}},
		{name: "unknown email", body: map[string]string{"email": "nobody@example.com", "password": "password123"}},
		{name: "bad email", body: map[string]string{"email": "not-an-email"}},
		{name: "empty password", body: map[string]string{"email": "ada@example.com", "password": ""}},
		{name: "malformed json", body: "{bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/auth/login", tt.body, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, "Invalid email or password", env.Message)
			assert.Empty(t, env.Errors)
		})
	}
}

func TestLoginEndpoint_SuspendedAccount(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "sus@example.com", "")
	admin := s.login(t, adminEmail, adminPassword)

	w, _ := s.do(t, http.MethodPatch, "/api/admin/users/"+user.User.ID+"/status", map[string]string{"status": "suspended"}, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "sus@example.com", "password": "password123"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account is not active", env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": user.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "me@example.com", "")

	w, env := s.do(t, http.MethodGet, "/api/auth/me", nil, user.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User data retrieved successfully", env.Message)

	var resp models.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, user.User.ID, resp.User.ID)

	w, env = s.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/auth/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)

	// refresh tokens are not accepted as access tokens
	w, _ = s.do(t, http.MethodGet, "/api/auth/me", nil, user.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeEndpoint_ExpiredAccessToken(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "late@example.com", "")

	past := time.Now().Add(-time.Hour)
	claims := &services.Claims{
		UserID:    user.User.ID,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.User.ID,
			IssuedAt:  jwt.NewNumericDate(past.Add(-15 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(past),
			ID:        "expired-jti",
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	w, env := s.do(t, http.MethodGet, "/api/auth/me", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)

	// same claims with a live expiry pass, so only the expiry was rejected
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	live, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	w, _ = s.do(t, http.MethodGet, "/api/auth/me", nil, live)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "refresh@example.com", "")

	w, env := s.do(t, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": user.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Token refreshed successfully", env.Message)

	var pair models.TokenPairResponse
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEmpty(t, pair.Token)
	assert.NotEqual(t, user.RefreshToken, pair.RefreshToken)

	w, env = s.do(t, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": user.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", env.Message)

	// reuse revoked the whole family
	w, _ = s.do(t, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": pair.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, body := range []any{map[string]string{}, map[string]string{"refreshToken": user.Token}, "nope"} {
		w, env = s.do(t, http.MethodPost, "/api/auth/refresh-token", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid token", env.Message)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "bye@example.com", "")
	other := s.register(t, "other@example.com", "")

	w, _ := s.do(t, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": other.RefreshToken}, user.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": user.RefreshToken}, user.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Logged out successfully", env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": user.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminEndpoints_RequireAdmin(t *testing.T) {
	s := newTestServer(t)
	student := s.register(t, "student@example.com", "")
	educator := s.register(t, "educator@example.com", "educator")

	for _, token := range []string{student.Token, educator.Token} {
		w, env := s.do(t, http.MethodGet, "/api/admin/users", nil, token)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Insufficient permissions", env.Message)
	}

	w, _ := s.do(t, http.MethodGet, "/api/admin/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	student := s.register(t, "student@example.com", "")
	admin := s.login(t, adminEmail, adminPassword)

	w, env := s.do(t, http.MethodGet, "/api/admin/users?role=student&page=1&size=10", nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list models.UserListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Users, 1)
	assert.Equal(t, student.User.ID, list.Users[0].ID)

	w, env = s.do(t, http.MethodGet, "/api/admin/users?role=wizard", nil, admin.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid role filter", env.Message)

	w, _ = s.do(t, http.MethodPatch, "/api/admin/users/"+student.User.ID+"/role", map[string]string{"role": "wizard"}, admin.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPatch, "/api/admin/users/"+student.User.ID+"/role", map[string]string{"role": "educator"}, admin.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "User role updated successfully", env.Message)

	// the new role applies to the existing access token
	w, _ = s.do(t, http.MethodGet, "/api/auth/me", nil, student.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"educator"`)

	w, env = s.do(t, http.MethodPatch, "/api/admin/users/"+admin.User.ID+"/role", map[string]string{"role": "student"}, admin.Token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot remove the last active admin", env.Message)

	w, _ = s.do(t, http.MethodPatch, "/api/admin/users/missing/status", map[string]string{"status": "suspended"}, admin.Token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/admin/stats", nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.SystemStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.ByRole[models.RoleAdmin])
	assert.EqualValues(t, 1, stats.ByRole[models.RoleEducator])

	w, env = s.do(t, http.MethodDelete, "/api/admin/users/"+student.User.ID, nil, admin.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User deleted successfully", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/auth/me", nil, student.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	user := s.register(t, "profile@example.com", "")

	w, env := s.do(t, http.MethodPut, "/api/profile", map[string]any{
		"bio":    "Compiler pioneer",
		"skills": []string{"COBOL", "cobol", " Fortran "},
	}, user.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Profile updated successfully", env.Message)

	var updated models.User
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	profile := updated.Profile.Data()
	assert.Equal(t, "Grace", profile.FirstName)
	assert.Equal(t, "Compiler pioneer", profile.Bio)
	assert.Equal(t, []string{"COBOL", "Fortran"}, profile.Skills)

	w, _ = s.do(t, http.MethodPut, "/api/profile", map[string]any{
		"preferences": map[string]any{"theme": "neon"},
	}, user.Token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/profile/interests", map[string]any{"interests": []string{"math"}}, user.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/profile/me", nil, user.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Profile retrieved successfully", env.Message)
	assert.Contains(t, string(env.Data), `"math"`)

	w, _ = s.do(t, http.MethodGet, "/api/profile/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	require.NoError(t, s.sm.Shutdown(context.Background()))
	w, _ = s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMiddleware_CORSAndRequestID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.NewValidationError(nil), http.StatusBadRequest},
		{services.ErrDuplicateAccount, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrMissingToken, http.StatusUnauthorized},
		{services.ErrInvalidOrExpiredToken, http.StatusUnauthorized},
		{services.ErrInvalidToken, http.StatusUnauthorized},
		{services.ErrAccountNotFound, http.StatusUnauthorized},
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{services.ErrAccountNotActive, http.StatusForbidden},
		{services.ErrInsufficientPermissions, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrLastAdmin, http.StatusConflict},
		{services.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusForKind(services.KindOf(tt.err)))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(services.KindInternal))
}
