package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boletohub/backend/internal/infrastructure/auth"
	"github.com/boletohub/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars!!",
		AccessTokenExpiration: time.Hour,
		Issuer:                "boletohub-test",
	})
}

func testToken(t *testing.T, svc *auth.JWTService, roles ...string) string {
	t.Helper()
	token, err := svc.GenerateToken(auth.GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Username: "maria",
		Roles:    roles,
	})
	require.NoError(t, err)
	return token
}

func authRouter(svc *auth.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(JWTAuthMiddleware(svc))
	handlers := append(extra, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant": GetJWTTenantID(c)})
	})
	r.GET("/api/v1/invoices", handlers...)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := testJWTService()
	r := authRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, svc))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant")
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r := authRouter(testJWTService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_BadToken(t *testing.T) {
	r := authRouter(testJWTService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_SkipsHealth(t *testing.T) {
	r := authRouter(testJWTService())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoles(t *testing.T) {
	svc := testJWTService()
	r := authRouter(svc, RequireRoles(RoleOwner, RoleAdmin))

	cases := []struct {
		name  string
		roles []string
		want  int
	}{
		{"admin allowed", []string{"admin"}, http.StatusOK},
		{"owner allowed", []string{"owner"}, http.StatusOK},
		{"viewer forbidden", []string{"viewer"}, http.StatusForbidden},
		{"no roles forbidden", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
			req.Header.Set("Authorization", "Bearer "+testToken(t, svc, tc.roles...))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
