package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/auth-api/internal/models"
	"github.com/noah-isme/auth-api/internal/service"
	"github.com/noah-isme/auth-api/pkg/config"
)

func testAuthService() *service.AuthService {
	issuer := service.NewTokenIssuer(config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "auth-api",
		Audience:        "auth-api-clients",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	return service.NewAuthService(nil, nil, issuer, nil, nil)
}

func protectedRouter(svc *service.AuthService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(svc)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.Username)
	})
	r.GET("/secret", handlers...)
	return r
}

func TestJWTMissingHeader(t *testing.T) {
	r := protectedRouter(testAuthService())
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/secret", nil)

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	r := protectedRouter(testAuthService())
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Token abc")

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTInvalidToken(t *testing.T) {
	r := protectedRouter(testAuthService())
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTValidToken(t *testing.T) {
	svc := testAuthService()
	issuer := service.NewTokenIssuer(config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "auth-api",
		Audience:        "auth-api-clients",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	token, err := issuer.CreateAccessToken(&models.User{Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)

	r := protectedRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestRequireRolesForbidsOtherRole(t *testing.T) {
	svc := testAuthService()
	issuer := service.NewTokenIssuer(config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "auth-api",
		Audience:        "auth-api-clients",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})

	r := protectedRouter(svc, RequireRoles(models.RoleAdmin))

	userToken, err := issuer.CreateAccessToken(&models.User{Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, err := issuer.CreateAccessToken(&models.User{Username: "root", Role: models.RoleAdmin})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
