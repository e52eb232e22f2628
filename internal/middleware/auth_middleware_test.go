package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront/internal/app/model"
	apperrors "github.com/ikkim/storefront/internal/errors"
	"github.com/ikkim/storefront/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return f.revoked[tokenID], f.err
}

func setupMiddlewareTest(revoked RevocationChecker) (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := NewAuthMiddleware(testJWTSecret, revoked)

	router.GET("/test", auth.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		email, _ := GetUserEmail(c)
		role, _ := GetUserRole(c)
		token, _ := GetAccessToken(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"email":   email,
			"role":    role,
			"token":   token,
		})
	})
	return router, auth
}

func generateTestToken(t *testing.T, expiry time.Duration) string {
	token, err := util.GenerateToken(7, "test@example.com", "user", testJWTSecret, expiry)
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	router, _ := setupMiddlewareTest(nil)
	token := generateTestToken(t, 15*time.Minute)

	w := doRequest(router, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["user_id"])
	assert.Equal(t, "test@example.com", body["email"])
	assert.Equal(t, string(model.RoleUser), body["role"])
	assert.Equal(t, token, body["token"])
}

func TestAuthMiddleware_Authenticate_Rejections(t *testing.T) {
	router, _ := setupMiddlewareTest(nil)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "No header", header: "", wantCode: apperrors.AuthUnauthorized},
		{name: "Wrong scheme", header: "Basic abc", wantCode: apperrors.AuthTokenInvalid},
		{name: "Missing token", header: "Bearer ", wantCode: apperrors.AuthTokenInvalid},
		{name: "Garbage token", header: "Bearer not.a.jwt", wantCode: apperrors.AuthTokenInvalid},
		{name: "Expired token", header: "Bearer " + generateTestToken(t, -time.Minute), wantCode: apperrors.AuthTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestAuthMiddleware_Authenticate_RevokedToken(t *testing.T) {
	token := generateTestToken(t, 15*time.Minute)
	claims, err := util.ValidateToken(token, testJWTSecret)
	require.NoError(t, err)

	router, _ := setupMiddlewareTest(&fakeRevocations{revoked: map[string]bool{claims.ID: true}})

	w := doRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.AuthTokenRevoked, errorCode(t, w))

	other := generateTestToken(t, 15*time.Minute)
	assert.Equal(t, http.StatusOK, doRequest(router, "Bearer "+other).Code)
}

func TestAuthMiddleware_Authenticate_RevocationCheckFails(t *testing.T) {
	router, _ := setupMiddlewareTest(&fakeRevocations{err: errors.New("redis down")})

	w := doRequest(router, "Bearer "+generateTestToken(t, 15*time.Minute))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.InternalServerError, errorCode(t, w))
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "op-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "op-123", w.Body.String())
	assert.Equal(t, "op-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))
}
