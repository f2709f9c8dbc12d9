package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
)

func authedToken(t *testing.T, svc *services.TokenService) string {
	t.Helper()
	token, err := svc.GenerateToken(&domain.User{
		ID:         7,
		Email:      "dana@example.com",
		Role:       domain.RoleDispatcher,
		VentureIDs: []int64{1},
	})
	require.NoError(t, err)
	return token
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	t.Parallel()
	tokenSvc := services.NewTokenService("test-secret", time.Hour)
	var captured domain.SessionUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := SessionUserFrom(r.Context())
		require.True(t, ok)
		captured = u
	})
	handler := AuthMiddleware(tokenSvc)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
	req.Header.Set("Authorization", "Bearer "+authedToken(t, tokenSvc))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), captured.ID)
	assert.Equal(t, domain.RoleDispatcher, captured.Role)
	assert.Equal(t, []int64{1}, captured.VentureIDs)
}

func TestAuthMiddlewareQueryTokenFallback(t *testing.T) {
	t.Parallel()
	tokenSvc := services.NewTokenService("test-secret", time.Hour)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := SessionUserFrom(r.Context())
		assert.True(t, ok)
		called = true
	})
	handler := AuthMiddleware(tokenSvc)(next)

	// EventSource cannot set headers; stream clients pass the token in the
	// query string instead.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?token="+authedToken(t, tokenSvc), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	t.Parallel()
	tokenSvc := services.NewTokenService("test-secret", time.Hour)
	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	t.Parallel()
	tokenSvc := services.NewTokenService("test-secret", time.Hour)
	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareBadToken(t *testing.T) {
	t.Parallel()
	tokenSvc := services.NewTokenService("test-secret", time.Hour)
	handler := AuthMiddleware(tokenSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loads", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
