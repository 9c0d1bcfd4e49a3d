package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers"
	"github.com/ignatzorin/servicehub-backend/internal/http/middleware"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// Сервисы nil: проверяются только ответы, которые отдаются до обращения к ним.
func newTestEngine(t *testing.T, cfg *config.Config, checks map[string]handlers.HealthCheck) (*gin.Engine, *service.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := middleware.NewRateLimitStore(nil)
	require.NoError(t, err)
	tokens := service.NewTokenManager("access-secret-access-secret-0000", "refresh-secret-refresh-secret-00", time.Minute, time.Hour)

	h := Handlers{
		Auth:     handlers.NewAuthHandler(nil),
		Profile:  handlers.NewProfileHandler(nil),
		Catalog:  handlers.NewCatalogHandler(nil),
		Provider: handlers.NewProviderHandler(nil),
		Review:   handlers.NewReviewHandler(nil),
		Feed:     handlers.NewFeedHandler(nil, nil, cfg.AllowedOrigins),
		Health:   handlers.NewHealthHandler(checks),
		Seed:     handlers.NewSeedHandler(nil),
	}
	return SetupRouter(cfg, store, tokens, h), tokens
}

func testConfig() *config.Config {
	return &config.Config{
		Env:              "test",
		MediaStoragePath: "/nonexistent",
		AllowedOrigins:   []string{"*"},
		AuthRateLimit:    100,
		RateLimitPeriod:  time.Minute,
	}
}

func do(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestEngine(t, testConfig(), map[string]handlers.HealthCheck{
		"database": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", "").Code)

	r, _ = newTestEngine(t, testConfig(), map[string]handlers.HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w := do(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCatalogWritesAreStaffOnly(t *testing.T) {
	r, tokens := newTestEngine(t, testConfig(), nil)
	pair, err := tokens.IssuePair(&models.User{ID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/categories", "", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/categories", pair.Access, `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/api/addresses/"+uuid.NewString(), pair.Access, "").Code)
}

func TestProviderRoutes(t *testing.T) {
	r, _ := newTestEngine(t, testConfig(), nil)
	id := uuid.NewString()

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/service-providers/not-a-uuid", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/api/service-providers/"+id+"/tags/nope", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/service-providers", "", "{}").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPut, "/api/service-providers/"+id+"/rates", "", `{"score":5}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/service-providers/"+id, "broken", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/owners/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/profile", "", "").Code)
}

func TestSeedRouteFollowsConfig(t *testing.T) {
	r, _ := newTestEngine(t, testConfig(), nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/seed", "", "").Code)

	cfg := testConfig()
	cfg.SeedEnabled = true
	r, _ = newTestEngine(t, cfg, nil)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/seed", "", "{").Code)
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 2
	r, _ := newTestEngine(t, cfg, nil)

	// битый JSON отвечает 400 до обращения к сервису
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/auth/login", "", "{").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/auth/login", "", "{").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/api/auth/login", "", "{").Code)
}
