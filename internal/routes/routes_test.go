package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cache"
	"romaneio-service/internal/config"
	"romaneio-service/internal/handlers"
	"romaneio-service/internal/middleware"
	"romaneio-service/internal/models"
	"romaneio-service/internal/repository"
	"romaneio-service/internal/services"
	"romaneio-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type routesEnv struct {
	router *gin.Engine
	tokens session.TokenStore
	cache  *cache.ProductCache
}

func newRoutesEnv(t *testing.T) *routesEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(upstream.Close)

	client := apiclient.NewClient(upstream.URL+"/api", time.Second, logger)
	productCache := cache.NewProductCache(nil, 100, time.Minute, logger)
	t.Cleanup(productCache.Close)
	tokens := session.NewMemoryTokenStore()

	catalog := services.NewCatalogService(client, productCache, logger)
	station := services.NewStationService(catalog, client, repository.NewMemoryJournal(), nil, logger)
	monitoring := services.NewMonitoringService(logger, &config.Config{}, nil, nil, productCache)

	h := Handlers{
		Auth:    handlers.NewAuthHandler(client, tokens, logger),
		Cart:    handlers.NewCartHandler(station, logger),
		Catalog: handlers.NewCatalogHandler(catalog, productCache, logger),
		Export:  handlers.NewExportHandler(station, logger),
		StationWS: handlers.NewStationWSHandler(station, catalog,
			config.ScannerConfig{}, config.SearchConfig{}, logger),
		Monitoring: handlers.NewMonitoringHandler(monitoring, logger),
	}

	router := gin.New()
	SetupRoutes(router, h, middleware.NewHealthChecker(nil, nil, client, logger), tokens, logger)
	return &routesEnv{router: router, tokens: tokens, cache: productCache}
}

func (e *routesEnv) serve(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func cached(t *testing.T, pc *cache.ProductCache, account int, barcode string) bool {
	t.Helper()
	p, _ := pc.GetProduct(cache.WithAccount(context.Background(), account), barcode)
	return p != nil
}

func TestCacheRoutes_RequireStationSession(t *testing.T) {
	env := newRoutesEnv(t)
	ctx := cache.WithAccount(context.Background(), 1)
	require.NoError(t, env.cache.SetProduct(ctx, "7891000100103", &models.Product{ID: 1, Name: "Arroz"}))

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/v1/stations/caixa-1/cache"},
		{http.MethodGet, "/api/v1/stations/caixa-1/cache/stats"},
		{http.MethodPost, "/api/v1/stations/caixa-1/cache/warm"},
	} {
		w := env.serve(tc.method, tc.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "login_required", body["error"])
	}

	assert.True(t, cached(t, env.cache, 1, "7891000100103"))
}

func TestCacheRoutes_NoGlobalAdminRoute(t *testing.T) {
	env := newRoutesEnv(t)

	assert.Equal(t, http.StatusNotFound, env.serve(http.MethodDelete, "/api/v1/cache").Code)
	assert.Equal(t, http.StatusNotFound, env.serve(http.MethodGet, "/api/v1/cache/stats").Code)
}

func TestCacheRoutes_InvalidateOnlyStationAccount(t *testing.T) {
	env := newRoutesEnv(t)
	require.NoError(t, env.tokens.Set(context.Background(), "caixa-1", session.Session{Token: "tok-1", AccountID: 1}))

	require.NoError(t, env.cache.SetProduct(cache.WithAccount(context.Background(), 1), "7891000100103", &models.Product{ID: 1, Name: "Arroz"}))
	require.NoError(t, env.cache.SetProduct(cache.WithAccount(context.Background(), 2), "7891000100103", &models.Product{ID: 9, Name: "Feijão"}))

	w := env.serve(http.MethodDelete, "/api/v1/stations/caixa-1/cache")
	require.Equal(t, http.StatusOK, w.Code)

	assert.False(t, cached(t, env.cache, 1, "7891000100103"))
	assert.True(t, cached(t, env.cache, 2, "7891000100103"))
}
