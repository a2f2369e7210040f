package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type upstreamFunc func(ctx context.Context) error

func (f upstreamFunc) Health(ctx context.Context) error { return f(ctx) }

func healthRouter(upstream UpstreamChecker) *gin.Engine {
	router := gin.New()
	router.GET("/health", NewHealthChecker(nil, nil, upstream, zap.NewNop()).HealthCheck)
	return router
}

func TestHealthCheck_OptionalDepsDisabled(t *testing.T) {
	router := healthRouter(upstreamFunc(func(context.Context) error { return nil }))

	w := get(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status   string                       `json:"status"`
		Services map[string]map[string]string `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Services["backend"]["status"])
	assert.Equal(t, "disabled", body.Services["postgresql"]["status"])
	assert.Equal(t, "disabled", body.Services["redis"]["status"])
}

func TestHealthCheck_BackendDown(t *testing.T) {
	router := healthRouter(upstreamFunc(func(context.Context) error { return errors.New("connection refused") }))

	w := get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}

func TestDegrade(t *testing.T) {
	assert.Equal(t, "degraded", degrade("healthy"))
	assert.Equal(t, "unhealthy", degrade("unhealthy"))
}
