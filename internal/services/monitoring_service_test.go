package services

import (
	"context"
	"testing"
	"time"

	"romaneio-service/internal/cache"
	"romaneio-service/internal/config"
	"romaneio-service/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newMonitoring(t *testing.T) MonitoringService {
	t.Helper()
	pc := cache.NewProductCache(nil, 10, time.Minute, zap.NewNop())
	t.Cleanup(pc.Close)
	cfg := &config.Config{Server: config.ServerConfig{GinMode: "debug"}}
	return NewMonitoringService(zap.NewNop(), cfg, nil, nil, pc)
}

func TestMonitoring_RecordRequest(t *testing.T) {
	m := newMonitoring(t)
	now := time.Now()

	m.RecordRequest(models.RequestData{Endpoint: "/cart", Method: "GET", Duration: 10 * time.Millisecond, StatusCode: 200, Timestamp: now})
	m.RecordRequest(models.RequestData{Endpoint: "/cart", Method: "GET", Duration: 30 * time.Millisecond, StatusCode: 200, Timestamp: now})
	m.RecordRequest(models.RequestData{Endpoint: "/cart/finalize", Method: "POST", Duration: 1500 * time.Millisecond, StatusCode: 409, Timestamp: now})

	metrics := m.GetMetrics(context.Background())
	assert.Equal(t, 3, metrics.Requests.TotalRequests)
	assert.Equal(t, 2, metrics.Requests.Total)
	assert.Equal(t, 1, metrics.Requests.SlowRequestsCount)
	assert.Equal(t, 1, metrics.Requests.ErrorsCount)
	assert.Equal(t, "GET /cart", metrics.Requests.TopEndpoints[0].Endpoint)
	assert.Equal(t, 20.0, metrics.Requests.ByEndpoint["GET /cart"].AvgTime)
	assert.Equal(t, "development", metrics.System.Environment)
}

func TestMonitoring_OptionalBackendsDisabled(t *testing.T) {
	m := newMonitoring(t)

	assert.Equal(t, statusDisabled, m.GetDatabaseStats(context.Background()).Status)
	redis := m.GetRedisStats(context.Background())
	assert.Equal(t, statusDisabled, redis.Status)
	assert.False(t, redis.Connected)
}

func TestMonitoring_RomaneioActivity(t *testing.T) {
	m := newMonitoring(t)
	m.TrackStations(func() int { return 3 })

	m.RecordScan(string(OutcomeResolved), false)
	m.RecordScan(string(OutcomeAmbiguous), false)
	m.RecordScan(string(OutcomeNotFound), true)
	m.RecordFinalize(false, false)
	m.RecordFinalize(true, true)

	stats := m.GetRomaneioStats()
	assert.Equal(t, 3, stats.ActiveStations)
	assert.Equal(t, int64(3), stats.Scans)
	assert.Equal(t, int64(1), stats.Resolved)
	assert.Equal(t, int64(1), stats.Ambiguous)
	assert.Equal(t, int64(1), stats.NotFound)
	assert.Equal(t, int64(1), stats.Degraded)
	assert.Equal(t, int64(1), stats.Finalized)
	assert.Equal(t, int64(1), stats.PartialFailures)
	assert.Equal(t, int64(1), stats.Retries)
}

func TestParseUsedMemory(t *testing.T) {
	raw, mb := parseUsedMemory("# Memory\r\nused_memory:2097152\r\nused_memory_human:2.00M\r\n")
	assert.Equal(t, "2097152", raw)
	assert.Equal(t, "2.00 MB", mb)
}
