package services

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"romaneio-service/internal/cache"
	"romaneio-service/internal/config"
	"romaneio-service/internal/database"
	"romaneio-service/internal/models"
	"romaneio-service/internal/session"

	"go.uber.org/zap"
)

const (
	statusOnline   = "online"
	statusOffline  = "offline"
	statusDisabled = "disabled"
)

type MonitoringService interface {
	ActivityRecorder
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	RecordRequest(data models.RequestData)
	GetCacheStats() models.CacheMetrics
	GetDatabaseStats(ctx context.Context) models.DatabaseMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
	GetRomaneioStats() models.RomaneioMetrics
	TrackStations(counter func() int)
}

type monitoringService struct {
	logger       *zap.Logger
	config       *config.Config
	redisDB      *database.RedisDB
	postgresDB   *database.PostgresDB
	productCache *cache.ProductCache
	stations     func() int

	// Métricas de requests
	requestsMutex sync.RWMutex
	requests      map[string]*models.EndpointMetrics
	slowRequests  []models.SlowRequest
	errors        []models.RequestError
	totalRequests int64

	// Actividad de estaciones
	activityMutex sync.Mutex
	activity      models.RomaneioMetrics

	startTime time.Time
}

// NewMonitoringService crea el servicio. postgresDB y redisDB pueden ser nil
// cuando esas dependencias no están configuradas.
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redisDB *database.RedisDB,
	postgresDB *database.PostgresDB,
	productCache *cache.ProductCache,
) MonitoringService {
	return &monitoringService{
		logger:       logger,
		config:       config,
		redisDB:      redisDB,
		postgresDB:   postgresDB,
		productCache: productCache,
		requests:     make(map[string]*models.EndpointMetrics),
		startTime:    time.Now(),
	}
}

// TrackStations conecta el conteo de estaciones activas
func (s *monitoringService) TrackStations(counter func() int) {
	s.activityMutex.Lock()
	s.stations = counter
	s.activityMutex.Unlock()
}

func (s *monitoringService) RecordScan(outcome string, degraded bool) {
	s.activityMutex.Lock()
	defer s.activityMutex.Unlock()

	s.activity.Scans++
	switch Outcome(outcome) {
	case OutcomeResolved:
		s.activity.Resolved++
	case OutcomeAmbiguous:
		s.activity.Ambiguous++
	default:
		s.activity.NotFound++
	}
	if degraded {
		s.activity.Degraded++
	}
}

func (s *monitoringService) RecordFinalize(completed, retry bool) {
	s.activityMutex.Lock()
	defer s.activityMutex.Unlock()

	if retry {
		s.activity.Retries++
	}
	if completed {
		s.activity.Finalized++
		return
	}
	s.activity.PartialFailures++
}

func (s *monitoringService) GetRomaneioStats() models.RomaneioMetrics {
	s.activityMutex.Lock()
	defer s.activityMutex.Unlock()

	stats := s.activity
	if s.stations != nil {
		stats.ActiveStations = s.stations()
	}
	return stats
}

func (s *monitoringService) RecordRequest(data models.RequestData) {
	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()

	endpointKey := fmt.Sprintf("%s %s", data.Method, data.Endpoint)

	metrics, exists := s.requests[endpointKey]
	if !exists {
		metrics = &models.EndpointMetrics{}
		s.requests[endpointKey] = metrics
	}

	metrics.Count++
	durationMs := data.Duration.Milliseconds()
	metrics.TotalTime += durationMs
	metrics.AvgTime = float64(metrics.TotalTime) / float64(metrics.Count)

	s.totalRequests++

	// Los romaneios grandes tardan por el envío secuencial; > 1000ms cuenta como lento
	if durationMs > 1000 {
		s.slowRequests = append(s.slowRequests, models.SlowRequest{
			Endpoint:  endpointKey,
			Duration:  durationMs,
			Timestamp: data.Timestamp,
		})
		if len(s.slowRequests) > 100 {
			s.slowRequests = s.slowRequests[1:]
		}
	}

	if data.Error != nil || data.StatusCode >= 400 {
		s.errors = append(s.errors, models.RequestError{
			Endpoint:   endpointKey,
			StatusCode: data.StatusCode,
			Timestamp:  data.Timestamp,
		})
		if len(s.errors) > 100 {
			s.errors = s.errors[1:]
		}
	}
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	s.requestsMutex.RLock()
	requestMetrics := s.calculateRequestMetrics()
	performanceMetrics := s.calculatePerformanceMetrics()
	s.requestsMutex.RUnlock()

	return &models.MonitoringResponse{
		Requests:    requestMetrics,
		Performance: performanceMetrics,
		Cache:       s.GetCacheStats(),
		Database:    s.GetDatabaseStats(ctx),
		System:      s.GetSystemStats(),
		Redis:       s.GetRedisStats(ctx),
		Romaneio:    s.GetRomaneioStats(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		GeneratedBy: "romaneio-service",
	}
}

func (s *monitoringService) calculateRequestMetrics() models.RequestMetrics {
	type endpointEntry struct {
		key     string
		metrics *models.EndpointMetrics
	}

	endpoints := make([]endpointEntry, 0, len(s.requests))
	byEndpoint := make(map[string]models.EndpointMetrics, len(s.requests))
	for key, metrics := range s.requests {
		endpoints = append(endpoints, endpointEntry{key, metrics})
		byEndpoint[key] = *metrics
	}

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].metrics.Count == endpoints[j].metrics.Count {
			return endpoints[i].key < endpoints[j].key
		}
		return endpoints[i].metrics.Count > endpoints[j].metrics.Count
	})

	var topEndpoints []models.TopEndpoint
	for i, endpoint := range endpoints {
		if i >= 10 {
			break
		}
		topEndpoints = append(topEndpoints, models.TopEndpoint{
			Endpoint:  endpoint.key,
			Count:     endpoint.metrics.Count,
			AvgTimeMs: fmt.Sprintf("%.2fms", endpoint.metrics.AvgTime),
		})
	}

	return models.RequestMetrics{
		Total:             len(s.requests),
		ByEndpoint:        byEndpoint,
		SlowRequests:      append([]models.SlowRequest(nil), s.slowRequests...),
		Errors:            append([]models.RequestError(nil), s.errors...),
		TotalRequests:     int(s.totalRequests),
		SlowRequestsCount: len(s.slowRequests),
		ErrorsCount:       len(s.errors),
		TopEndpoints:      topEndpoints,
	}
}

func (s *monitoringService) calculatePerformanceMetrics() models.PerformanceMetrics {
	var totalTime, maxAvg int64
	var minAvg int64 = math.MaxInt64
	var count int

	for _, metrics := range s.requests {
		totalTime += metrics.TotalTime
		count += metrics.Count
		avg := int64(metrics.AvgTime)
		if avg > maxAvg {
			maxAvg = avg
		}
		if avg < minAvg {
			minAvg = avg
		}
	}

	var avgTime float64
	if count > 0 {
		avgTime = float64(totalTime) / float64(count)
	}
	if minAvg == math.MaxInt64 {
		minAvg = 0
	}

	return models.PerformanceMetrics{
		AvgResponseTime:   avgTime,
		MaxResponseTime:   maxAvg,
		MinResponseTime:   minAvg,
		AvgResponseTimeMs: fmt.Sprintf("%.2fms", avgTime),
		MaxResponseTimeMs: fmt.Sprintf("%dms", maxAvg),
		MinResponseTimeMs: fmt.Sprintf("%dms", minAvg),
	}
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	cacheStats := s.productCache.GetStats()

	var hitRate float64
	if cacheStats.TotalRequests > 0 {
		hitRate = float64(cacheStats.Hits) / float64(cacheStats.TotalRequests)
	}

	return models.CacheMetrics{
		Connected:         true,
		TotalKeys:         cacheStats.TotalKeys,
		ByPrefix:          map[string]int{"product:barcode": cacheStats.TotalKeys},
		HitRate:           hitRate,
		Status:            statusOnline,
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate*100),
		TotalHits:         cacheStats.Hits,
		TotalMisses:       cacheStats.Misses,
		TotalRequests:     cacheStats.TotalRequests,
	}
}

func (s *monitoringService) GetDatabaseStats(ctx context.Context) models.DatabaseMetrics {
	if s.postgresDB == nil {
		return models.DatabaseMetrics{Status: statusDisabled}
	}

	status := statusOnline
	if err := s.postgresDB.Ping(ctx); err != nil {
		status = statusOffline
	}

	stats := s.postgresDB.GetStats()
	return models.DatabaseMetrics{
		ActiveConnections: stats.OpenConnections,
		IdleConnections:   stats.Idle,
		InUse:             stats.InUse,
		WaitCount:         stats.WaitCount,
		Status:            status,
	}
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.startTime).Seconds()

	environment := "production"
	if s.config.Server.GinMode == "debug" {
		environment = "development"
	}

	return models.SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		Uptime:      uptime,
		Memory: models.MemoryMetrics{
			HeapUsed:  fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024),
			HeapTotal: fmt.Sprintf("%.2f MB", float64(m.HeapSys)/1024/1024),
			External:  fmt.Sprintf("%.2f MB", float64(m.OtherSys)/1024/1024),
			RSS:       fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		UptimeHours: fmt.Sprintf("%.2fh", uptime/3600),
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		Platform:    runtime.GOOS,
		Environment: environment,
	}
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redisDB == nil {
		return models.RedisMetrics{Status: statusDisabled}
	}

	client := s.redisDB.Client
	connected := client.Ping(ctx).Err() == nil

	metrics := models.RedisMetrics{Connected: connected, Status: statusOffline}
	if !connected {
		return metrics
	}
	metrics.Status = statusOnline

	if n, err := client.DBSize(ctx).Result(); err == nil {
		metrics.Keys = int(n)
	}
	// Claves propias: productos cacheados y sesiones de estación
	if n, err := s.redisDB.CountKeys(ctx, cache.KeyPattern); err == nil {
		metrics.ProductKeys = n
	}
	if n, err := s.redisDB.CountKeys(ctx, session.KeyPattern); err == nil {
		metrics.Sessions = n
	}
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		metrics.Memory, metrics.MemoryMB = parseUsedMemory(info)
	}
	return metrics
}

// parseUsedMemory extrae used_memory de la salida de INFO memory
func parseUsedMemory(info string) (raw, mb string) {
	for _, line := range strings.Split(info, "\n") {
		if !strings.HasPrefix(line, "used_memory:") {
			continue
		}
		raw = strings.TrimSpace(strings.TrimPrefix(line, "used_memory:"))
		if memBytes, err := strconv.ParseInt(raw, 10, 64); err == nil {
			mb = fmt.Sprintf("%.2f MB", float64(memBytes)/1024/1024)
		}
		return raw, mb
	}
	return "", ""
}
