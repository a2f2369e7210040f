package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"romaneio-service/internal/models"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		logger:            logger,
	}
}

// GetMetrics maneja la petición HTTP para obtener métricas
func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	ctx := c.Request.Context()
	metrics := h.monitoringService.GetMetrics(ctx)

	logger.Info("Métricas obtenidas exitosamente",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int("total_endpoints", metrics.Requests.Total),
		zap.String("avg_response_time", metrics.Performance.AvgResponseTimeMs))

	c.JSON(http.StatusOK, metrics)
}

var metricsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Permitir todas las conexiones para desarrollo
	},
}

const (
	metricsDefaultInterval = 10 * time.Second
	metricsMinInterval     = 2 * time.Second
	metricsMaxInterval     = time.Minute
)

// metricsInterval lee ?interval=<segundos> acotado a [2s, 60s]
func metricsInterval(c *gin.Context) time.Duration {
	secs, err := strconv.Atoi(c.Query("interval"))
	if err != nil || secs <= 0 {
		return metricsDefaultInterval
	}
	d := time.Duration(secs) * time.Second
	switch {
	case d < metricsMinInterval:
		return metricsMinInterval
	case d > metricsMaxInterval:
		return metricsMaxInterval
	}
	return d
}

// WebSocketMetrics empuja métricas al tablero cada ?interval= segundos.
// El primer envío es inmediato.
func (h *MonitoringHandler) WebSocketMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "websocket_metrics"))
	interval := metricsInterval(c)

	conn, err := metricsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("Conexión WebSocket de métricas establecida", zap.Duration("interval", interval))

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	// El tablero no envía nada; leer solo detecta el cierre y procesa pongs
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	push := func() bool {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		metrics := h.monitoringService.GetMetrics(ctx)
		cancel()

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		ev := wsEvent{Type: "metrics", Data: metrics, Timestamp: time.Now()}
		if err := conn.WriteJSON(ev); err != nil {
			logger.Warn("Error enviando métricas por WebSocket", zap.Error(err))
			return false
		}
		logger.Debug("Métricas enviadas por WebSocket",
			zap.Int("total_requests", metrics.Requests.TotalRequests),
			zap.Int("active_stations", metrics.Romaneio.ActiveStations))
		return true
	}

	if !push() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	pinger := time.NewTicker(wsPingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-ticker.C:
			if !push() {
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			logger.Info("Conexión WebSocket de métricas cerrada por el cliente")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// GetStationActivity actividad de lectura y cierre con tasas derivadas
func (h *MonitoringHandler) GetStationActivity(c *gin.Context) {
	stats := h.monitoringService.GetRomaneioStats()

	rate := func(n, total int64) float64 {
		if total == 0 {
			return 0
		}
		return math.Round(float64(n)/float64(total)*10000) / 100
	}
	attempts := stats.Finalized + stats.PartialFailures

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Actividad de estaciones",
		"data": gin.H{
			"counters": stats,
			"rates": gin.H{
				"resolved_pct":        rate(stats.Resolved, stats.Scans),
				"not_found_pct":       rate(stats.NotFound, stats.Scans),
				"ambiguous_pct":       rate(stats.Ambiguous, stats.Scans),
				"degraded_pct":        rate(stats.Degraded, stats.Scans),
				"partial_failure_pct": rate(stats.PartialFailures, attempts),
			},
		},
	})
}

// RecordRequestMiddleware middleware para registrar requests
func (h *MonitoringHandler) RecordRequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Procesar request
		c.Next()

		// Calcular duración
		duration := time.Since(start)

		// Filtrar endpoints de monitoring
		path := c.Request.URL.Path
		if h.shouldSkipMonitoring(path) {
			return
		}

		// Se agrupa por ruta y no por URL para que cada estación no cree su propio endpoint
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = path
		}

		var reqErr error
		if last := c.Errors.Last(); last != nil {
			reqErr = last.Err
		}

		requestData := models.RequestData{
			Endpoint:   endpoint,
			Method:     c.Request.Method,
			Duration:   duration,
			StatusCode: c.Writer.Status(),
			Timestamp:  time.Now(),
			Error:      reqErr,
		}

		h.monitoringService.RecordRequest(requestData)
	}
}

// shouldSkipMonitoring determina si un endpoint debe ser excluido del monitoring
func (h *MonitoringHandler) shouldSkipMonitoring(path string) bool {
	excludedPaths := []string{
		"/api/v1/monitoring/metrics",
		"/api/v1/monitoring/metrics/summary",
		"/api/v1/monitoring/ws",
		"/api/v1/monitoring/stations",
		"/health/monitoring",
		"/health",
		"/",
	}

	for _, excludedPath := range excludedPaths {
		if path == excludedPath {
			return true
		}
	}

	return false
}

// HealthCheck estado de las dependencias opcionales vistas por el monitoring
func (h *MonitoringHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	redisMetrics := h.monitoringService.GetRedisStats(ctx)
	dbMetrics := h.monitoringService.GetDatabaseStats(ctx)

	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0",
		"services": gin.H{
			"database": dbMetrics.Status,
			"redis":    redisMetrics.Status,
			"cache":    h.monitoringService.GetCacheStats().Status,
		},
	}

	// "disabled" no degrada: la dependencia no está configurada
	if redisMetrics.Status == "offline" || dbMetrics.Status == "offline" {
		health["status"] = "degraded"
	}

	c.JSON(http.StatusOK, health)
}

// GetMetricsSummary endpoint para métricas resumidas
func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics_summary"))

	ctx := c.Request.Context()
	metrics := h.monitoringService.GetMetrics(ctx)

	// Crear resumen
	summary := gin.H{
		"requests": gin.H{
			"total":         metrics.Requests.TotalRequests,
			"endpoints":     metrics.Requests.Total,
			"errors":        metrics.Requests.ErrorsCount,
			"slow_requests": metrics.Requests.SlowRequestsCount,
		},
		"performance": gin.H{
			"avg_response_time": metrics.Performance.AvgResponseTimeMs,
			"max_response_time": metrics.Performance.MaxResponseTimeMs,
			"min_response_time": metrics.Performance.MinResponseTimeMs,
		},
		"cache": gin.H{
			"hit_rate":   metrics.Cache.HitRatePercentage,
			"total_keys": metrics.Cache.TotalKeys,
			"status":     metrics.Cache.Status,
		},
		"database": gin.H{
			"active_connections": metrics.Database.ActiveConnections,
			"in_use":             metrics.Database.InUse,
			"status":             metrics.Database.Status,
		},
		"system": gin.H{
			"memory_usage": metrics.System.MemoryUsage,
			"uptime":       metrics.System.UptimeHours,
			"platform":     metrics.System.Platform,
		},
		"redis": gin.H{
			"connected":    metrics.Redis.Connected,
			"keys":         metrics.Redis.Keys,
			"product_keys": metrics.Redis.ProductKeys,
			"sessions":     metrics.Redis.Sessions,
			"memory":       metrics.Redis.MemoryMB,
			"status":       metrics.Redis.Status,
		},
		"romaneio": gin.H{
			"active_stations":  metrics.Romaneio.ActiveStations,
			"scans":            metrics.Romaneio.Scans,
			"not_found":        metrics.Romaneio.NotFound,
			"finalized":        metrics.Romaneio.Finalized,
			"partial_failures": metrics.Romaneio.PartialFailures,
		},
		"timestamp": metrics.Timestamp,
	}

	logger.Info("Resumen de métricas generado",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.String("avg_response_time", metrics.Performance.AvgResponseTimeMs))

	c.JSON(http.StatusOK, summary)
}
