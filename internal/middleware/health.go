package middleware

import (
	"context"
	"net/http"
	"time"

	"romaneio-service/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 5 * time.Second

// UpstreamChecker verifica el backend REST del que depende el servicio
type UpstreamChecker interface {
	Health(ctx context.Context) error
}

// HealthChecker postgres y redis son opcionales; sin ellos se informan "disabled"
type HealthChecker struct {
	postgresDB *database.PostgresDB
	redisDB    *database.RedisDB
	upstream   UpstreamChecker
	logger     *zap.Logger
}

func NewHealthChecker(postgresDB *database.PostgresDB, redisDB *database.RedisDB, upstream UpstreamChecker, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		postgresDB: postgresDB,
		redisDB:    redisDB,
		upstream:   upstream,
		logger:     logger,
	}
}

func (h *HealthChecker) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	overall := "healthy"
	services := make(map[string]interface{})

	// Backend REST: sin él no hay lecturas ni romaneios
	apiStatus := "healthy"
	if err := h.upstream.Health(ctx); err != nil {
		apiStatus = "unhealthy"
		overall = "unhealthy"
		h.logger.Error("Backend health check failed", zap.Error(err))
	}
	services["backend"] = gin.H{"status": apiStatus}

	// PostgreSQL (journal de finalización)
	if h.postgresDB == nil {
		services["postgresql"] = gin.H{"status": "disabled"}
	} else {
		postgresStatus := "healthy"
		if err := h.postgresDB.Ping(ctx); err != nil {
			postgresStatus = "unhealthy"
			overall = degrade(overall)
			h.logger.Error("PostgreSQL health check failed", zap.Error(err))
		}

		postgresStats := h.postgresDB.GetStats()
		services["postgresql"] = gin.H{
			"status": postgresStatus,
			"stats": gin.H{
				"max_open_connections": postgresStats.MaxOpenConnections,
				"open_connections":     postgresStats.OpenConnections,
				"in_use":               postgresStats.InUse,
				"idle":                 postgresStats.Idle,
			},
		}
	}

	// Redis (caché L2 y sesiones)
	if h.redisDB == nil {
		services["redis"] = gin.H{"status": "disabled"}
	} else {
		redisStatus := "healthy"
		if err := h.redisDB.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			overall = degrade(overall)
			h.logger.Error("Redis health check failed", zap.Error(err))
		}

		var redisStats interface{} = "unavailable"
		if stats, err := h.redisDB.GetStats(ctx); err == nil {
			redisStats = stats
		} else {
			h.logger.Error("Failed to get Redis stats", zap.Error(err))
		}

		services["redis"] = gin.H{
			"status": redisStatus,
			"stats":  redisStats,
		}
	}

	httpStatus := http.StatusOK
	if overall == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    overall,
		"service":   "romaneio-service",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	})
}

// degrade una dependencia local caída no tumba el servicio: el journal cae a
// memoria y el caché a L1
func degrade(current string) string {
	if current == "unhealthy" {
		return current
	}
	return "degraded"
}
