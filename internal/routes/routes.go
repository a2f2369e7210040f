package routes

import (
	"romaneio-service/internal/handlers"
	"romaneio-service/internal/middleware"
	"romaneio-service/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers agrupa los handlers HTTP registrados por SetupRoutes
type Handlers struct {
	Auth       *handlers.AuthHandler
	Cart       *handlers.CartHandler
	Catalog    *handlers.CatalogHandler
	Export     *handlers.ExportHandler
	StationWS  *handlers.StationWSHandler
	Monitoring *handlers.MonitoringHandler
}

// SetupRoutes configura todas las rutas de la aplicación
func SetupRoutes(router *gin.Engine, h Handlers, healthChecker *middleware.HealthChecker, tokens session.TokenStore, logger *zap.Logger) {
	v1 := router.Group("/api/v1")
	{
		station := v1.Group("/stations/:station", middleware.StationParam())
		{
			// Login es la única ruta de estación sin sesión
			station.POST("/auth/login", h.Auth.Login)

			authed := station.Group("", middleware.StationAuth(tokens, logger))
			{
				authed.GET("/auth/me", h.Auth.Me)
				authed.POST("/auth/logout", h.Auth.Logout)

				cart := authed.Group("/cart")
				{
					cart.GET("", h.Cart.GetCart)
					cart.POST("/items", h.Cart.AddItem)
					cart.POST("/scan", h.Cart.Scan)
					cart.PATCH("/items/:id", h.Cart.SetQuantity)
					cart.POST("/items/:id/commit", h.Cart.CommitQuantity)
					cart.POST("/items/:id/increment", h.Cart.Increment)
					cart.DELETE("/items/:id", h.Cart.RemoveItem)
					cart.DELETE("", h.Cart.ResetCart)
					cart.POST("/stock-check", h.Cart.StockCheck)
					cart.POST("/finalize", h.Cart.Finalize)
				}

				authed.GET("/export", h.Export.ExportLast)

				romaneios := authed.Group("/romaneios")
				{
					romaneios.GET("", h.Export.History)
					romaneios.GET("/:batch/export", h.Export.ExportBatch)
					romaneios.POST("/:batch/retry", h.Cart.Retry)
				}

				// Consultas al catálogo con el token de la estación
				authed.GET("/products/search", h.Catalog.SearchProducts)
				authed.GET("/products/resolve/:code", h.Catalog.ResolveCode)
				authed.POST("/products", h.Catalog.CreateProduct)
				authed.GET("/stock-levels", h.Catalog.StockLevels)
				authed.GET("/clients", h.Catalog.Clients)
				authed.POST("/clients", h.Catalog.CreateClient)
				authed.GET("/categories", h.Catalog.Categories)
				authed.GET("/plans/usage", h.Catalog.PlanUsage)

				// Caché de productos de la cuenta de la estación
				cache := authed.Group("/cache")
				{
					cache.GET("/stats", h.Catalog.GetCacheStats)
					cache.POST("/warm", h.Catalog.WarmCache)
					cache.DELETE("", h.Catalog.InvalidateCache)
				}

				authed.GET("/ws", h.StationWS.Serve)
			}
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", h.Monitoring.GetMetrics)
			monitoring.GET("/metrics/summary", h.Monitoring.GetMetricsSummary)
			monitoring.GET("/stations", h.Monitoring.GetStationActivity)
			monitoring.GET("/ws", h.Monitoring.WebSocketMetrics)
		}
	}

	router.GET("/health", healthChecker.HealthCheck)
	router.GET("/health/monitoring", h.Monitoring.HealthCheck)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Romaneio Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health": "/health",
				"api":    "/api/v1",
				"station": gin.H{
					"login":    "POST /api/v1/stations/:station/auth/login",
					"cart":     "GET /api/v1/stations/:station/cart",
					"scan":     "POST /api/v1/stations/:station/cart/scan",
					"finalize": "POST /api/v1/stations/:station/cart/finalize",
					"export":   "GET /api/v1/stations/:station/export?format=text|whatsapp|a4|thermal",
					"history":  "GET /api/v1/stations/:station/romaneios",
					"product":  "POST /api/v1/stations/:station/products",
					"client":   "POST /api/v1/stations/:station/clients",
					"cache":    "DELETE /api/v1/stations/:station/cache",
					"ws":       "GET /api/v1/stations/:station/ws",
				},
				"monitoring": "GET /api/v1/monitoring/metrics",
			},
		})
	})
}
