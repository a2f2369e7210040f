package handlers

import (
	"net/http"
	"strings"
	"time"

	"romaneio-service/internal/cache"
	"romaneio-service/internal/models"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler consultas de productos, stock, clientes y plan
type CatalogHandler struct {
	baseHandler
	catalogService services.CatalogService
	productCache   *cache.ProductCache
}

func NewCatalogHandler(catalogService services.CatalogService, productCache *cache.ProductCache, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		baseHandler:    newBaseHandler(logger),
		catalogService: catalogService,
		productCache:   productCache,
	}
}

// ResolveCode resuelve un código sin tocar el carrito
func (h *CatalogHandler) ResolveCode(c *gin.Context) {
	start := time.Now()
	code := strings.TrimSpace(c.Param("code"))

	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Código de barras requerido",
			"error":   "El código de barras no puede estar vacío",
		})
		return
	}

	res := h.catalogService.ResolveCode(c.Request.Context(), code)

	status := http.StatusOK
	if res.Outcome == services.OutcomeNotFound {
		status = http.StatusNotFound
	}

	c.JSON(status, gin.H{
		"success": res.Outcome == services.OutcomeResolved,
		"message": resolutionMessage(res),
		"data": gin.H{
			"resolution": toResolveResponse(res),
			"cache_hit":  res.Source == "cache",
			"latency_ms": time.Since(start).Milliseconds(),
		},
	})
}

// SearchProducts búsqueda por texto para el autocompletado
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < 2 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "✅ Búsqueda vacía",
			"data":    []interface{}{},
		})
		return
	}

	items, err := h.catalogService.SearchProducts(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "❌ Error buscando productos", err)
		return
	}

	h.logDebug("Búsqueda de productos", zap.String("q", query), zap.Int("results", len(items)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Productos encontrados",
		"data":    items,
	})
}

// CreateProduct alta de producto; la vista lo abre con el draft del evento not_found
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "❌ Error creando producto", err)
		return
	}

	h.logSuccess("Producto creado",
		zap.String("station", stationParam(c)),
		zap.Int("product_id", product.ID))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "✅ Produto cadastrado: " + product.Name,
		"data":    product,
	})
}

func (h *CatalogHandler) CreateClient(c *gin.Context) {
	var req models.CreateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	client, err := h.catalogService.CreateClient(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "❌ Error creando cliente", err)
		return
	}

	h.logSuccess("Cliente creado",
		zap.String("station", stationParam(c)),
		zap.Int("client_id", client.ID))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "✅ Cliente cadastrado: " + client.Name,
		"data":    client,
	})
}

func (h *CatalogHandler) StockLevels(c *gin.Context) {
	levels, err := h.catalogService.StockLevels(c.Request.Context())
	if err != nil {
		h.respondError(c, "❌ Error obteniendo stock", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Stock obtenido",
		"data":    levels,
	})
}

func (h *CatalogHandler) Clients(c *gin.Context) {
	clients, err := h.catalogService.SearchClients(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, "❌ Error obteniendo clientes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Clientes obtenidos",
		"data":    clients,
	})
}

func (h *CatalogHandler) Categories(c *gin.Context) {
	categories, err := h.catalogService.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, "❌ Error obteniendo categorías", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Categorías obtenidas",
		"data":    categories,
	})
}

func (h *CatalogHandler) PlanUsage(c *gin.Context) {
	usage, err := h.catalogService.PlanUsage(c.Request.Context())
	if err != nil {
		h.respondError(c, "❌ Error obteniendo uso del plan", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Uso del plan",
		"data":    usage,
	})
}

// WarmCache precarga en caché todos los productos con código de barras
func (h *CatalogHandler) WarmCache(c *gin.Context) {
	start := time.Now()

	loaded, err := h.catalogService.WarmCache(c.Request.Context())
	if err != nil {
		h.respondError(c, "❌ Error pre-cargando productos", err)
		return
	}

	h.logSuccess("Productos pre-cargados", zap.Int("loaded", loaded))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Productos pre-cargados correctamente",
		"data": gin.H{
			"productos_cargados": loaded,
			"cache_stats":        h.productCache.Stats(),
			"latency_ms":         time.Since(start).Milliseconds(),
		},
	})
}

// GetCacheStats obtiene estadísticas del caché
func (h *CatalogHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Estadísticas del caché",
		"data":    h.productCache.Stats(),
	})
}

// InvalidateCache borra un código (?barcode=) o todo el caché de productos
func (h *CatalogHandler) InvalidateCache(c *gin.Context) {
	ctx := c.Request.Context()

	if barcode := strings.TrimSpace(c.Query("barcode")); barcode != "" {
		if err := h.productCache.InvalidateProduct(ctx, barcode); err != nil {
			h.respondError(c, "❌ Error invalidando caché", err)
			return
		}
		h.logInfo("Código invalidado en caché", zap.String("barcode", barcode))
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "✅ Código invalidado",
			"data":    gin.H{"removed": 1},
		})
		return
	}

	removed, err := h.productCache.InvalidateAll(ctx)
	if err != nil {
		h.respondError(c, "❌ Error invalidando caché", err)
		return
	}

	h.logInfo("Caché de productos vaciado", zap.Int("removed", removed))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Caché vaciado",
		"data":    gin.H{"removed": removed},
	})
}
