package handlers

import (
	"errors"
	"net/http"
	"time"

	"romaneio-service/internal/models"
	"romaneio-service/internal/romaneio"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartHandler maneja el carrito y el cierre del romaneio de una estación
type CartHandler struct {
	baseHandler
	stationService services.StationService
}

func NewCartHandler(stationService services.StationService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		baseHandler:    newBaseHandler(logger),
		stationService: stationService,
	}
}

// resolutionMessage texto de la notificación para cada resultado de lectura
func resolutionMessage(res *services.Resolution) string {
	var msg string
	switch res.Outcome {
	case services.OutcomeResolved:
		msg = "Produto adicionado: " + res.Product.Name
	case services.OutcomeAmbiguous:
		msg = "Vários produtos encontrados para " + res.Code + ". Digite o nome completo para escolher."
	default:
		msg = "CÓDIGO LIDO: " + res.Code + ". Este produto ainda não está cadastrado no sistema."
	}
	if res.Degraded {
		msg += " (falha de conexão com o servidor)"
	}
	return msg
}

func toResolveResponse(res *services.Resolution) models.ResolveResponse {
	resp := models.ResolveResponse{
		Code:       res.Code,
		Outcome:    string(res.Outcome),
		Product:    res.Product,
		Candidates: res.Candidates,
		Degraded:   res.Degraded,
		Message:    resolutionMessage(res),
	}
	if res.Outcome == services.OutcomeNotFound && res.Code != "" {
		resp.Draft = models.NewProductDraft(res.Code)
	}
	return resp
}

func (h *CartHandler) respondCart(c *gin.Context, message string, cart models.CartResponse) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    cart,
	})
}

// GetCart devuelve el carrito y el estado del romaneio
func (h *CartHandler) GetCart(c *gin.Context) {
	cart := h.stationService.Cart(stationParam(c))
	h.respondCart(c, "✅ Carrito obtenido", cart)
}

// AddItem agrega un producto por id (botón de la tabla de stock)
func (h *CartHandler) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	station := stationParam(c)
	cart, err := h.stationService.AddProduct(c.Request.Context(), station, req.ProductID)
	if err != nil {
		h.respondError(c, "❌ Error agregando producto", err)
		return
	}

	h.logSuccess("Producto agregado",
		zap.String("station", station),
		zap.Int("product_id", req.ProductID))
	h.respondCart(c, "✅ Producto agregado", cart)
}

// Scan resuelve un código leído o tipeado y lo agrega si es único
func (h *CartHandler) Scan(c *gin.Context) {
	start := time.Now()

	var req models.ScanRequest
	if !h.bindJSON(c, &req) {
		return
	}

	station := stationParam(c)
	h.logDebug("Lectura recibida", zap.String("station", station), zap.String("code", req.Code))

	res, cart, err := h.stationService.Scan(c.Request.Context(), station, req.Code)
	if err != nil {
		h.respondError(c, "❌ No se pudo agregar el producto", err)
		return
	}

	h.logInfo("Lectura procesada",
		zap.String("station", station),
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusOK, gin.H{
		"success": res.Outcome == services.OutcomeResolved,
		"message": resolutionMessage(res),
		"data": gin.H{
			"resolution": toResolveResponse(res),
			"cart":       cart,
		},
	})
}

// SetQuantity aplica el valor crudo del campo de cantidad
func (h *CartHandler) SetQuantity(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}
	var req models.SetQuantityRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cart, err := h.stationService.SetQuantity(stationParam(c), id, req.Quantity)
	if err != nil {
		h.respondError(c, "❌ Cantidad inválida", err)
		return
	}
	h.respondCart(c, "✅ Cantidad actualizada", cart)
}

// CommitQuantity cierra la edición de cantidad; cero o vacío elimina la línea
func (h *CartHandler) CommitQuantity(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	cart, err := h.stationService.CommitQuantity(stationParam(c), id)
	if err != nil {
		h.respondError(c, "❌ Error confirmando cantidad", err)
		return
	}
	h.respondCart(c, "✅ Cantidad confirmada", cart)
}

func (h *CartHandler) Increment(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}
	var req models.IncrementRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cart, err := h.stationService.Increment(stationParam(c), id, req.Delta)
	if err != nil {
		h.respondError(c, "❌ Error actualizando cantidad", err)
		return
	}
	h.respondCart(c, "✅ Cantidad actualizada", cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := productIDParam(c)
	if !ok {
		return
	}

	cart, err := h.stationService.RemoveItem(stationParam(c), id)
	if err != nil {
		h.respondError(c, "❌ Error eliminando producto", err)
		return
	}
	h.respondCart(c, "✅ Producto eliminado", cart)
}

// ResetCart vacía el carrito; desde FAILED descarta el lote pendiente
func (h *CartHandler) ResetCart(c *gin.Context) {
	station := stationParam(c)
	cart, err := h.stationService.Reset(station)
	if err != nil {
		h.respondError(c, "❌ No se puede vaciar el carrito", err)
		return
	}

	h.logInfo("Carrito vaciado", zap.String("station", station))
	h.respondCart(c, "✅ Carrito vaciado", cart)
}

// StockCheck compara el carrito con el stock actual
func (h *CartHandler) StockCheck(c *gin.Context) {
	check, err := h.stationService.StockCheck(c.Request.Context(), stationParam(c))
	if err != nil {
		h.respondError(c, "❌ Error verificando stock", err)
		return
	}

	message := "✅ Stock suficiente"
	if !check.OK {
		message = "⚠️ Algunos productos superan el stock disponible"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    check,
	})
}

// Finalize registra una salida por línea con un mismo número de romaneio
func (h *CartHandler) Finalize(c *gin.Context) {
	start := time.Now()

	var req models.FinalizeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	station := stationParam(c)
	h.logInfo("Finalizando romaneio",
		zap.String("station", station),
		zap.String("customer", req.CustomerName),
		zap.Bool("force", req.Force))

	result, err := h.stationService.Finalize(c.Request.Context(), station, req)
	if h.respondFinalizeError(c, result, err) {
		return
	}

	h.logSuccess("Romaneio finalizado",
		zap.String("station", station),
		zap.String("batch_id", result.BatchID),
		zap.Int("items", result.Total),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "✅ Romaneio " + result.BatchID + " finalizado",
		"data":    result,
	})
}

// Retry reenvía las líneas pendientes de un lote
func (h *CartHandler) Retry(c *gin.Context) {
	station := stationParam(c)
	batchID := c.Param("batch")
	if !romaneio.IsBatchID(batchID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Número de romaneio inválido",
			"error":   "invalid batch id",
		})
		return
	}

	result, err := h.stationService.Retry(c.Request.Context(), station, batchID)
	if h.respondFinalizeError(c, result, err) {
		return
	}

	h.logSuccess("Romaneio completado en reintento",
		zap.String("station", station),
		zap.String("batch_id", batchID))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Romaneio " + batchID + " finalizado",
		"data":    result,
	})
}

// respondFinalizeError responde faltantes de stock y envíos parciales con
// su detalle; devuelve true si ya respondió
func (h *CartHandler) respondFinalizeError(c *gin.Context, result *models.FinalizeResult, err error) bool {
	if err == nil {
		return false
	}

	var mismatch *services.StockMismatchError
	switch {
	case errors.As(err, &mismatch):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "⚠️ Estoque insuficiente para alguns itens. Confirme para enviar mesmo assim.",
			"error":   "stock_mismatch",
			"data":    gin.H{"mismatches": mismatch.Mismatches},
		})
	case errors.Is(err, romaneio.ErrPartialFinalize) && result != nil:
		h.logError("Romaneio parcial",
			zap.String("batch_id", result.BatchID),
			zap.Int("completed", result.Completed),
			zap.Int("total", result.Total),
			zap.String("failed_on", result.FailedOn))
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": result.Error,
			"error":   "partial_finalize",
			"data":    result,
		})
	default:
		h.respondError(c, "❌ Erro ao finalizar romaneio", err)
	}
	return true
}
