package handlers

import (
	"net/http"
	"strconv"

	"romaneio-service/internal/export"
	"romaneio-service/internal/models"
	"romaneio-service/internal/romaneio"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExportHandler genera los documentos del romaneio
type ExportHandler struct {
	baseHandler
	stationService services.StationService
}

func NewExportHandler(stationService services.StationService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		baseHandler:    newBaseHandler(logger),
		stationService: stationService,
	}
}

func (h *ExportHandler) format(c *gin.Context) (export.Format, bool) {
	var q models.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Parámetros inválidos",
			"error":   err.Error(),
		})
		return "", false
	}
	if !h.validate(c, &q) {
		return "", false
	}
	return export.Format(q.Format), true
}

func (h *ExportHandler) render(c *gin.Context, doc *models.Document, format export.Format) {
	out, err := export.Render(*doc, format)
	if err != nil {
		h.respondError(c, "❌ Error generando documento", err)
		return
	}

	h.logDebug("Documento generado",
		zap.String("batch_id", doc.BatchID),
		zap.String("format", string(format)))

	if format == export.FormatWhatsApp {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "✅ Link de WhatsApp generado",
			"data":    gin.H{"url": out.Body, "batch_id": doc.BatchID},
		})
		return
	}
	c.Data(http.StatusOK, out.ContentType, []byte(out.Body))
}

// ExportLast exporta el último romaneio finalizado de la estación
func (h *ExportHandler) ExportLast(c *gin.Context) {
	format, ok := h.format(c)
	if !ok {
		return
	}

	doc, err := h.stationService.LastDocument(stationParam(c))
	if err != nil {
		h.respondError(c, "❌ No hay romaneio finalizado", err)
		return
	}
	h.render(c, doc, format)
}

// ExportBatch regenera un romaneio histórico a partir de los datos congelados
func (h *ExportHandler) ExportBatch(c *gin.Context) {
	format, ok := h.format(c)
	if !ok {
		return
	}

	batchID := c.Param("batch")
	if !romaneio.IsBatchID(batchID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Número de romaneio inválido",
			"error":   "invalid batch id",
		})
		return
	}

	doc, err := h.stationService.Document(c.Request.Context(), batchID)
	if err != nil {
		h.respondError(c, "❌ Romaneio no encontrado", err)
		return
	}
	h.render(c, doc, format)
}

// History lista los romaneios emitidos, el más reciente primero
func (h *ExportHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	docs, err := h.stationService.History(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, "❌ Error obteniendo historial", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Historial obtenido",
		"data":    docs,
	})
}
