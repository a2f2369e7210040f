package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cart"
	"romaneio-service/internal/romaneio"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// errLoginRequired código que la vista usa para volver a la pantalla de login
const errLoginRequired = "login_required"

// baseHandler logging y validación comunes a los handlers de estación
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newBaseHandler(logger *zap.Logger) baseHandler {
	return baseHandler{
		validator: validator.New(),
		logger:    logger,
	}
}

// logDebug logs solo en modo debug
func (h *baseHandler) logDebug(msg string, fields ...zap.Field) {
	h.logger.Debug("🔍 [DEBUG] "+msg, fields...)
}

// logInfo logs en todos los modos
func (h *baseHandler) logInfo(msg string, fields ...zap.Field) {
	h.logger.Info("ℹ️ "+msg, fields...)
}

// logError logs errores en todos los modos
func (h *baseHandler) logError(msg string, fields ...zap.Field) {
	h.logger.Error("❌ "+msg, fields...)
}

// logSuccess logs de éxito en todos los modos
func (h *baseHandler) logSuccess(msg string, fields ...zap.Field) {
	h.logger.Info("✅ "+msg, fields...)
}

// bindJSON decodifica y valida el body; responde 400 si falla
func (h *baseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Error en el formato de datos",
			"error":   err.Error(),
		})
		return false
	}
	return h.validate(c, req)
}

func (h *baseHandler) validate(c *gin.Context, req interface{}) bool {
	if err := h.validator.Struct(req); err != nil {
		h.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Datos de entrada inválidos",
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// stationParam id de la estación de la ruta
func stationParam(c *gin.Context) string {
	return c.Param("station")
}

// productIDParam lee :id; responde 400 si no es un entero positivo
func productIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ ID de producto inválido",
			"error":   "product id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// respondError traduce errores de dominio y del backend a la respuesta HTTP
func (h *baseHandler) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	errCode := err.Error()

	var (
		apiErr     *apiclient.APIError
		transition *romaneio.TransitionError
	)
	switch {
	case apiclient.IsUnauthorized(err):
		status, errCode = http.StatusUnauthorized, errLoginRequired
	case errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, services.ErrNoDocument),
		errors.Is(err, services.ErrBatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, romaneio.ErrEmptyCart),
		errors.Is(err, romaneio.ErrInvalidItem):
		status = http.StatusBadRequest
	case errors.As(err, &transition),
		errors.Is(err, services.ErrRetryPending),
		errors.Is(err, services.ErrStockMismatch):
		status = http.StatusConflict
	case errors.As(err, &apiErr):
		// El detail del backend se muestra tal cual
		status = http.StatusBadGateway
		if apiErr.StatusCode < http.StatusInternalServerError {
			status = apiErr.StatusCode
		}
		if apiErr.Detail != "" {
			message = apiErr.Detail
		}
	}

	if status >= http.StatusInternalServerError {
		h.logError(message, zap.Int("status", status), zap.Error(err))
	} else {
		h.logInfo(message, zap.Int("status", status), zap.String("error", err.Error()))
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   errCode,
	})
}
