package handlers

import (
	"context"
	"net/http"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/models"
	"romaneio-service/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthAPI login contra el backend
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.Token, error)
	Me(ctx context.Context) (*models.User, error)
}

// AuthHandler login y logout de una estación
type AuthHandler struct {
	baseHandler
	api    AuthAPI
	tokens session.TokenStore
}

func NewAuthHandler(api AuthAPI, tokens session.TokenStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(logger),
		api:         api,
		tokens:      tokens,
	}
}

// Login obtiene un token del backend y lo guarda para la estación
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	station := stationParam(c)
	ctx := c.Request.Context()

	tok, err := h.api.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.respondError(c, "❌ Credenciales inválidas", err)
		return
	}

	// La cuenta separa el caché de productos entre estaciones de distintos dueños
	user, err := h.api.Me(apiclient.WithToken(ctx, tok.AccessToken))
	if err != nil {
		h.respondError(c, "❌ Error obteniendo usuario", err)
		return
	}

	sess := session.Session{Token: tok.AccessToken, AccountID: user.ID}
	if err := h.tokens.Set(ctx, station, sess); err != nil {
		h.respondError(c, "❌ Error guardando sesión", err)
		return
	}

	h.logSuccess("Estación autenticada",
		zap.String("station", station),
		zap.String("email", req.Email),
		zap.Int("account_id", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Sesión iniciada",
		"data":    gin.H{"station": station, "token_type": tok.TokenType, "user": user},
	})
}

// Me devuelve el usuario de la sesión; requiere StationAuth
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.api.Me(c.Request.Context())
	if err != nil {
		h.respondError(c, "❌ Error obteniendo usuario", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Usuario obtenido",
		"data":    user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	station := stationParam(c)
	if err := h.tokens.Clear(c.Request.Context(), station); err != nil {
		h.respondError(c, "❌ Error cerrando sesión", err)
		return
	}

	h.logInfo("Sesión cerrada", zap.String("station", station))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Sesión cerrada",
	})
}
