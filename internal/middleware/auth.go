package middleware

import (
	"errors"
	"net/http"
	"regexp"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cache"
	"romaneio-service/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const stationKey = "station"

var stationPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// StationParam valida el id de estación de la ruta
func StationParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		station := c.Param("station")
		if !stationPattern.MatchString(station) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "❌ Estación inválida",
				"error":   "station must match " + stationPattern.String(),
			})
			return
		}
		c.Set(stationKey, station)
		c.Next()
	}
}

// StationAuth carga el token y la cuenta de la estación en el contexto del
// request. Sin sesión responde 401 login_required.
func StationAuth(tokens session.TokenStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		station := c.Param("station")
		ctx := c.Request.Context()

		sess, err := tokens.Get(ctx, station)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				logger.Error("❌ Error leyendo sesión", zap.String("station", station), zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "❌ Sesión no iniciada",
				"error":   "login_required",
			})
			return
		}

		scoped := cache.WithAccount(apiclient.WithToken(ctx, sess.Token), sess.AccountID)
		c.Request = c.Request.WithContext(scoped)
		c.Next()

		// Token rechazado por el backend: se descarta para forzar un nuevo login
		if c.Writer.Status() == http.StatusUnauthorized {
			if err := tokens.Clear(ctx, station); err != nil {
				logger.Warn("No se pudo limpiar la sesión", zap.String("station", station), zap.Error(err))
			}
		}
	}
}
