// internal/handlers/health.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/rfp-backend/internal/i18n"
	"github.com/javajoker/rfp-backend/internal/services"
	"github.com/javajoker/rfp-backend/internal/utils"
)

type HealthHandler struct {
	version         string
	receiverService *services.EmailReceiverService
}

func NewHealthHandler(version string, receiverService *services.EmailReceiverService) *HealthHandler {
	return &HealthHandler{
		version:         version,
		receiverService: receiverService,
	}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   i18n.T(utils.GetLangFromContext(c), i18n.KeyHealthOK),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"poller":    pollerStatus(h.receiverService),
	})
}

// NoRoute answers unknown paths with a 404 envelope.
func NoRoute(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, i18n.KeyRouteNotFound), gin.H{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
}
