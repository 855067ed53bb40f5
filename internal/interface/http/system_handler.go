package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/pkg/response"
)

type SystemHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewSystemHandler(svc *application.UserService, logger *logrus.Logger) *SystemHandler {
	return &SystemHandler{Svc: svc, Logger: logger}
}

// Health GET /api/auth/health
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.Svc.Health(c.Request.Context()); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("health check failed")
		}
		response.Fail(c, http.StatusServiceUnavailable, "unhealthy", gin.H{"status": "unhealthy", "redis": "disconnected"})
		return
	}
	response.OK(c, http.StatusOK, gin.H{"status": "healthy", "redis": "connected"}, "ok")
}

// Stats GET /api/stats
func (h *SystemHandler) Stats(c *gin.Context) {
	st, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, st, "stats")
}
