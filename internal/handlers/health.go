package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/services"
)

type HealthHandler struct {
	health *services.HealthService
	logger *logrus.Logger
}

func NewHealthHandler(health *services.HealthService, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{health: health, logger: logger}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
