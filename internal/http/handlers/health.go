package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/racegraph/internal/services"
)

type HealthHandler struct {
	health services.HealthService
}

func NewHealthHandler(health services.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.health == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	status := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
