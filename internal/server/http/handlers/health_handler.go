package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/growthmart/internal/server/http/dto"
)

// HealthHandler reports storage reachability.
type HealthHandler struct {
	facade StatusFacade
}

func NewHealthHandler(facade StatusFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.facade.Health(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
