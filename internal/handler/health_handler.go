package handler

import (
	"net/http"

	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/model"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	clock clock.Clock
}

func NewHealthHandler(clk clock.Clock) *HealthHandler {
	return &HealthHandler{clock: clk}
}

func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": model.NewTimestamp(h.clock.Now()),
	})
}
