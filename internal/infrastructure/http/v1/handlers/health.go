package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizledger/internal/infrastructure/cache"
)

// Pinger reports whether the row store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store    Pinger
	resolver *cache.FieldResolver
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Pinger, resolver *cache.FieldResolver) *HealthHandler {
	return &HealthHandler{store: store, resolver: resolver}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"store": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"store": "healthy",
		},
	})
}

// Info returns application information and the resolved schema shape.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "bizledger",
		"version": "0.1.0",
	}
	if h.resolver != nil {
		body["schema"] = h.resolver.Stats()
	}
	c.JSON(http.StatusOK, body)
}
