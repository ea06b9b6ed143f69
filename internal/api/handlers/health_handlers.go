package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-service/portfolio_service/pkg/health"
	"github.com/portfolio-service/portfolio_service/pkg/version"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checker *health.HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

var startTime = time.Now()

// Health performs comprehensive health checks
func (h *HealthHandler) Health(c *gin.Context) {
	status, checks := h.checker.Check(c.Request.Context())

	statusCode := http.StatusOK
	if status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   version.Get().Version,
		Checks:    checks,
	})
}

// Ready checks if the application is ready to serve traffic
func (h *HealthHandler) Ready(c *gin.Context) {
	status, checks := h.checker.Check(c.Request.Context())

	ready := status != health.StatusUnhealthy
	statusCode := http.StatusOK
	state := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		state = "not_ready"
	}

	c.JSON(statusCode, gin.H{
		"status":    state,
		"timestamp": time.Now(),
		"checks":    checks,
	})
}

// Live checks if the application is alive
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
	})
}

// Version returns build information
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
