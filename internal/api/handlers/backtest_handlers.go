package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/backtest"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// BacktestHandler handles backtest configuration and run endpoints.
type BacktestHandler struct {
	backtestSvc *backtest.Service
	logger      *logger.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(backtestSvc *backtest.Service, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		backtestSvc: backtestSvc,
		logger:      log,
	}
}

// CreateConfig validates and stores a simulation config.
func (h *BacktestHandler) CreateConfig(c *gin.Context) {
	var config entities.BacktestConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := h.backtestSvc.CreateConfig(c.Request.Context(), &config)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetConfig returns a stored simulation config.
func (h *BacktestHandler) GetConfig(c *gin.Context) {
	config, err := h.backtestSvc.GetConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, config)
}

// ListConfigs returns all stored configs in creation order.
func (h *BacktestHandler) ListConfigs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"configs": h.backtestSvc.ListConfigs(c.Request.Context())})
}

type runRequest struct {
	ConfigID string                   `json:"configId"`
	Config   *entities.BacktestConfig `json:"config"`
}

// Run starts a simulation from a stored config id or an inline config.
func (h *BacktestHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	run, err := h.backtestSvc.Run(c.Request.Context(), req.ConfigID, req.Config)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if run.Status == entities.RunStatusFailed {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, run)
}

// GetRun returns the execution record of one run.
func (h *BacktestHandler) GetRun(c *gin.Context) {
	run, err := h.backtestSvc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns returns runs, optionally filtered by ?configId.
func (h *BacktestHandler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.backtestSvc.ListRuns(c.Request.Context(), c.Query("configId"))})
}

// GetResult returns the full output of a succeeded run.
func (h *BacktestHandler) GetResult(c *gin.Context) {
	result, err := h.backtestSvc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
