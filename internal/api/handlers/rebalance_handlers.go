package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/rebalance"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// RebalanceHandler handles target allocation and rebalance endpoints.
type RebalanceHandler struct {
	rebalanceSvc *rebalance.Service
	logger       *logger.Logger
}

// NewRebalanceHandler creates a new rebalance handler
func NewRebalanceHandler(rebalanceSvc *rebalance.Service, log *logger.Logger) *RebalanceHandler {
	return &RebalanceHandler{
		rebalanceSvc: rebalanceSvc,
		logger:       log,
	}
}

type targetRequest struct {
	InstrumentID string              `json:"instrumentId"`
	AssetClass   string              `json:"assetClass"`
	TargetWeight decimal.Decimal     `json:"targetWeight"`
	MinWeight    decimal.NullDecimal `json:"minWeight"`
	MaxWeight    decimal.NullDecimal `json:"maxWeight"`
}

type setTargetsRequest struct {
	Targets []targetRequest `json:"targets"`
}

// SetTargets replaces a portfolio's target allocation set. With
// ?normalize=true off-sum weights are scaled to sum to 1 instead of
// being rejected.
func (h *RebalanceHandler) SetTargets(c *gin.Context) {
	var req setTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	targets := make([]entities.TargetAllocation, 0, len(req.Targets))
	for _, target := range req.Targets {
		targets = append(targets, entities.TargetAllocation{
			InstrumentID: target.InstrumentID,
			AssetClass:   target.AssetClass,
			TargetWeight: target.TargetWeight,
			MinWeight:    target.MinWeight,
			MaxWeight:    target.MaxWeight,
		})
	}

	normalize := c.Query("normalize") == "true"
	saved, err := h.rebalanceSvc.SetTargets(c.Request.Context(), c.Param("id"), targets, normalize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"targets": saved})
}

// GetTargets returns a portfolio's active target allocation set.
func (h *RebalanceHandler) GetTargets(c *gin.Context) {
	targets, err := h.rebalanceSvc.GetTargets(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"targets": targets})
}

// Analyze compares current weights against targets and recommends
// trades for positions drifted beyond the dead band.
func (h *RebalanceHandler) Analyze(c *gin.Context) {
	analysis, err := h.rebalanceSvc.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}
