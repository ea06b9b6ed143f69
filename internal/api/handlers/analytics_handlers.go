package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/performance"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// AnalyticsHandler handles valuation and performance endpoints.
type AnalyticsHandler struct {
	valuationSvc   *valuation.Service
	performanceSvc *performance.Service
	logger         *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(valuationSvc *valuation.Service, performanceSvc *performance.Service, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		valuationSvc:   valuationSvc,
		performanceSvc: performanceSvc,
		logger:         log,
	}
}

// Valuation returns the portfolio's current market valuation.
func (h *AnalyticsHandler) Valuation(c *gin.Context) {
	result, err := h.valuationSvc.Valuate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Performance returns the TWR series and risk statistics for a range.
// The range defaults to the trailing year ending today.
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if to.IsZero() {
		now := time.Now().UTC()
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}

	var benchmarks []string
	if raw := c.Query("benchmarks"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				benchmarks = append(benchmarks, id)
			}
		}
	}

	result, err := h.performanceSvc.Performance(
		c.Request.Context(),
		c.Param("id"),
		from, to,
		entities.Frequency(c.Query("frequency")),
		benchmarks,
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type compareRequest struct {
	PortfolioIDs []string           `json:"portfolioIds"`
	From         string             `json:"from"`
	To           string             `json:"to"`
	Frequency    entities.Frequency `json:"frequency"`
}

// Compare computes performance for 2 to 5 portfolios over one range.
func (h *AnalyticsHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	from, err := time.Parse(dateLayout, req.From)
	if err != nil {
		respondBadRequest(c, "from must be formatted as YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, req.To)
	if err != nil {
		respondBadRequest(c, "to must be formatted as YYYY-MM-DD")
		return
	}

	result, err := h.performanceSvc.Compare(c.Request.Context(), req.PortfolioIDs, from, to, req.Frequency)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
