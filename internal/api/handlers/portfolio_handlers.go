package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// PortfolioHandler handles portfolio CRUD endpoints.
type PortfolioHandler struct {
	portfolioRepo repositories.PortfolioRepository
	logger        *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(portfolioRepo repositories.PortfolioRepository, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioRepo: portfolioRepo,
		logger:        log,
	}
}

type createPortfolioRequest struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"baseCurrency"`
}

// Create registers a new portfolio.
func (h *PortfolioHandler) Create(c *gin.Context) {
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondBadRequest(c, "name is required")
		return
	}
	if req.BaseCurrency == "" {
		req.BaseCurrency = "USD"
	}

	now := time.Now().UTC()
	portfolio := &entities.Portfolio{
		ID:           uuid.New().String(),
		Name:         req.Name,
		BaseCurrency: strings.ToUpper(req.BaseCurrency),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.portfolioRepo.Create(c.Request.Context(), portfolio); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, portfolio)
}

// List returns all portfolios in creation order.
func (h *PortfolioHandler) List(c *gin.Context) {
	portfolios, err := h.portfolioRepo.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"portfolios": portfolios})
}

// Get returns a single portfolio by id.
func (h *PortfolioHandler) Get(c *gin.Context) {
	portfolio, err := h.portfolioRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}
