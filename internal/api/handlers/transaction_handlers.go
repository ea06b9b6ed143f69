package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/ledger"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// TransactionHandler handles ledger endpoints.
type TransactionHandler struct {
	ledgerSvc *ledger.Service
	logger    *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledgerSvc *ledger.Service, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledgerSvc: ledgerSvc,
		logger:    log,
	}
}

type transactionLegRequest struct {
	LegType      entities.LegType    `json:"legType"`
	InstrumentID *string             `json:"instrumentId"`
	Account      *string             `json:"account"`
	Currency     string              `json:"currency"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	Price        decimal.NullDecimal `json:"price"`
	Amount       decimal.Decimal     `json:"amount"`
	FxRateToBase decimal.NullDecimal `json:"fxRateToBase"`
}

type createTransactionRequest struct {
	Type       entities.TransactionType `json:"type"`
	OccurredAt *time.Time               `json:"occurredAt"`
	Note       string                   `json:"note"`
	Legs       []transactionLegRequest  `json:"legs"`
}

// Create posts a new double-entry transaction to a portfolio's ledger.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	legs := make([]entities.TransactionLeg, 0, len(req.Legs))
	for _, leg := range req.Legs {
		legs = append(legs, entities.TransactionLeg{
			LegType:      leg.LegType,
			InstrumentID: leg.InstrumentID,
			Account:      leg.Account,
			Currency:     leg.Currency,
			Quantity:     leg.Quantity,
			Price:        leg.Price,
			Amount:       leg.Amount,
			FxRateToBase: leg.FxRateToBase,
		})
	}

	var occurredAt time.Time
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	tx, err := h.ledgerSvc.CreateTransaction(
		c.Request.Context(),
		c.Param("id"),
		req.Type,
		occurredAt,
		req.Note,
		legs,
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// List returns a portfolio's non-void transactions. Supports optional
// type, from and to filters; the to date is inclusive.
func (h *TransactionHandler) List(c *gin.Context) {
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
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	filter := repositories.TransactionFilter{
		Type: entities.TransactionType(c.Query("type")),
		From: from,
		To:   to,
	}

	transactions, err := h.ledgerSvc.GetTransactions(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// Get returns a single transaction with its legs.
func (h *TransactionHandler) Get(c *gin.Context) {
	tx, err := h.ledgerSvc.GetTransaction(c.Request.Context(), c.Param("txId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// Void transitions a transaction to VOID. The transition is one-way.
func (h *TransactionHandler) Void(c *gin.Context) {
	tx, err := h.ledgerSvc.VoidTransaction(c.Request.Context(), c.Param("txId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}
