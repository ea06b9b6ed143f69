package rebalance

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

const (
	// weightScale is the decimal scale of portfolio weights.
	weightScale = 6
	// normalizeScale is the scale of normalized target weights.
	normalizeScale = 4
	// weightSumTolerance is the allowed deviation of the target weight
	// sum from 1.
	weightSumTolerance = "0.0005"
	// deadband suppresses trades whose weight drift is within noise.
	deadband = "0.005"
	// feeRate estimates transaction cost per traded amount.
	feeRate = "0.001"
)

var (
	one               = decimal.NewFromInt(1)
	deadbandThreshold = decimal.RequireFromString(deadband)
	estimatedFeeRate  = decimal.RequireFromString(feeRate)
	weightSumEpsilon  = decimal.RequireFromString(weightSumTolerance)
)

// Service compares current portfolio weights against target allocations
// and recommends the trades that close the gap.
type Service struct {
	portfolioRepo  repositories.PortfolioRepository
	targetRepo     repositories.TargetRepository
	instrumentRepo repositories.InstrumentRepository
	valuationSvc   *valuation.Service
	logger         *logger.Logger
}

// NewService creates a new rebalance service
func NewService(
	portfolioRepo repositories.PortfolioRepository,
	targetRepo repositories.TargetRepository,
	instrumentRepo repositories.InstrumentRepository,
	valuationSvc *valuation.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		portfolioRepo:  portfolioRepo,
		targetRepo:     targetRepo,
		instrumentRepo: instrumentRepo,
		valuationSvc:   valuationSvc,
		logger:         log,
	}
}

// SetTargets replaces the portfolio's target allocation set. Weights must
// sum to 1 within a small tolerance; with normalize set an off-sum input
// is scaled proportionally instead of rejected.
func (s *Service) SetTargets(ctx context.Context, portfolioID string, targets []entities.TargetAllocation, normalize bool) ([]entities.TargetAllocation, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidTargets, "at least one target allocation is required")
	}

	total := decimal.Zero
	for i := range targets {
		if targets[i].InstrumentID == "" {
			return nil, errors.New(errors.ErrCodeInvalidTargets, "target instrument id is required")
		}
		if !targets[i].TargetWeight.IsPositive() || targets[i].TargetWeight.GreaterThan(one) {
			return nil, errors.New(errors.ErrCodeInvalidTargets, "target weight must be in (0, 1]").
				AddDetail("instrument_id", targets[i].InstrumentID).
				AddDetail("weight", targets[i].TargetWeight.String())
		}
		total = total.Add(targets[i].TargetWeight)
	}

	if total.Sub(one).Abs().GreaterThan(weightSumEpsilon) {
		if !normalize {
			return nil, errors.New(errors.ErrCodeInvalidTargets, "target weights must sum to 1").
				AddDetail("sum", total.String())
		}
		for i := range targets {
			targets[i].TargetWeight = targets[i].TargetWeight.DivRound(total, normalizeScale)
		}
	}

	for i := range targets {
		targets[i].ID = uuid.New().String()
		targets[i].PortfolioID = portfolioID
	}

	if err := s.targetRepo.ReplaceForPortfolio(ctx, portfolioID, targets); err != nil {
		return nil, err
	}

	s.logger.Infow("replaced target allocations",
		"portfolio_id", portfolioID,
		"targets", len(targets),
		"normalized", normalize && !total.Sub(one).Abs().LessThanOrEqual(weightSumEpsilon))

	return targets, nil
}

// GetTargets returns the portfolio's current target allocation set.
func (s *Service) GetTargets(ctx context.Context, portfolioID string) ([]entities.TargetAllocation, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.targetRepo.ListForPortfolio(ctx, portfolioID)
}

// Analyze values the portfolio and compares current weight (cash
// included in the denominator) against target weight for every
// instrument that is held or targeted; a held position without a target
// counts as target weight zero. A trade is recommended wherever the
// drift exceeds the deadband.
func (s *Service) Analyze(ctx context.Context, portfolioID string) (*entities.RebalanceAnalysis, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	targets, err := s.targetRepo.ListForPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	current, err := s.valuationSvc.Valuate(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	totalValue := current.TotalValue
	if len(targets) == 0 {
		return s.emptyAnalysis(portfolioID, totalValue, current.CashValue), nil
	}

	positionsByInstrument := make(map[string]entities.PositionValuation, len(current.Positions))
	for _, pos := range current.Positions {
		positionsByInstrument[pos.InstrumentID] = pos
	}

	// The comparison set is the union of targeted and held instruments;
	// a position without a target must still drift toward zero.
	targetWeights := make(map[string]decimal.Decimal, len(targets))
	instrumentIDs := make([]string, 0, len(targets)+len(current.Positions))
	for _, target := range targets {
		targetWeights[target.InstrumentID] = target.TargetWeight
		instrumentIDs = append(instrumentIDs, target.InstrumentID)
	}
	for _, pos := range current.Positions {
		if _, ok := targetWeights[pos.InstrumentID]; !ok {
			targetWeights[pos.InstrumentID] = decimal.Zero
			instrumentIDs = append(instrumentIDs, pos.InstrumentID)
		}
	}

	comparisons := make([]entities.WeightComparison, 0, len(instrumentIDs))
	trades := make([]entities.TradeRecommendation, 0)
	totalFee := decimal.Zero
	maxDrift := decimal.Zero

	for _, instrumentID := range instrumentIDs {
		targetWeight := targetWeights[instrumentID]

		currentValue := decimal.Zero
		if pos, ok := positionsByInstrument[instrumentID]; ok {
			currentValue = pos.MarketValue
		}

		currentWeight := decimal.Zero
		if totalValue.IsPositive() {
			currentWeight = currentValue.DivRound(totalValue, weightScale)
		}

		targetValue := totalValue.Mul(targetWeight).Round(0)
		diffValue := targetValue.Sub(currentValue)
		difference := targetWeight.Sub(currentWeight)

		name := s.instrumentName(ctx, instrumentID)

		comparisons = append(comparisons, entities.WeightComparison{
			InstrumentID:   instrumentID,
			InstrumentName: name,
			CurrentWeight:  currentWeight,
			TargetWeight:   targetWeight,
			Difference:     difference,
			CurrentValue:   currentValue.Round(0),
			TargetValue:    targetValue,
			DiffValue:      diffValue,
		})

		if drift := difference.Abs(); drift.GreaterThan(maxDrift) {
			maxDrift = drift
		}

		if difference.Abs().GreaterThan(deadbandThreshold) {
			action := entities.TradeActionBuy
			if diffValue.IsNegative() {
				action = entities.TradeActionSell
			}
			fee := diffValue.Abs().Mul(estimatedFeeRate).Round(0)
			trades = append(trades, entities.TradeRecommendation{
				InstrumentID:   instrumentID,
				InstrumentName: name,
				Action:         action,
				Amount:         diffValue.Abs().Round(0),
				EstimatedFee:   fee,
			})
			totalFee = totalFee.Add(fee)
		}
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].Difference.Abs().GreaterThan(comparisons[j].Difference.Abs())
	})
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Amount.GreaterThan(trades[j].Amount)
	})

	cashWeight := decimal.Zero
	if totalValue.IsPositive() {
		cashWeight = current.CashValue.DivRound(totalValue, weightScale)
	}

	analysis := &entities.RebalanceAnalysis{
		PortfolioID:       portfolioID,
		TotalValue:        totalValue.Round(0),
		CashBalance:       current.CashValue.Round(0),
		CashWeight:        cashWeight,
		Comparisons:       comparisons,
		Trades:            trades,
		TotalEstimatedFee: totalFee,
		NeedsRebalancing:  len(trades) > 0,
		MaxDrift:          maxDrift,
	}

	s.logger.Debugw("rebalance analysis computed",
		"portfolio_id", portfolioID,
		"trades", len(trades),
		"max_drift", maxDrift)

	return analysis, nil
}

// emptyAnalysis is the degenerate answer for a portfolio without targets:
// everything counts as cash and nothing needs trading.
func (s *Service) emptyAnalysis(portfolioID string, totalValue, cashBalance decimal.Decimal) *entities.RebalanceAnalysis {
	return &entities.RebalanceAnalysis{
		PortfolioID:       portfolioID,
		TotalValue:        totalValue.Round(0),
		CashBalance:       cashBalance.Round(0),
		CashWeight:        one,
		Comparisons:       []entities.WeightComparison{},
		Trades:            []entities.TradeRecommendation{},
		TotalEstimatedFee: decimal.Zero,
		NeedsRebalancing:  false,
		MaxDrift:          decimal.Zero,
	}
}

func (s *Service) instrumentName(ctx context.Context, instrumentID string) string {
	instrument, err := s.instrumentRepo.GetByID(ctx, instrumentID)
	if err != nil || instrument.Name == "" {
		return instrumentID
	}
	return instrument.Name
}
