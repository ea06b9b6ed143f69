package performance

import (
	"context"
	"time"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// Service computes time-weighted performance series and risk statistics
// over a date range, with optional synthetic benchmark comparison.
type Service struct {
	portfolioRepo repositories.PortfolioRepository
	valuationSvc  *valuation.Service
	logger        *logger.Logger
}

// NewService creates a new performance service
func NewService(
	portfolioRepo repositories.PortfolioRepository,
	valuationSvc *valuation.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		portfolioRepo: portfolioRepo,
		valuationSvc:  valuationSvc,
		logger:        log,
	}
}

// Performance builds the TWR series for [from, to] at the requested
// frequency, derives risk statistics from the un-resampled daily
// returns, and synthesizes the requested benchmark series.
func (s *Service) Performance(
	ctx context.Context,
	portfolioID string,
	from, to time.Time,
	frequency entities.Frequency,
	benchmarkIDs []string,
) (*entities.PerformanceResult, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, errors.InvalidInput("from must not be after to")
	}
	if frequency == "" {
		frequency = entities.FrequencyDaily
	}
	if !frequency.Valid() {
		return nil, errors.InvalidInput("unknown frequency: " + string(frequency))
	}

	dailyValues, err := s.valuationSvc.DailyValues(ctx, portfolioID, from, to)
	if err != nil {
		return nil, err
	}

	result := &entities.PerformanceResult{
		PortfolioID: portfolioID,
		From:        from.Format("2006-01-02"),
		To:          to.Format("2006-01-02"),
		Frequency:   frequency,
		DataPoints:  []entities.DataPoint{},
	}

	if len(dailyValues) >= 2 {
		twr := twrSeries(dailyValues)
		result.DataPoints = resample(twr, frequency)
		result.Stats = riskMetrics(dailyReturns(dailyValues))
	}

	for _, benchmarkID := range benchmarkIDs {
		result.Benchmarks = append(result.Benchmarks,
			SynthesizeBenchmark(benchmarkID, from, to, frequency))
	}

	metrics.PerformanceReportsTotal.Inc()
	s.logger.Debugw("computed performance",
		"portfolio_id", portfolioID,
		"from", result.From,
		"to", result.To,
		"points", len(result.DataPoints),
		"benchmarks", len(benchmarkIDs))

	return result, nil
}

// ComparisonCurve is one portfolio's return series in a comparison.
type ComparisonCurve struct {
	ID     string               `json:"id"`
	Label  string               `json:"label"`
	Points []entities.DataPoint `json:"points"`
}

// ComparisonStats is one portfolio's stats row in a comparison.
type ComparisonStats struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	entities.RiskMetrics
}

// ComparisonResult pairs return curves with a stats table across
// portfolios.
type ComparisonResult struct {
	Curves     []ComparisonCurve `json:"curves"`
	StatsTable []ComparisonStats `json:"statsTable"`
}

// Compare computes performance for 2 to 5 portfolios over the same range.
func (s *Service) Compare(
	ctx context.Context,
	portfolioIDs []string,
	from, to time.Time,
	frequency entities.Frequency,
) (*ComparisonResult, error) {
	if len(portfolioIDs) < 2 {
		return nil, errors.InvalidInput("at least 2 portfolios required")
	}
	if len(portfolioIDs) > 5 {
		return nil, errors.InvalidInput("maximum 5 portfolios allowed")
	}

	result := &ComparisonResult{}
	for _, portfolioID := range portfolioIDs {
		portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID)
		if err != nil {
			return nil, err
		}
		perf, err := s.Performance(ctx, portfolioID, from, to, frequency, nil)
		if err != nil {
			return nil, err
		}
		result.Curves = append(result.Curves, ComparisonCurve{
			ID:     portfolioID,
			Label:  portfolio.Name,
			Points: perf.DataPoints,
		})
		result.StatsTable = append(result.StatsTable, ComparisonStats{
			ID:          portfolioID,
			Label:       portfolio.Name,
			RiskMetrics: perf.Stats,
		})
	}
	return result, nil
}
