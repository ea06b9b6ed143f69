package valuation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/ledger"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

const weightScale = 6

// Service computes point-in-time portfolio valuations by folding the
// ledger and marking positions to market.
type Service struct {
	portfolioRepo  repositories.PortfolioRepository
	txRepo         repositories.TransactionRepository
	instrumentRepo repositories.InstrumentRepository
	oracle         repositories.PriceOracle
	logger         *logger.Logger
}

// NewService creates a new valuation service
func NewService(
	portfolioRepo repositories.PortfolioRepository,
	txRepo repositories.TransactionRepository,
	instrumentRepo repositories.InstrumentRepository,
	oracle repositories.PriceOracle,
	log *logger.Logger,
) *Service {
	return &Service{
		portfolioRepo:  portfolioRepo,
		txRepo:         txRepo,
		instrumentRepo: instrumentRepo,
		oracle:         oracle,
		logger:         log,
	}
}

// Valuate computes the current valuation of a portfolio: market value,
// unrealized and realized P&L and weight per position, plus cash.
// A missing current price propagates as PriceUnavailable, never a
// silent zero.
func (s *Service) Valuate(ctx context.Context, portfolioID string) (*entities.PortfolioValuation, error) {
	portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID)
	if err != nil {
		metrics.RecordValuation("error")
		return nil, err
	}

	transactions, err := s.txRepo.ListPostedWithLegs(ctx, portfolioID, repositories.TransactionFilter{})
	if err != nil {
		metrics.RecordValuation("error")
		return nil, err
	}

	acc := ledger.Accumulate(transactions, time.Time{})

	positions := make([]entities.PositionValuation, 0, len(acc.Positions))
	totalAssetValue := decimal.Zero

	for _, instrumentID := range acc.InstrumentIDs() {
		pos := acc.Positions[instrumentID]

		price, err := s.oracle.CurrentPrice(ctx, instrumentID)
		if err != nil {
			metrics.RecordValuation("price_unavailable")
			return nil, errors.PriceUnavailable(instrumentID).AddDetail("portfolio_id", portfolioID)
		}

		marketValue := pos.Quantity.Mul(price)
		costBasis := pos.Quantity.Mul(pos.AvgCost)

		pv := entities.PositionValuation{
			InstrumentID:  instrumentID,
			Ticker:        instrumentID,
			AssetClass:    "EQUITY",
			Quantity:      pos.Quantity,
			AvgCost:       pos.AvgCost,
			MarketPrice:   price,
			MarketValue:   marketValue,
			UnrealizedPnl: marketValue.Sub(costBasis),
			RealizedPnl:   pos.RealizedPnl,
		}
		s.attachInstrumentInfo(ctx, &pv)

		totalAssetValue = totalAssetValue.Add(marketValue)
		positions = append(positions, pv)
	}

	// weight denominator: |asset total|, 1 when flat to avoid div by zero
	weightBase := totalAssetValue.Abs()
	if weightBase.IsZero() {
		weightBase = decimal.NewFromInt(1)
	}
	totalCostBasis := decimal.Zero
	for i := range positions {
		positions[i].Weight = positions[i].MarketValue.Abs().DivRound(weightBase, weightScale)
		totalCostBasis = totalCostBasis.Add(positions[i].Quantity.Mul(positions[i].AvgCost))
	}

	valuation := &entities.PortfolioValuation{
		PortfolioID: portfolioID,
		Currency:    portfolio.BaseCurrency,
		TotalValue:  totalAssetValue.Add(acc.Cash),
		CashValue:   acc.Cash,
		// day P&L needs a prior-day snapshot that is not wired in yet
		DayPnl:    decimal.Zero,
		TotalPnl:  totalAssetValue.Sub(totalCostBasis),
		Positions: positions,
	}

	metrics.RecordValuation("ok")
	s.logger.Debugw("computed valuation",
		"portfolio_id", portfolioID,
		"total_value", valuation.TotalValue,
		"cash", acc.Cash,
		"positions", len(positions))

	return valuation, nil
}

// ValueAtDate computes total portfolio value (assets plus cash) as of the
// end of the given calendar day, using historical prices with a fallback
// to the current price when no historical bar exists. Used by the
// performance engine to build daily value series.
func (s *Service) ValueAtDate(ctx context.Context, portfolioID string, date time.Time) (decimal.Decimal, error) {
	transactions, err := s.txRepo.ListPostedWithLegs(ctx, portfolioID, repositories.TransactionFilter{})
	if err != nil {
		return decimal.Zero, err
	}
	return s.valueAtDate(ctx, transactions, date)
}

// valueAtDate is the ledger-in-hand variant, letting callers that iterate
// many days load the ledger once.
func (s *Service) valueAtDate(ctx context.Context, transactions []*entities.Transaction, date time.Time) (decimal.Decimal, error) {
	endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, time.UTC)
	acc := ledger.Accumulate(transactions, endOfDay)

	totalAssetValue := decimal.Zero
	for _, instrumentID := range acc.InstrumentIDs() {
		pos := acc.Positions[instrumentID]
		if !pos.Quantity.IsPositive() {
			continue
		}

		price, ok, err := s.oracle.HistoricalPrice(ctx, instrumentID, date)
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			price, err = s.oracle.CurrentPrice(ctx, instrumentID)
			if err != nil {
				return decimal.Zero, errors.PriceUnavailable(instrumentID)
			}
		}
		totalAssetValue = totalAssetValue.Add(pos.Quantity.Mul(price))
	}

	return totalAssetValue.Add(acc.Cash), nil
}

// DailyValue is one day of a portfolio value series.
type DailyValue struct {
	Date       time.Time
	TotalValue decimal.Decimal
	CashFlow   decimal.Decimal
}

// DailyValues builds the weekday-only value series over [from, to],
// pairing each day's total value with its net external cash flow.
func (s *Service) DailyValues(ctx context.Context, portfolioID string, from, to time.Time) ([]DailyValue, error) {
	transactions, err := s.txRepo.ListPostedWithLegs(ctx, portfolioID, repositories.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	var values []DailyValue
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		totalValue, err := s.valueAtDate(ctx, transactions, day)
		if err != nil {
			return nil, err
		}
		values = append(values, DailyValue{
			Date:       day,
			TotalValue: totalValue,
			CashFlow:   ledger.NetExternalCashFlow(transactions, day),
		})
	}
	return values, nil
}

func (s *Service) attachInstrumentInfo(ctx context.Context, pv *entities.PositionValuation) {
	instrument, err := s.instrumentRepo.GetByID(ctx, pv.InstrumentID)
	if err != nil {
		return
	}
	if instrument.Ticker != "" {
		pv.Ticker = instrument.Ticker
	}
	pv.InstrumentName = instrument.Name
	if instrument.AssetClass != "" {
		pv.AssetClass = instrument.AssetClass
	}
}
