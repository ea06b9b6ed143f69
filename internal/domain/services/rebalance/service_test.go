package rebalance

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// MockPortfolioRepository is a mock implementation of PortfolioRepository
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, id string) (*entities.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) List(ctx context.Context) ([]*entities.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Portfolio), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByIDWithLegs(ctx context.Context, id string) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListPostedWithLegs(ctx context.Context, portfolioID string, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	args := m.Called(ctx, portfolioID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id string, status entities.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockInstrumentRepository is a mock implementation of InstrumentRepository
type MockInstrumentRepository struct {
	mock.Mock
}

func (m *MockInstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

func (m *MockInstrumentRepository) GetByID(ctx context.Context, id string) (*entities.Instrument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

func (m *MockInstrumentRepository) GetByTicker(ctx context.Context, ticker string) (*entities.Instrument, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

// MockTargetRepository is a mock implementation of TargetRepository
type MockTargetRepository struct {
	mock.Mock
}

func (m *MockTargetRepository) ReplaceForPortfolio(ctx context.Context, portfolioID string, targets []entities.TargetAllocation) error {
	args := m.Called(ctx, portfolioID, targets)
	return args.Error(0)
}

func (m *MockTargetRepository) ListForPortfolio(ctx context.Context, portfolioID string) ([]entities.TargetAllocation, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TargetAllocation), args.Error(1)
}

// MockPriceOracle is a mock implementation of PriceOracle
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) CurrentPrice(ctx context.Context, instrumentID string) (decimal.Decimal, error) {
	args := m.Called(ctx, instrumentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPriceOracle) CurrentPrices(ctx context.Context, instrumentIDs []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, instrumentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *MockPriceOracle) HistoricalPrice(ctx context.Context, instrumentID string, date time.Time) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, instrumentID, date)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockPriceOracle) FxRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	args := m.Called(ctx, fromCurrency, toCurrency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func depositTx(amount string, at time.Time) *entities.Transaction {
	return &entities.Transaction{
		PortfolioID: "p1",
		Type:        entities.TransactionTypeDeposit,
		Status:      entities.TransactionStatusPosted,
		OccurredAt:  at,
		Legs: []entities.TransactionLeg{
			{LegType: entities.LegTypeCash, Currency: "USD", Amount: dec(amount)},
			{LegType: entities.LegTypeCash, Currency: "USD", Amount: dec(amount).Neg(), Account: strPtr(entities.ExternalAccount)},
		},
	}
}

func buyTx(instrumentID, qty, price, amount string, at time.Time) *entities.Transaction {
	return &entities.Transaction{
		PortfolioID: "p1",
		Type:        entities.TransactionTypeBuy,
		Status:      entities.TransactionStatusPosted,
		OccurredAt:  at,
		Legs: []entities.TransactionLeg{
			{
				LegType:      entities.LegTypeAsset,
				InstrumentID: strPtr(instrumentID),
				Currency:     "USD",
				Quantity:     nullDec(qty),
				Price:        nullDec(price),
				Amount:       dec(amount),
			},
			{LegType: entities.LegTypeCash, Currency: "USD", Amount: dec(amount).Neg()},
		},
	}
}

type fixture struct {
	svc        *Service
	portfolios *MockPortfolioRepository
	txs        *MockTransactionRepository
	targets    *MockTargetRepository
	oracle     *MockPriceOracle
}

func newFixture() *fixture {
	portfolios := new(MockPortfolioRepository)
	txs := new(MockTransactionRepository)
	instruments := new(MockInstrumentRepository)
	targets := new(MockTargetRepository)
	oracle := new(MockPriceOracle)

	instruments.On("GetByID", mock.Anything, mock.Anything).
		Return(nil, errors.NotFound("instrument"))

	valuationSvc := valuation.NewService(portfolios, txs, instruments, oracle, logger.NewNop())
	svc := NewService(portfolios, targets, instruments, valuationSvc, logger.NewNop())
	return &fixture{svc: svc, portfolios: portfolios, txs: txs, targets: targets, oracle: oracle}
}

func (f *fixture) portfolioExists() {
	f.portfolios.On("GetByID", mock.Anything, "p1").
		Return(&entities.Portfolio{ID: "p1", Name: "Growth", BaseCurrency: "USD"}, nil)
}

func TestAnalyze_RecommendsTradesAboveDeadband(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	day := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.txs.On("ListPostedWithLegs", mock.Anything, "p1", mock.Anything).
		Return([]*entities.Transaction{
			depositTx("10000", day),
			buyTx("AAPL", "10", "100", "1000", day.Add(time.Hour)),
		}, nil)
	f.oracle.On("CurrentPrice", mock.Anything, "AAPL").Return(dec("150"), nil)
	f.targets.On("ListForPortfolio", mock.Anything, "p1").
		Return([]entities.TargetAllocation{
			{InstrumentID: "AAPL", TargetWeight: dec("0.6")},
			{InstrumentID: "MSFT", TargetWeight: dec("0.4")},
		}, nil)

	analysis, err := f.svc.Analyze(context.Background(), "p1")
	require.NoError(t, err)

	// cash 9000 + AAPL 10x150 = 10500 total
	assert.True(t, analysis.TotalValue.Equal(dec("10500")), "totalValue = %s", analysis.TotalValue)
	assert.True(t, analysis.CashBalance.Equal(dec("9000")))
	assert.True(t, analysis.CashWeight.Equal(dec("0.857143")), "cashWeight = %s", analysis.CashWeight)
	assert.True(t, analysis.NeedsRebalancing)

	require.Len(t, analysis.Comparisons, 2)
	// sorted by |difference| desc: AAPL drifts 0.457143, MSFT 0.4
	aapl := analysis.Comparisons[0]
	assert.Equal(t, "AAPL", aapl.InstrumentID)
	assert.True(t, aapl.CurrentWeight.Equal(dec("0.142857")), "currentWeight = %s", aapl.CurrentWeight)
	assert.True(t, aapl.TargetValue.Equal(dec("6300")))
	assert.True(t, aapl.DiffValue.Equal(dec("4800")))

	require.Len(t, analysis.Trades, 2)
	assert.Equal(t, entities.TradeActionBuy, analysis.Trades[0].Action)
	assert.True(t, analysis.Trades[0].Amount.Equal(dec("4800")))
	assert.True(t, analysis.Trades[0].EstimatedFee.Equal(dec("5")))
	assert.True(t, analysis.Trades[1].Amount.Equal(dec("4200")))
	assert.True(t, analysis.Trades[1].EstimatedFee.Equal(dec("4")))
	assert.True(t, analysis.TotalEstimatedFee.Equal(dec("9")))
	assert.True(t, analysis.MaxDrift.Equal(dec("0.457143")), "maxDrift = %s", analysis.MaxDrift)
}

func TestAnalyze_DriftWithinDeadbandProducesNoTrades(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	day := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.txs.On("ListPostedWithLegs", mock.Anything, "p1", mock.Anything).
		Return([]*entities.Transaction{
			depositTx("10000", day),
			buyTx("AAPL", "50", "100", "5000", day.Add(time.Hour)),
		}, nil)
	f.oracle.On("CurrentPrice", mock.Anything, "AAPL").Return(dec("100"), nil)
	f.targets.On("ListForPortfolio", mock.Anything, "p1").
		Return([]entities.TargetAllocation{
			{InstrumentID: "AAPL", TargetWeight: dec("0.5")},
		}, nil)

	analysis, err := f.svc.Analyze(context.Background(), "p1")
	require.NoError(t, err)

	assert.False(t, analysis.NeedsRebalancing)
	assert.Empty(t, analysis.Trades)
	assert.True(t, analysis.MaxDrift.IsZero())
	assert.True(t, analysis.TotalEstimatedFee.IsZero())
}

func TestAnalyze_SellWhenOverweight(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	day := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.txs.On("ListPostedWithLegs", mock.Anything, "p1", mock.Anything).
		Return([]*entities.Transaction{
			depositTx("10000", day),
			buyTx("AAPL", "80", "100", "8000", day.Add(time.Hour)),
		}, nil)
	f.oracle.On("CurrentPrice", mock.Anything, "AAPL").Return(dec("100"), nil)
	f.targets.On("ListForPortfolio", mock.Anything, "p1").
		Return([]entities.TargetAllocation{
			{InstrumentID: "AAPL", TargetWeight: dec("0.5")},
		}, nil)

	analysis, err := f.svc.Analyze(context.Background(), "p1")
	require.NoError(t, err)

	// AAPL is 80% of 10000; selling 3000 brings it back to 50%
	require.Len(t, analysis.Trades, 1)
	assert.Equal(t, entities.TradeActionSell, analysis.Trades[0].Action)
	assert.True(t, analysis.Trades[0].Amount.Equal(dec("3000")))
	assert.True(t, analysis.Trades[0].EstimatedFee.Equal(dec("3")))
}

func TestAnalyze_SellsHeldPositionWithoutTarget(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	day := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.txs.On("ListPostedWithLegs", mock.Anything, "p1", mock.Anything).
		Return([]*entities.Transaction{
			depositTx("10000", day),
			buyTx("AAPL", "50", "100", "5000", day.Add(time.Hour)),
			buyTx("TSLA", "30", "100", "3000", day.Add(2*time.Hour)),
		}, nil)
	f.oracle.On("CurrentPrice", mock.Anything, "AAPL").Return(dec("100"), nil)
	f.oracle.On("CurrentPrice", mock.Anything, "TSLA").Return(dec("100"), nil)
	f.targets.On("ListForPortfolio", mock.Anything, "p1").
		Return([]entities.TargetAllocation{
			{InstrumentID: "AAPL", TargetWeight: dec("1")},
		}, nil)

	analysis, err := f.svc.Analyze(context.Background(), "p1")
	require.NoError(t, err)

	// TSLA is held but untargeted: it must show up with target weight 0
	// and drift toward a full SELL
	require.Len(t, analysis.Comparisons, 2)
	tsla := analysis.Comparisons[1]
	assert.Equal(t, "TSLA", tsla.InstrumentID)
	assert.True(t, tsla.TargetWeight.IsZero())
	assert.True(t, tsla.CurrentWeight.Equal(dec("0.3")), "currentWeight = %s", tsla.CurrentWeight)
	assert.True(t, tsla.DiffValue.Equal(dec("-3000")))

	require.Len(t, analysis.Trades, 2)
	assert.Equal(t, entities.TradeActionBuy, analysis.Trades[0].Action)
	assert.True(t, analysis.Trades[0].Amount.Equal(dec("5000")))
	sell := analysis.Trades[1]
	assert.Equal(t, "TSLA", sell.InstrumentID)
	assert.Equal(t, entities.TradeActionSell, sell.Action)
	assert.True(t, sell.Amount.Equal(dec("3000")))
	assert.True(t, sell.EstimatedFee.Equal(dec("3")))

	assert.True(t, analysis.NeedsRebalancing)
	assert.True(t, analysis.MaxDrift.Equal(dec("0.5")), "maxDrift = %s", analysis.MaxDrift)
}

func TestAnalyze_NoTargetsReturnsEmptyAnalysis(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	day := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	f.txs.On("ListPostedWithLegs", mock.Anything, "p1", mock.Anything).
		Return([]*entities.Transaction{depositTx("5000", day)}, nil)
	f.targets.On("ListForPortfolio", mock.Anything, "p1").
		Return([]entities.TargetAllocation{}, nil)

	analysis, err := f.svc.Analyze(context.Background(), "p1")
	require.NoError(t, err)

	assert.True(t, analysis.CashWeight.Equal(dec("1")))
	assert.True(t, analysis.TotalValue.Equal(dec("5000")))
	assert.Empty(t, analysis.Comparisons)
	assert.Empty(t, analysis.Trades)
	assert.False(t, analysis.NeedsRebalancing)
}

func TestAnalyze_PortfolioNotFound(t *testing.T) {
	f := newFixture()
	f.portfolios.On("GetByID", mock.Anything, "missing").
		Return(nil, errors.NotFound("portfolio"))

	_, err := f.svc.Analyze(context.Background(), "missing")
	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, errors.ErrCodePortfolioNotFound, appErr.Code)
}

func TestSetTargets_RejectsOffSumWithoutNormalize(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	_, err := f.svc.SetTargets(context.Background(), "p1", []entities.TargetAllocation{
		{InstrumentID: "AAPL", TargetWeight: dec("0.6")},
		{InstrumentID: "MSFT", TargetWeight: dec("0.3")},
	}, false)
	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, errors.ErrCodeInvalidTargets, appErr.Code)
}

func TestSetTargets_NormalizesOffSumWeights(t *testing.T) {
	f := newFixture()
	f.portfolioExists()
	f.targets.On("ReplaceForPortfolio", mock.Anything, "p1", mock.Anything).Return(nil)

	saved, err := f.svc.SetTargets(context.Background(), "p1", []entities.TargetAllocation{
		{InstrumentID: "AAPL", TargetWeight: dec("0.6")},
		{InstrumentID: "MSFT", TargetWeight: dec("0.2")},
	}, true)
	require.NoError(t, err)

	require.Len(t, saved, 2)
	assert.True(t, saved[0].TargetWeight.Equal(dec("0.75")), "got %s", saved[0].TargetWeight)
	assert.True(t, saved[1].TargetWeight.Equal(dec("0.25")), "got %s", saved[1].TargetWeight)
	assert.Equal(t, "p1", saved[0].PortfolioID)
	assert.NotEmpty(t, saved[0].ID)
}

func TestSetTargets_AcceptsSumWithinTolerance(t *testing.T) {
	f := newFixture()
	f.portfolioExists()
	f.targets.On("ReplaceForPortfolio", mock.Anything, "p1", mock.Anything).Return(nil)

	saved, err := f.svc.SetTargets(context.Background(), "p1", []entities.TargetAllocation{
		{InstrumentID: "AAPL", TargetWeight: dec("0.3334")},
		{InstrumentID: "MSFT", TargetWeight: dec("0.3333")},
		{InstrumentID: "GOOGL", TargetWeight: dec("0.3333")},
	}, false)
	require.NoError(t, err)
	// weights kept as supplied when the sum is within tolerance
	assert.True(t, saved[0].TargetWeight.Equal(dec("0.3334")))
}

func TestSetTargets_RejectsEmptyAndNonPositiveWeights(t *testing.T) {
	f := newFixture()
	f.portfolioExists()

	_, err := f.svc.SetTargets(context.Background(), "p1", nil, false)
	require.Error(t, err)

	_, err = f.svc.SetTargets(context.Background(), "p1", []entities.TargetAllocation{
		{InstrumentID: "AAPL", TargetWeight: dec("0")},
		{InstrumentID: "MSFT", TargetWeight: dec("1")},
	}, false)
	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, errors.ErrCodeInvalidTargets, appErr.Code)
}
