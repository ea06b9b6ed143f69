package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// PriceOracle provides current and historical instrument prices and FX
// rates. HistoricalPrice returning ok=false (no error) is a valid,
// tolerated response; callers decide between fallback and propagation.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, instrumentID string) (decimal.Decimal, error)
	CurrentPrices(ctx context.Context, instrumentIDs []string) (map[string]decimal.Decimal, error)
	HistoricalPrice(ctx context.Context, instrumentID string, date time.Time) (decimal.Decimal, bool, error)
	FxRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error)
}

// PortfolioRepository defines portfolio data access
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *entities.Portfolio) error
	GetByID(ctx context.Context, id string) (*entities.Portfolio, error)
	List(ctx context.Context) ([]*entities.Portfolio, error)
}

// InstrumentRepository defines instrument data access
type InstrumentRepository interface {
	Create(ctx context.Context, instrument *entities.Instrument) error
	GetByID(ctx context.Context, id string) (*entities.Instrument, error)
	GetByTicker(ctx context.Context, ticker string) (*entities.Instrument, error)
}

// TransactionFilter narrows a transaction listing. Zero values mean no
// filtering on that dimension.
type TransactionFilter struct {
	Type entities.TransactionType
	From time.Time
	To   time.Time
}

// TransactionRepository defines ledger data access. Listing methods
// return transactions with their legs attached, VOID excluded, ordered
// by occurrence time ascending.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	GetByIDWithLegs(ctx context.Context, id string) (*entities.Transaction, error)
	ListPostedWithLegs(ctx context.Context, portfolioID string, filter TransactionFilter) ([]*entities.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status entities.TransactionStatus) error
}

// TargetRepository defines target allocation data access
type TargetRepository interface {
	ReplaceForPortfolio(ctx context.Context, portfolioID string, targets []entities.TargetAllocation) error
	ListForPortfolio(ctx context.Context, portfolioID string) ([]entities.TargetAllocation, error)
}

// BacktestStore holds backtest configs, runs and results. Implementations
// must support concurrent insert/read from simultaneous requests.
type BacktestStore interface {
	PutConfig(config *entities.BacktestConfig)
	GetConfig(id string) (*entities.BacktestConfig, bool)
	ListConfigs() []*entities.BacktestConfig
	PutRun(run *entities.BacktestRun)
	GetRun(id string) (*entities.BacktestRun, bool)
	ListRuns(configID string) []*entities.BacktestRun
	PutResult(runID string, result *entities.BacktestResult)
	GetResult(runID string) (*entities.BacktestResult, bool)
}
