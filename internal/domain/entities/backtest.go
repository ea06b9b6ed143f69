package entities

import "github.com/shopspring/decimal"

// InvestmentType selects how capital enters a backtest.
type InvestmentType string

const (
	InvestmentTypeLumpSum InvestmentType = "LUMP_SUM"
	InvestmentTypeDCA     InvestmentType = "DCA"
)

// Valid reports whether the investment type is one of the closed set.
func (t InvestmentType) Valid() bool {
	return t == InvestmentTypeLumpSum || t == InvestmentTypeDCA
}

// RebalanceType selects the rebalancing policy of a backtest.
type RebalanceType string

const (
	RebalanceTypeNone     RebalanceType = "NONE"
	RebalanceTypePeriodic RebalanceType = "PERIODIC"
	RebalanceTypeBand     RebalanceType = "BAND"
)

// Valid reports whether the rebalance type is one of the closed set.
func (t RebalanceType) Valid() bool {
	return t == RebalanceTypeNone || t == RebalanceTypePeriodic || t == RebalanceTypeBand
}

// RebalancePeriod is the calendar cadence for PERIODIC rebalancing and
// DCA deposits.
type RebalancePeriod string

const (
	RebalancePeriodMonthly    RebalancePeriod = "MONTHLY"
	RebalancePeriodQuarterly  RebalancePeriod = "QUARTERLY"
	RebalancePeriodSemiAnnual RebalancePeriod = "SEMI_ANNUAL"
	RebalancePeriodAnnual     RebalancePeriod = "ANNUAL"
)

// Valid reports whether the period is one of the closed set.
func (p RebalancePeriod) Valid() bool {
	switch p {
	case RebalancePeriodMonthly, RebalancePeriodQuarterly, RebalancePeriodSemiAnnual, RebalancePeriodAnnual:
		return true
	}
	return false
}

// BacktestTarget is one target allocation entry of a backtest config.
type BacktestTarget struct {
	InstrumentID string          `json:"instrumentId"`
	AssetClass   string          `json:"assetClass,omitempty"`
	TargetWeight decimal.Decimal `json:"targetWeight"`
}

// BacktestConfig describes a simulation. Immutable once a run starts.
type BacktestConfig struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	StartDate       string              `json:"startDate"`
	EndDate         string              `json:"endDate"`
	InitialCapital  decimal.Decimal     `json:"initialCapital"`
	InvestmentType  InvestmentType      `json:"investmentType"`
	DcaAmount       decimal.NullDecimal `json:"dcaAmount,omitempty"`
	DcaFrequency    RebalancePeriod     `json:"dcaFrequency,omitempty"`
	RebalanceType   RebalanceType       `json:"rebalanceType"`
	RebalancePeriod RebalancePeriod     `json:"rebalancePeriod,omitempty"`
	BandThreshold   decimal.NullDecimal `json:"bandThreshold,omitempty"`
	Targets         []BacktestTarget    `json:"targets"`
}

// RunStatus is the lifecycle state of a backtest run.
// SUCCEEDED and FAILED are terminal.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// BacktestRun is the execution record of one simulation.
type BacktestRun struct {
	ID           string    `json:"id"`
	ConfigID     string    `json:"configId"`
	Status       RunStatus `json:"status"`
	StartedAt    string    `json:"startedAt"`
	FinishedAt   string    `json:"finishedAt,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// SeriesPoint is one day of a backtest equity curve. TotalInvested is
// the cumulative contributed capital, used by the DCA CAGR calculation.
type SeriesPoint struct {
	Date          string          `json:"date"`
	EquityValue   decimal.Decimal `json:"equityValue"`
	Drawdown      decimal.Decimal `json:"drawdown"`
	CashValue     decimal.Decimal `json:"cashValue"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
}

// TradeLogEntry records one simulated trade or deposit.
// InstrumentID is empty for DEPOSIT events.
type TradeLogEntry struct {
	Date         string          `json:"date"`
	InstrumentID string          `json:"instrumentId,omitempty"`
	Action       TradeAction     `json:"action"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	Amount       decimal.Decimal `json:"amount"`
}

// BacktestStats are the summary statistics of a finished run.
type BacktestStats struct {
	CAGR          decimal.Decimal `json:"cagr"`
	Volatility    decimal.Decimal `json:"volatility"`
	MDD           decimal.Decimal `json:"mdd"`
	Sharpe        decimal.Decimal `json:"sharpe"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
}

// BacktestResult is the full output of a succeeded run.
type BacktestResult struct {
	Run       BacktestRun     `json:"run"`
	Series    []SeriesPoint   `json:"series"`
	Stats     BacktestStats   `json:"stats"`
	TradeLogs []TradeLogEntry `json:"tradeLogs"`
}
