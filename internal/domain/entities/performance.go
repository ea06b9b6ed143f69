package entities

import "github.com/shopspring/decimal"

// Frequency selects the resampling of a performance series.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Valid reports whether the frequency is one of the closed set.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// DataPoint is one point of a return series. Value is a cumulative
// return ratio at scale 6.
type DataPoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// RiskMetrics are the summary statistics of a daily return series.
// Ratios use scale 6, Sharpe scale 4.
type RiskMetrics struct {
	TotalReturn decimal.Decimal `json:"totalReturn"`
	CAGR        decimal.Decimal `json:"cagr"`
	Volatility  decimal.Decimal `json:"volatility"`
	MDD         decimal.Decimal `json:"mdd"`
	Sharpe      decimal.Decimal `json:"sharpe"`
}

// BenchmarkSeries is a synthetic comparison index over the same range.
type BenchmarkSeries struct {
	BenchmarkID string      `json:"benchmarkId"`
	Label       string      `json:"label"`
	DataPoints  []DataPoint `json:"dataPoints"`
	Stats       RiskMetrics `json:"stats"`
}

// PerformanceResult is the full output of a performance computation.
type PerformanceResult struct {
	PortfolioID string            `json:"portfolioId"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Frequency   Frequency         `json:"frequency"`
	DataPoints  []DataPoint       `json:"dataPoints"`
	Stats       RiskMetrics       `json:"stats"`
	Benchmarks  []BenchmarkSeries `json:"benchmarks,omitempty"`
}
