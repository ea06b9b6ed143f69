package performance

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
)

const (
	// returnScale is the decimal scale of emitted return ratios.
	returnScale = 6
	// sharpeScale is the decimal scale of the Sharpe ratio.
	sharpeScale = 4
	// divisionScale is the intermediate scale of return divisions.
	divisionScale = 10

	tradingDaysPerYear = 252
)

// riskFreeRateAnnual is the annual risk-free rate used by Sharpe.
var riskFreeRateAnnual = 0.035

var one = decimal.NewFromInt(1)

// twrSeries computes the cumulative time-weighted return series from
// daily values. The first day seeds the series at 0%. A non-positive
// prior-day value carries the cumulative return forward instead of
// dividing by zero.
func twrSeries(dailyValues []valuation.DailyValue) []entities.DataPoint {
	points := make([]entities.DataPoint, 0, len(dailyValues))
	cumulative := one

	points = append(points, entities.DataPoint{
		Date:  dailyValues[0].Date.Format("2006-01-02"),
		Value: decimal.Zero.Round(returnScale),
	})

	for i := 1; i < len(dailyValues); i++ {
		prev := dailyValues[i-1]
		curr := dailyValues[i]

		if prev.TotalValue.IsPositive() {
			periodReturn := curr.TotalValue.
				Sub(prev.TotalValue).
				Sub(curr.CashFlow).
				DivRound(prev.TotalValue, divisionScale)
			cumulative = cumulative.Mul(one.Add(periodReturn))
		}

		points = append(points, entities.DataPoint{
			Date:  curr.Date.Format("2006-01-02"),
			Value: cumulative.Sub(one).Round(returnScale),
		})
	}

	return points
}

// dailyReturns extracts the cash-flow-adjusted daily return observations
// used for risk statistics. Days with a non-positive prior value are
// skipped.
func dailyReturns(dailyValues []valuation.DailyValue) []float64 {
	var returns []float64
	for i := 1; i < len(dailyValues); i++ {
		prev := dailyValues[i-1]
		curr := dailyValues[i]
		if !prev.TotalValue.IsPositive() {
			continue
		}
		r, _ := curr.TotalValue.
			Sub(prev.TotalValue).
			Sub(curr.CashFlow).
			DivRound(prev.TotalValue, divisionScale).
			Float64()
		returns = append(returns, r)
	}
	return returns
}

// riskMetrics derives total return, CAGR, annualized volatility, MDD and
// Sharpe from a daily return series. Statistical intermediates use
// float64; final figures are rounded back to their fixed scales.
func riskMetrics(returns []float64) entities.RiskMetrics {
	m := entities.RiskMetrics{}
	if len(returns) == 0 {
		return m
	}

	totalReturn := 1.0
	for _, r := range returns {
		totalReturn *= 1.0 + r
	}
	totalReturn -= 1.0
	m.TotalReturn = roundFloat(totalReturn, returnScale)

	if totalReturn > -1.0 {
		cagr := math.Pow(1.0+totalReturn, float64(tradingDaysPerYear)/float64(len(returns))) - 1.0
		m.CAGR = roundFloat(cagr, returnScale)
	}

	annualVol := stat.PopStdDev(returns, nil) * math.Sqrt(tradingDaysPerYear)
	m.Volatility = roundFloat(annualVol, returnScale)

	peak := 0.0
	maxDrawdown := 0.0
	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1.0 + r
		if cumulative > peak {
			peak = cumulative
		}
		if drawdown := (peak - cumulative) / peak; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	m.MDD = roundFloat(maxDrawdown, returnScale)

	if annualVol > 0 {
		cagr, _ := m.CAGR.Float64()
		m.Sharpe = roundFloat((cagr-riskFreeRateAnnual)/annualVol, sharpeScale)
	}

	return m
}

// resample collapses a daily series to WEEKLY/MONTHLY keys; the last
// observation in each period wins. DAILY is a no-op.
func resample(points []entities.DataPoint, frequency entities.Frequency) []entities.DataPoint {
	if frequency == entities.FrequencyDaily || len(points) == 0 {
		return points
	}

	var resampled []entities.DataPoint
	lastKey := ""
	for _, dp := range points {
		key := periodKey(dp.Date, frequency)
		if key != lastKey {
			resampled = append(resampled, dp)
			lastKey = key
		} else {
			resampled[len(resampled)-1] = dp
		}
	}
	return resampled
}

func periodKey(date string, frequency entities.Frequency) string {
	day, err := parseDate(date)
	if err != nil {
		return date
	}
	if frequency == entities.FrequencyWeekly {
		year, week := day.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return day.Format("2006-01")
}

func parseDate(date string) (time.Time, error) {
	return time.Parse("2006-01-02", date)
}

func roundFloat(v float64, scale int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(scale)
}
