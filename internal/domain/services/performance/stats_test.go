package performance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/valuation"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dv(date string, total, cashFlow string) valuation.DailyValue {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return valuation.DailyValue{Date: day, TotalValue: dec(total), CashFlow: dec(cashFlow)}
}

func TestTWRSeries_SimpleGain(t *testing.T) {
	points := twrSeries([]valuation.DailyValue{
		dv("2024-01-02", "1000", "0"),
		dv("2024-01-03", "1100", "0"),
	})

	require.Len(t, points, 2)
	assert.True(t, points[0].Value.IsZero())
	assert.True(t, points[1].Value.Equal(dec("0.1")), "got %s", points[1].Value)
}

func TestTWRSeries_NeutralizesDeposits(t *testing.T) {
	// +10% then a 1000 deposit with a further ~9.09% gain on the
	// enlarged base; TWR compounds the two period returns only
	points := twrSeries([]valuation.DailyValue{
		dv("2024-01-02", "1000", "0"),
		dv("2024-01-03", "1100", "0"),
		dv("2024-01-04", "2310", "1000"),
	})

	require.Len(t, points, 3)
	// period 2 return: (2310-1100-1000)/1100 = 0.190909...
	// cumulative: 1.1 * 1.190909... - 1 = 0.310000
	assert.True(t, points[2].Value.Equal(dec("0.31")), "got %s", points[2].Value)
}

func TestTWRSeries_CarryForwardOnNonPositivePrev(t *testing.T) {
	points := twrSeries([]valuation.DailyValue{
		dv("2024-01-02", "0", "0"),
		dv("2024-01-03", "1000", "1000"),
		dv("2024-01-04", "1100", "0"),
	})

	require.Len(t, points, 3)
	// day 2 has no computable return; cumulative carried forward at 0%
	assert.True(t, points[1].Value.IsZero())
	assert.True(t, points[2].Value.Equal(dec("0.1")))
}

func TestTWRSeries_Idempotent(t *testing.T) {
	input := []valuation.DailyValue{
		dv("2024-01-02", "1000", "0"),
		dv("2024-01-03", "1050", "0"),
		dv("2024-01-04", "980", "0"),
		dv("2024-01-05", "1200", "200"),
	}
	first := twrSeries(input)
	second := twrSeries(input)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Date, second[i].Date)
		assert.True(t, first[i].Value.Equal(second[i].Value))
	}
}

func TestRiskMetrics_FlatSeries(t *testing.T) {
	m := riskMetrics([]float64{0, 0, 0, 0})

	assert.True(t, m.TotalReturn.IsZero())
	assert.True(t, m.CAGR.IsZero())
	assert.True(t, m.Volatility.IsZero())
	assert.True(t, m.MDD.IsZero())
	// Sharpe not computed when volatility is zero
	assert.True(t, m.Sharpe.IsZero())
}

func TestRiskMetrics_KnownDrawdown(t *testing.T) {
	// +10% then -20%: peak 1.1, trough 0.88, mdd = 0.22/1.1 = 0.2
	m := riskMetrics([]float64{0.10, -0.20})

	assert.True(t, m.MDD.Equal(dec("0.2")), "mdd = %s", m.MDD)
	// total: 1.1*0.8 - 1 = -0.12
	assert.True(t, m.TotalReturn.Equal(dec("-0.12")), "totalReturn = %s", m.TotalReturn)
	assert.True(t, m.Volatility.GreaterThan(decimal.Zero))
	assert.False(t, m.Sharpe.IsZero())
}

func TestRiskMetrics_Empty(t *testing.T) {
	m := riskMetrics(nil)
	assert.True(t, m.TotalReturn.IsZero())
	assert.True(t, m.CAGR.IsZero())
}

func TestResample_DailyNoOp(t *testing.T) {
	points := []entities.DataPoint{
		{Date: "2024-01-02", Value: dec("0")},
		{Date: "2024-01-03", Value: dec("0.01")},
	}
	assert.Equal(t, points, resample(points, entities.FrequencyDaily))
}

func TestResample_MonthlyLastObservationWins(t *testing.T) {
	points := []entities.DataPoint{
		{Date: "2024-01-02", Value: dec("0")},
		{Date: "2024-01-15", Value: dec("0.01")},
		{Date: "2024-01-31", Value: dec("0.02")},
		{Date: "2024-02-01", Value: dec("0.03")},
		{Date: "2024-02-29", Value: dec("0.04")},
	}
	resampled := resample(points, entities.FrequencyMonthly)

	require.Len(t, resampled, 2)
	assert.Equal(t, "2024-01-31", resampled[0].Date)
	assert.True(t, resampled[0].Value.Equal(dec("0.02")))
	assert.Equal(t, "2024-02-29", resampled[1].Date)
	assert.True(t, resampled[1].Value.Equal(dec("0.04")))
}

func TestResample_WeeklyUsesISOWeeks(t *testing.T) {
	// 2024-01-05 is Friday of ISO week 1, 2024-01-08 is Monday of week 2
	points := []entities.DataPoint{
		{Date: "2024-01-04", Value: dec("0")},
		{Date: "2024-01-05", Value: dec("0.01")},
		{Date: "2024-01-08", Value: dec("0.02")},
	}
	resampled := resample(points, entities.FrequencyWeekly)

	require.Len(t, resampled, 2)
	assert.Equal(t, "2024-01-05", resampled[0].Date)
	assert.Equal(t, "2024-01-08", resampled[1].Date)
}

func TestDailyReturns_SkipsNonPositivePrev(t *testing.T) {
	returns := dailyReturns([]valuation.DailyValue{
		dv("2024-01-02", "0", "0"),
		dv("2024-01-03", "1000", "1000"),
		dv("2024-01-04", "1100", "0"),
	})
	require.Len(t, returns, 1)
	assert.InDelta(t, 0.1, returns[0], 1e-9)
}
