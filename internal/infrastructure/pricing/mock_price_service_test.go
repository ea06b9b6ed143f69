package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(date string) func() time.Time {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return day }
}

func TestCurrentPrice_KnownAndDefault(t *testing.T) {
	svc := NewMockPriceService()
	ctx := context.Background()

	aapl, err := svc.CurrentPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, aapl.Equal(decimal.RequireFromString("245.00")))

	unknown, err := svc.CurrentPrice(ctx, "ZZZZ")
	require.NoError(t, err)
	assert.True(t, unknown.Equal(decimal.RequireFromString("100.00")))
}

func TestHistoricalPrice_Deterministic(t *testing.T) {
	svc := NewMockPriceService()
	svc.now = fixedClock("2024-06-03")
	ctx := context.Background()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	first, ok, err := svc.HistoricalPrice(ctx, "MSFT", day)
	require.NoError(t, err)
	require.True(t, ok)
	second, _, err := svc.HistoricalPrice(ctx, "MSFT", day)
	require.NoError(t, err)

	assert.True(t, first.Equal(second), "same instrument and date must give the same price")
	assert.True(t, first.Exponent() >= -2, "price is quoted at two decimals")
}

func TestHistoricalPrice_TodayOrFutureReturnsBase(t *testing.T) {
	svc := NewMockPriceService()
	svc.now = fixedClock("2024-06-03")
	ctx := context.Background()

	price, ok, err := svc.HistoricalPrice(ctx, "SPY",
		time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("565.00")))

	future, _, err := svc.HistoricalPrice(ctx, "SPY",
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, future.Equal(decimal.RequireFromString("565.00")))
}

func TestHistoricalPrice_StaysWithinClamp(t *testing.T) {
	svc := NewMockPriceService()
	svc.now = fixedClock("2024-06-03")
	ctx := context.Background()

	base := decimal.RequireFromString("245.00")
	low := base.Mul(decimal.RequireFromString("0.5"))
	high := base.Mul(decimal.RequireFromString("1.5"))

	for day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC); day.Year() == 2023; day = day.AddDate(0, 0, 7) {
		price, _, err := svc.HistoricalPrice(ctx, "AAPL", day)
		require.NoError(t, err)
		assert.True(t, price.GreaterThanOrEqual(low) && price.LessThanOrEqual(high),
			"price %s outside clamp on %s", price, day.Format("2006-01-02"))
	}
}

func TestHistoricalPrices_WeekdaysOnly(t *testing.T) {
	svc := NewMockPriceService()
	svc.now = fixedClock("2024-06-03")

	prices, err := svc.HistoricalPrices(context.Background(), "QQQ",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Len(t, prices, 5)
	_, hasSaturday := prices["2024-01-06"]
	assert.False(t, hasSaturday)
}

func TestFxRate(t *testing.T) {
	svc := NewMockPriceService()
	ctx := context.Background()

	same, err := svc.FxRate(ctx, "USD", "USD")
	require.NoError(t, err)
	assert.True(t, same.Equal(decimal.NewFromInt(1)))

	usdKrw, err := svc.FxRate(ctx, "USD", "KRW")
	require.NoError(t, err)
	assert.True(t, usdKrw.Equal(decimal.RequireFromString("1350.00")))

	unknown, err := svc.FxRate(ctx, "GBP", "CHF")
	require.NoError(t, err)
	assert.True(t, unknown.Equal(decimal.NewFromInt(1)))
}
