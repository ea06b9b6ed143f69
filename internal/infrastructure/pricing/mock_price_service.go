package pricing

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// basePrices are the current reference prices served by the mock oracle.
var basePrices = map[string]decimal.Decimal{
	// Korean equities
	"005930": decimal.RequireFromString("78000"),
	"000660": decimal.RequireFromString("195000"),
	"035420": decimal.RequireFromString("210000"),
	"035720": decimal.RequireFromString("62000"),
	"051910": decimal.RequireFromString("650000"),
	"006400": decimal.RequireFromString("53000"),
	"068270": decimal.RequireFromString("350000"),
	// US equities
	"AAPL":  decimal.RequireFromString("245.00"),
	"MSFT":  decimal.RequireFromString("415.00"),
	"GOOGL": decimal.RequireFromString("180.00"),
	"AMZN":  decimal.RequireFromString("225.00"),
	"TSLA":  decimal.RequireFromString("390.00"),
	"NVDA":  decimal.RequireFromString("135.00"),
	// ETFs
	"VOO": decimal.RequireFromString("520.00"),
	"QQQ": decimal.RequireFromString("530.00"),
	"SPY": decimal.RequireFromString("565.00"),
	"VTI": decimal.RequireFromString("290.00"),
	// bond ETFs
	"TLT": decimal.RequireFromString("92.00"),
	"BND": decimal.RequireFromString("72.00"),
}

var defaultPrice = decimal.RequireFromString("100.00")

var fxRates = map[[2]string]decimal.Decimal{
	{"USD", "KRW"}: decimal.RequireFromString("1350.00"),
	{"KRW", "USD"}: decimal.RequireFromString("0.000741"),
	{"EUR", "KRW"}: decimal.RequireFromString("1480.00"),
	{"JPY", "KRW"}: decimal.RequireFromString("9.10"),
}

// MockPriceService is a deterministic stand-in for a market data feed.
// Historical prices are simulated from the base price: a mild long-term
// uptrend walking back in time plus hash-seeded daily noise, so the same
// instrument and date always yield the same price.
type MockPriceService struct {
	// now is injectable for tests
	now func() time.Time
}

// NewMockPriceService creates the mock oracle.
func NewMockPriceService() *MockPriceService {
	return &MockPriceService{now: time.Now}
}

func (s *MockPriceService) CurrentPrice(ctx context.Context, instrumentID string) (decimal.Decimal, error) {
	return basePriceOf(instrumentID), nil
}

func (s *MockPriceService) CurrentPrices(ctx context.Context, instrumentIDs []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(instrumentIDs))
	for _, id := range instrumentIDs {
		prices[id] = basePriceOf(id)
	}
	return prices, nil
}

// HistoricalPrice always reports ok=true: the simulation can produce a
// bar for any weekday in the past.
func (s *MockPriceService) HistoricalPrice(ctx context.Context, instrumentID string, date time.Time) (decimal.Decimal, bool, error) {
	return s.simulateHistoricalPrice(instrumentID, date), true, nil
}

// HistoricalPrices returns the weekday price series over [from, to].
func (s *MockPriceService) HistoricalPrices(ctx context.Context, instrumentID string, from, to time.Time) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		prices[day.Format("2006-01-02")] = s.simulateHistoricalPrice(instrumentID, day)
	}
	return prices, nil
}

func (s *MockPriceService) FxRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	if fromCurrency == toCurrency {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := fxRates[[2]string{fromCurrency, toCurrency}]; ok {
		return rate, nil
	}
	return decimal.NewFromInt(1), nil
}

// simulateHistoricalPrice walks the base price back in time: roughly 8%
// annual drift (0.03% per day) and ±1.5% hash-seeded daily noise, with
// the multiplier clamped to [0.5, 1.5].
func (s *MockPriceService) simulateHistoricalPrice(instrumentID string, date time.Time) decimal.Decimal {
	basePrice := basePriceOf(instrumentID)

	today := s.today()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if !day.Before(today) {
		return basePrice
	}

	daysBefore := today.Sub(day).Hours() / 24

	h := fnv.New64a()
	h.Write([]byte(instrumentID))
	h.Write([]byte(day.Format("2006-01-02")))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	trendFactor := math.Exp(-0.0003 * daysBefore)
	noiseFactor := 1.0 + rng.NormFloat64()*0.015

	multiplier := trendFactor * noiseFactor
	multiplier = math.Max(0.5, math.Min(1.5, multiplier))

	return basePrice.Mul(decimal.NewFromFloat(multiplier)).Round(2)
}

func (s *MockPriceService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func basePriceOf(instrumentID string) decimal.Decimal {
	if price, ok := basePrices[instrumentID]; ok {
		return price
	}
	return defaultPrice
}
