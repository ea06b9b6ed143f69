package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// CachedPriceService wraps a PriceOracle with a Redis read-through
// cache. Cache failures degrade to the underlying oracle; they never
// fail a price lookup.
type CachedPriceService struct {
	next   repositories.PriceOracle
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedPriceService creates a caching oracle in front of next.
func NewCachedPriceService(next repositories.PriceOracle, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedPriceService {
	return &CachedPriceService{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (s *CachedPriceService) CurrentPrice(ctx context.Context, instrumentID string) (decimal.Decimal, error) {
	key := fmt.Sprintf("price:current:%s", instrumentID)
	if price, ok := s.get(ctx, key); ok {
		return price, nil
	}

	price, err := s.next.CurrentPrice(ctx, instrumentID)
	if err != nil {
		return decimal.Zero, err
	}
	s.set(ctx, key, price)
	return price, nil
}

func (s *CachedPriceService) CurrentPrices(ctx context.Context, instrumentIDs []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(instrumentIDs))
	var missing []string
	for _, id := range instrumentIDs {
		if price, ok := s.get(ctx, fmt.Sprintf("price:current:%s", id)); ok {
			prices[id] = price
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return prices, nil
	}

	fetched, err := s.next.CurrentPrices(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, price := range fetched {
		prices[id] = price
		s.set(ctx, fmt.Sprintf("price:current:%s", id), price)
	}
	return prices, nil
}

// HistoricalPrice caches per instrument and day. Historical bars are
// immutable, but the TTL is kept anyway to bound memory.
func (s *CachedPriceService) HistoricalPrice(ctx context.Context, instrumentID string, date time.Time) (decimal.Decimal, bool, error) {
	key := fmt.Sprintf("price:historical:%s:%s", instrumentID, date.Format("2006-01-02"))
	if price, ok := s.get(ctx, key); ok {
		return price, true, nil
	}

	price, found, err := s.next.HistoricalPrice(ctx, instrumentID, date)
	if err != nil || !found {
		return price, found, err
	}
	s.set(ctx, key, price)
	return price, true, nil
}

func (s *CachedPriceService) FxRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error) {
	key := fmt.Sprintf("price:fx:%s:%s", fromCurrency, toCurrency)
	if rate, ok := s.get(ctx, key); ok {
		return rate, nil
	}

	rate, err := s.next.FxRate(ctx, fromCurrency, toCurrency)
	if err != nil {
		return decimal.Zero, err
	}
	s.set(ctx, key, rate)
	return rate, nil
}

func (s *CachedPriceService) get(ctx context.Context, key string) (decimal.Decimal, bool) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.RecordPriceCache("miss")
		return decimal.Zero, false
	}
	if err != nil {
		metrics.RecordPriceCache("error")
		s.logger.Warnw("price cache read failed", "key", key, "error", err)
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		metrics.RecordPriceCache("error")
		return decimal.Zero, false
	}
	metrics.RecordPriceCache("hit")
	return price, true
}

func (s *CachedPriceService) set(ctx context.Context, key string, price decimal.Decimal) {
	if err := s.client.Set(ctx, key, price.String(), s.ttl).Err(); err != nil {
		s.logger.Warnw("price cache write failed", "key", key, "error", err)
	}
}
