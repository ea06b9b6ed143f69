package backtest

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

const (
	dateLayout = "2006-01-02"

	// quantityScale is the decimal scale of simulated trade quantities.
	quantityScale = 8
	// moneyScale is the decimal scale of money amounts in the output.
	moneyScale = 2
	// ratioScale is the decimal scale of returns and drawdowns.
	ratioScale = 6
	// sharpeScale is the decimal scale of the Sharpe ratio.
	sharpeScale = 4

	tradingDaysPerYear = 252
	riskFreeRateAnnual = 0.035
)

var (
	fallbackPrice = decimal.NewFromInt(100)
	// feeRate is the transaction cost charged on every simulated trade.
	feeRate = decimal.RequireFromString("0.001")
	// minTradeRatio suppresses trades below 0.5% of portfolio value.
	minTradeRatio = decimal.RequireFromString("0.005")
	// defaultBandThreshold applies when BAND rebalancing has no explicit
	// threshold configured.
	defaultBandThreshold = decimal.RequireFromString("0.05")
	pointFive            = decimal.RequireFromString("0.5")
)

// engine runs one simulation over a config's date range. Weekends are
// skipped; every weekday gets a price per target, a deposit/rebalance
// decision and a series point.
type engine struct {
	oracle repositories.PriceOracle
}

func (e *engine) execute(ctx context.Context, config *entities.BacktestConfig) ([]entities.SeriesPoint, entities.BacktestStats, []entities.TradeLogEntry, error) {
	start, err := time.Parse(dateLayout, config.StartDate)
	if err != nil {
		return nil, entities.BacktestStats{}, nil, errors.InvalidInput("invalid start date")
	}
	end, err := time.Parse(dateLayout, config.EndDate)
	if err != nil {
		return nil, entities.BacktestStats{}, nil, errors.InvalidInput("invalid end date")
	}
	if len(config.Targets) == 0 {
		return nil, entities.BacktestStats{}, nil, errors.InvalidInput("at least one target allocation required")
	}

	isDCA := config.InvestmentType == entities.InvestmentTypeDCA
	totalInvested := config.InitialCapital
	cash := totalInvested

	positions := make(map[string]decimal.Decimal)
	series := make([]entities.SeriesPoint, 0)
	tradeLogs := make([]entities.TradeLogEntry, 0)

	var lastRebalanceDate, lastDepositDate *time.Time
	firstDay := true

	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		if current.Weekday() == time.Saturday || current.Weekday() == time.Sunday {
			continue
		}

		prices := make(map[string]decimal.Decimal, len(config.Targets))
		for _, target := range config.Targets {
			price, ok, err := e.oracle.HistoricalPrice(ctx, target.InstrumentID, current)
			if err != nil {
				return nil, entities.BacktestStats{}, nil, err
			}
			if !ok {
				price = fallbackPrice
			}
			prices[target.InstrumentID] = price
		}

		if firstDay {
			if isDCA && config.DcaAmount.Valid && config.DcaAmount.Decimal.IsPositive() {
				cash = cash.Add(config.DcaAmount.Decimal)
				totalInvested = totalInvested.Add(config.DcaAmount.Decimal)
				tradeLogs = append(tradeLogs, entities.TradeLogEntry{
					Date:   current.Format(dateLayout),
					Action: entities.TradeActionDeposit,
					Amount: config.DcaAmount.Decimal.Round(moneyScale),
				})
			}
			if cash.IsPositive() {
				cash = e.executeTrades(config.Targets, positions, cash, prices, &tradeLogs, current)
			}
			firstDay = false
			day := current
			lastRebalanceDate = &day
			lastDepositDate = &day
		} else {
			deposited := false
			if isDCA && config.DcaAmount.Valid && config.DcaAmount.Decimal.IsPositive() &&
				isDepositDue(current, lastDepositDate, config.DcaFrequency) {
				cash = cash.Add(config.DcaAmount.Decimal)
				totalInvested = totalInvested.Add(config.DcaAmount.Decimal)
				day := current
				lastDepositDate = &day
				deposited = true

				tradeLogs = append(tradeLogs, entities.TradeLogEntry{
					Date:   current.Format(dateLayout),
					Action: entities.TradeActionDeposit,
					Amount: config.DcaAmount.Decimal.Round(moneyScale),
				})
			}

			rebalance := shouldRebalance(config, current, lastRebalanceDate, positions, cash, prices)
			if rebalance || deposited {
				cash = e.executeTrades(config.Targets, positions, cash, prices, &tradeLogs, current)
				if rebalance {
					day := current
					lastRebalanceDate = &day
				}
			}
		}

		totalValue := cash
		for instrumentID, qty := range positions {
			totalValue = totalValue.Add(qty.Mul(priceOrZero(prices, instrumentID)))
		}

		drawdown := decimal.Zero
		if len(series) > 0 {
			peak := series[0].EquityValue
			for _, sp := range series[1:] {
				if sp.EquityValue.GreaterThan(peak) {
					peak = sp.EquityValue
				}
			}
			if peak.IsPositive() && totalValue.LessThan(peak) {
				drawdown = peak.Sub(totalValue).DivRound(peak, ratioScale)
			}
		}

		series = append(series, entities.SeriesPoint{
			Date:          current.Format(dateLayout),
			EquityValue:   totalValue.Round(moneyScale),
			Drawdown:      drawdown,
			CashValue:     cash.Round(moneyScale),
			TotalInvested: totalInvested.Round(moneyScale),
		})
	}

	stats := calculateStats(series, config.InitialCapital, totalInvested, isDCA)
	return series, stats, tradeLogs, nil
}

// executeTrades brings positions toward their target weights, charging
// the fee rate per trade. Returns the remaining cash.
func (e *engine) executeTrades(
	targets []entities.BacktestTarget,
	positions map[string]decimal.Decimal,
	cash decimal.Decimal,
	prices map[string]decimal.Decimal,
	tradeLogs *[]entities.TradeLogEntry,
	date time.Time,
) decimal.Decimal {
	totalValue := cash
	for instrumentID, qty := range positions {
		totalValue = totalValue.Add(qty.Mul(priceOrZero(prices, instrumentID)))
	}
	if !totalValue.IsPositive() {
		return cash
	}

	for _, target := range targets {
		price, ok := prices[target.InstrumentID]
		if !ok {
			price = fallbackPrice
		}
		if !price.IsPositive() {
			continue
		}

		targetValue := totalValue.Mul(target.TargetWeight)
		currentQty := positions[target.InstrumentID]
		diffValue := targetValue.Sub(currentQty.Mul(price))

		if diffValue.Abs().LessThan(totalValue.Mul(minTradeRatio)) {
			continue
		}

		tradeQty := divHalfDown(diffValue, price, quantityScale)
		tradeAmount := tradeQty.Abs().Mul(price)
		fee := tradeAmount.Mul(feeRate).Round(moneyScale)

		if tradeQty.IsPositive() {
			cost := tradeAmount.Add(fee)
			if cost.GreaterThan(cash) {
				// not enough cash, buy as much as it covers
				tradeQty = divHalfDown(cash.Sub(fee), price, quantityScale)
				tradeAmount = tradeQty.Abs().Mul(price)
				fee = tradeAmount.Mul(feeRate).Round(moneyScale)
				cost = tradeAmount.Add(fee)
			}
			positions[target.InstrumentID] = currentQty.Add(tradeQty)
			cash = cash.Sub(cost)
			metrics.RecordSimulatedTrade("buy")

			*tradeLogs = append(*tradeLogs, entities.TradeLogEntry{
				Date:         date.Format(dateLayout),
				InstrumentID: target.InstrumentID,
				Action:       entities.TradeActionBuy,
				Quantity:     tradeQty.Round(4),
				Price:        price.Round(moneyScale),
				Fee:          fee,
			})
		} else if tradeQty.IsNegative() {
			sellQty := tradeQty.Abs()
			if sellQty.GreaterThan(currentQty) {
				sellQty = currentQty
			}
			proceeds := sellQty.Mul(price).Sub(fee)
			positions[target.InstrumentID] = currentQty.Sub(sellQty)
			cash = cash.Add(proceeds)
			metrics.RecordSimulatedTrade("sell")

			*tradeLogs = append(*tradeLogs, entities.TradeLogEntry{
				Date:         date.Format(dateLayout),
				InstrumentID: target.InstrumentID,
				Action:       entities.TradeActionSell,
				Quantity:     sellQty.Round(4),
				Price:        price.Round(moneyScale),
				Fee:          fee,
			})
		}
	}

	return cash
}

func shouldRebalance(
	config *entities.BacktestConfig,
	current time.Time,
	lastRebalance *time.Time,
	positions map[string]decimal.Decimal,
	cash decimal.Decimal,
	prices map[string]decimal.Decimal,
) bool {
	switch config.RebalanceType {
	case entities.RebalanceTypePeriodic:
		if lastRebalance == nil {
			return true
		}
		return periodElapsed(current, *lastRebalance, config.RebalancePeriod)
	case entities.RebalanceTypeBand:
		threshold := defaultBandThreshold
		if config.BandThreshold.Valid {
			threshold = config.BandThreshold.Decimal
		}
		return isOutsideBand(config.Targets, positions, cash, prices, threshold)
	}
	return false
}

// isDepositDue uses the same calendar-bucket test as periodic
// rebalancing; an unset frequency means monthly.
func isDepositDue(current time.Time, lastDeposit *time.Time, frequency entities.RebalancePeriod) bool {
	if lastDeposit == nil {
		return true
	}
	if frequency == "" {
		frequency = entities.RebalancePeriodMonthly
	}
	return periodElapsed(current, *lastDeposit, frequency)
}

// periodElapsed reports whether current falls in a later calendar bucket
// than last: a new month, quarter, half-year or year.
func periodElapsed(current, last time.Time, period entities.RebalancePeriod) bool {
	switch period {
	case entities.RebalancePeriodMonthly:
		return current.Month() != last.Month() || current.Year() != last.Year()
	case entities.RebalancePeriodQuarterly:
		return (int(current.Month())-1)/3 != (int(last.Month())-1)/3 ||
			current.Year() != last.Year()
	case entities.RebalancePeriodSemiAnnual:
		return (int(current.Month())-1)/6 != (int(last.Month())-1)/6 ||
			current.Year() != last.Year()
	case entities.RebalancePeriodAnnual:
		return current.Year() != last.Year()
	}
	return false
}

func isOutsideBand(
	targets []entities.BacktestTarget,
	positions map[string]decimal.Decimal,
	cash decimal.Decimal,
	prices map[string]decimal.Decimal,
	threshold decimal.Decimal,
) bool {
	totalValue := cash
	for instrumentID, qty := range positions {
		totalValue = totalValue.Add(qty.Mul(priceOrZero(prices, instrumentID)))
	}
	if !totalValue.IsPositive() {
		return false
	}

	for _, target := range targets {
		currentWeight := positions[target.InstrumentID].
			Mul(priceOrZero(prices, target.InstrumentID)).
			DivRound(totalValue, ratioScale)
		if currentWeight.Sub(target.TargetWeight).Abs().GreaterThan(threshold) {
			return true
		}
	}
	return false
}

// calculateStats summarizes a finished run. DCA uses a time-weighted
// return so deposit cash flows don't inflate the growth rate.
func calculateStats(series []entities.SeriesPoint, initialCapital, totalInvested decimal.Decimal, isDCA bool) entities.BacktestStats {
	stats := entities.BacktestStats{TotalInvested: totalInvested}
	if len(series) < 2 {
		return stats
	}

	finalValue := series[len(series)-1].EquityValue
	years := float64(len(series)) / float64(tradingDaysPerYear)

	if !isDCA {
		if initialCapital.IsPositive() {
			totalReturn, _ := finalValue.Sub(initialCapital).
				DivRound(initialCapital, 10).Float64()
			cagr := math.Pow(1.0+totalReturn, 1.0/years) - 1.0
			stats.CAGR = decimal.NewFromFloat(cagr).Round(ratioScale)
		}
	} else {
		twrProduct := 1.0
		for i := 1; i < len(series); i++ {
			deposit := series[i].TotalInvested.Sub(series[i-1].TotalInvested)
			adjustedPrev := series[i-1].EquityValue.Add(deposit)
			if adjustedPrev.IsPositive() {
				dailyReturn, _ := series[i].EquityValue.Sub(adjustedPrev).
					DivRound(adjustedPrev, 10).Float64()
				twrProduct *= 1.0 + dailyReturn
			}
		}
		cagr := math.Pow(twrProduct, 1.0/years) - 1.0
		stats.CAGR = decimal.NewFromFloat(cagr).Round(ratioScale)
	}

	var dailyReturns []float64
	for i := 1; i < len(series); i++ {
		prev := series[i-1].EquityValue
		if isDCA {
			prev = prev.Add(series[i].TotalInvested.Sub(series[i-1].TotalInvested))
		}
		if prev.IsPositive() {
			r, _ := series[i].EquityValue.Sub(prev).DivRound(prev, 10).Float64()
			dailyReturns = append(dailyReturns, r)
		}
	}

	if len(dailyReturns) > 0 {
		annualVol := stat.PopStdDev(dailyReturns, nil) * math.Sqrt(tradingDaysPerYear)
		stats.Volatility = decimal.NewFromFloat(annualVol).Round(ratioScale)

		if annualVol > 0 {
			cagr, _ := stats.CAGR.Float64()
			stats.Sharpe = decimal.NewFromFloat((cagr - riskFreeRateAnnual) / annualVol).Round(sharpeScale)
		}
	}

	peak := decimal.Zero
	maxDd := decimal.Zero
	for _, sp := range series {
		if sp.EquityValue.GreaterThan(peak) {
			peak = sp.EquityValue
		}
		if peak.IsPositive() {
			if dd := peak.Sub(sp.EquityValue).DivRound(peak, ratioScale); dd.GreaterThan(maxDd) {
				maxDd = dd
			}
		}
	}
	stats.MDD = maxDd

	return stats
}

func priceOrZero(prices map[string]decimal.Decimal, instrumentID string) decimal.Decimal {
	if price, ok := prices[instrumentID]; ok {
		return price
	}
	return decimal.Zero
}

// divHalfDown divides n by d and rounds the quotient at the given scale
// with ties going toward zero, so a buy never overshoots its budget by a
// half-tick.
func divHalfDown(n, d decimal.Decimal, scale int32) decimal.Decimal {
	shifted := n.Div(d).Shift(scale)
	truncated := shifted.Truncate(0)
	if shifted.Sub(truncated).Abs().GreaterThan(pointFive) {
		step := decimal.NewFromInt(1)
		if shifted.IsNegative() {
			step = step.Neg()
		}
		truncated = truncated.Add(step)
	}
	return truncated.Shift(-scale)
}
