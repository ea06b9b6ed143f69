package entities

import "github.com/shopspring/decimal"

// Position is the derived holding state for one instrument, built by
// folding ASSET legs in chronological order. Not persisted.
type Position struct {
	InstrumentID string          `json:"instrumentId"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avgCost"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	RealizedPnl  decimal.Decimal `json:"realizedPnl"`
}

// PositionValuation is one position marked to market.
type PositionValuation struct {
	InstrumentID   string          `json:"instrumentId"`
	Ticker         string          `json:"ticker"`
	InstrumentName string          `json:"instrumentName,omitempty"`
	AssetClass     string          `json:"assetClass"`
	Quantity       decimal.Decimal `json:"quantity"`
	AvgCost        decimal.Decimal `json:"avgCost"`
	MarketPrice    decimal.Decimal `json:"marketPrice"`
	MarketValue    decimal.Decimal `json:"marketValue"`
	UnrealizedPnl  decimal.Decimal `json:"unrealizedPnl"`
	RealizedPnl    decimal.Decimal `json:"realizedPnl"`
	Weight         decimal.Decimal `json:"weight"`
	// DayPnl needs a prior-day valuation snapshot, which is not wired in
	// yet; it is always zero until that exists.
	DayPnl decimal.Decimal `json:"dayPnl"`
}

// PortfolioValuation is a point-in-time valuation of a whole portfolio.
type PortfolioValuation struct {
	PortfolioID string              `json:"portfolioId"`
	Currency    string              `json:"currency"`
	TotalValue  decimal.Decimal     `json:"totalValue"`
	CashValue   decimal.Decimal     `json:"cashValue"`
	DayPnl      decimal.Decimal     `json:"dayPnl"`
	TotalPnl    decimal.Decimal     `json:"totalPnl"`
	Positions   []PositionValuation `json:"positions"`
}
