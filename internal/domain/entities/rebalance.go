package entities

import "github.com/shopspring/decimal"

// TradeAction is the direction of a recommended or simulated trade.
type TradeAction string

const (
	TradeActionBuy     TradeAction = "BUY"
	TradeActionSell    TradeAction = "SELL"
	TradeActionDeposit TradeAction = "DEPOSIT"
)

// WeightComparison compares an instrument's current weight to its target.
type WeightComparison struct {
	InstrumentID   string          `json:"instrumentId"`
	InstrumentName string          `json:"instrumentName"`
	CurrentWeight  decimal.Decimal `json:"currentWeight"`
	TargetWeight   decimal.Decimal `json:"targetWeight"`
	Difference     decimal.Decimal `json:"difference"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	TargetValue    decimal.Decimal `json:"targetValue"`
	DiffValue      decimal.Decimal `json:"diffValue"`
}

// TradeRecommendation is one trade needed to close a weight gap.
type TradeRecommendation struct {
	InstrumentID   string          `json:"instrumentId"`
	InstrumentName string          `json:"instrumentName"`
	Action         TradeAction     `json:"action"`
	Amount         decimal.Decimal `json:"amount"`
	EstimatedFee   decimal.Decimal `json:"estimatedFee"`
}

// RebalanceAnalysis is the output of a current-vs-target comparison.
type RebalanceAnalysis struct {
	PortfolioID       string                `json:"portfolioId"`
	TotalValue        decimal.Decimal       `json:"totalValue"`
	CashBalance       decimal.Decimal       `json:"cashBalance"`
	CashWeight        decimal.Decimal       `json:"cashWeight"`
	Comparisons       []WeightComparison    `json:"comparisons"`
	Trades            []TradeRecommendation `json:"trades"`
	TotalEstimatedFee decimal.Decimal       `json:"totalEstimatedFee"`
	NeedsRebalancing  bool                  `json:"needsRebalancing"`
	MaxDrift          decimal.Decimal       `json:"maxDrift"`
}
