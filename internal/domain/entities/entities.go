package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExternalAccount is the sentinel account marking cash legs that settle
// outside the portfolio (the counter-side of deposits and withdrawals).
const ExternalAccount = "EXTERNAL"

// LegType classifies one entry of a double-entry transaction.
type LegType string

const (
	LegTypeAsset  LegType = "ASSET"
	LegTypeCash   LegType = "CASH"
	LegTypeFee    LegType = "FEE"
	LegTypeTax    LegType = "TAX"
	LegTypeIncome LegType = "INCOME"
	LegTypeFx     LegType = "FX"
)

// Valid reports whether the leg type is one of the closed set.
func (t LegType) Valid() bool {
	switch t {
	case LegTypeAsset, LegTypeCash, LegTypeFee, LegTypeTax, LegTypeIncome, LegTypeFx:
		return true
	}
	return false
}

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TransactionTypeBuy       TransactionType = "BUY"
	TransactionTypeSell      TransactionType = "SELL"
	TransactionTypeDividend  TransactionType = "DIVIDEND"
	TransactionTypeInterest  TransactionType = "INTEREST"
	TransactionTypeFee       TransactionType = "FEE"
	TransactionTypeTax       TransactionType = "TAX"
	TransactionTypeDeposit   TransactionType = "DEPOSIT"
	TransactionTypeWithdraw  TransactionType = "WITHDRAW"
	TransactionTypeFxConvert TransactionType = "FX_CONVERT"
	TransactionTypeSplit     TransactionType = "SPLIT"
	TransactionTypeMerger    TransactionType = "MERGER"
	TransactionTypeTransfer  TransactionType = "TRANSFER"
)

// Valid reports whether the transaction type is one of the closed set.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDividend,
		TransactionTypeInterest, TransactionTypeFee, TransactionTypeTax,
		TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeFxConvert,
		TransactionTypeSplit, TransactionTypeMerger, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a transaction.
// VOID is terminal; voided transactions are excluded from all accumulation.
type TransactionStatus string

const (
	TransactionStatusPosted  TransactionStatus = "POSTED"
	TransactionStatusVoid    TransactionStatus = "VOID"
	TransactionStatusPending TransactionStatus = "PENDING"
)

// Portfolio is the owning aggregate for a transaction ledger.
type Portfolio struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	BaseCurrency string    `json:"baseCurrency" db:"base_currency"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// InstrumentType classifies a tradable instrument.
type InstrumentType string

const (
	InstrumentTypeStock InstrumentType = "STOCK"
	InstrumentTypeETF   InstrumentType = "ETF"
	InstrumentTypeBond  InstrumentType = "BOND"
	InstrumentTypeCash  InstrumentType = "CASH"
)

// Instrument is a tradable security referenced by ledger legs and targets.
type Instrument struct {
	ID         string         `json:"id" db:"id"`
	Ticker     string         `json:"ticker" db:"ticker"`
	Name       string         `json:"name" db:"name"`
	Type       InstrumentType `json:"type" db:"instrument_type"`
	AssetClass string         `json:"assetClass" db:"asset_class"`
	Currency   string         `json:"currency" db:"currency"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// TransactionLeg is one balanced entry of a transaction. Amount is the
// signed double-entry value; legs of a transaction must sum to ~0 per
// currency. Quantity and Price are set only on ASSET legs.
type TransactionLeg struct {
	ID            string              `json:"id" db:"id"`
	TransactionID string              `json:"transactionId" db:"transaction_id"`
	LegType       LegType             `json:"legType" db:"leg_type"`
	InstrumentID  *string             `json:"instrumentId,omitempty" db:"instrument_id"`
	Account       *string             `json:"account,omitempty" db:"account"`
	Currency      string              `json:"currency" db:"currency"`
	Quantity      decimal.NullDecimal `json:"quantity,omitempty" db:"quantity"`
	Price         decimal.NullDecimal `json:"price,omitempty" db:"price"`
	Amount        decimal.Decimal     `json:"amount" db:"amount"`
	FxRateToBase  decimal.NullDecimal `json:"fxRateToBase,omitempty" db:"fx_rate_to_base"`
}

// IsExternal reports whether the leg settles against the external account.
func (l *TransactionLeg) IsExternal() bool {
	return l.Account != nil && *l.Account == ExternalAccount
}

// Transaction is a double-entry ledger transaction with its ordered legs.
type Transaction struct {
	ID          string            `json:"id" db:"id"`
	PortfolioID string            `json:"portfolioId" db:"portfolio_id"`
	Type        TransactionType   `json:"type" db:"transaction_type"`
	Status      TransactionStatus `json:"status" db:"status"`
	OccurredAt  time.Time         `json:"occurredAt" db:"occurred_at"`
	Note        string            `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time         `json:"createdAt" db:"created_at"`
	Legs        []TransactionLeg  `json:"legs"`
}

// TargetAllocation is one entry of a portfolio's active target set.
type TargetAllocation struct {
	ID           string              `json:"id" db:"id"`
	PortfolioID  string              `json:"portfolioId" db:"portfolio_id"`
	InstrumentID string              `json:"instrumentId" db:"instrument_id"`
	AssetClass   string              `json:"assetClass,omitempty" db:"asset_class"`
	TargetWeight decimal.Decimal     `json:"targetWeight" db:"target_weight"`
	MinWeight    decimal.NullDecimal `json:"minWeight,omitempty" db:"min_weight"`
	MaxWeight    decimal.NullDecimal `json:"maxWeight,omitempty" db:"max_weight"`
}
