package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
)

// balanceTolerance absorbs rounding noise in the per-currency
// double-entry sum.
var balanceTolerance = decimal.NewFromFloat(0.01)

// ValidateLegs checks a transaction's legs before they are accepted into
// the ledger:
//   - legs must be non-empty, each with an amount and a currency
//   - BUY/SELL needs exactly one ASSET leg carrying an instrument id and
//     a nonzero quantity
//   - legs grouped by currency must sum to ~0 (double-entry balance)
func ValidateLegs(txType entities.TransactionType, legs []entities.TransactionLeg) error {
	if len(legs) == 0 {
		return errors.UnbalancedLegs("transaction has no legs")
	}

	for i := range legs {
		leg := &legs[i]
		if !leg.LegType.Valid() {
			return errors.UnbalancedLegs(fmt.Sprintf("leg %d has unknown leg type %q", i, leg.LegType))
		}
		if leg.Currency == "" {
			return errors.UnbalancedLegs(fmt.Sprintf("leg %d is missing a currency", i))
		}
	}

	if txType == entities.TransactionTypeBuy || txType == entities.TransactionTypeSell {
		if err := validateAssetLeg(legs); err != nil {
			return err
		}
	}

	sums := make(map[string]decimal.Decimal)
	for i := range legs {
		leg := &legs[i]
		sums[leg.Currency] = sums[leg.Currency].Add(leg.Amount)
	}
	for currency, sum := range sums {
		if sum.Abs().GreaterThan(balanceTolerance) {
			return errors.UnbalancedLegs(
				fmt.Sprintf("legs do not balance for currency %s: sum=%s", currency, sum)).
				AddDetail("currency", currency).
				AddDetail("sum", sum.String())
		}
	}

	return nil
}

func validateAssetLeg(legs []entities.TransactionLeg) error {
	var asset *entities.TransactionLeg
	count := 0
	for i := range legs {
		if legs[i].LegType == entities.LegTypeAsset {
			asset = &legs[i]
			count++
		}
	}
	if count != 1 {
		return errors.UnbalancedLegs(fmt.Sprintf("BUY/SELL requires exactly one ASSET leg, got %d", count))
	}
	if asset.InstrumentID == nil || *asset.InstrumentID == "" {
		return errors.UnbalancedLegs("ASSET leg is missing an instrument id")
	}
	if !asset.Quantity.Valid || asset.Quantity.Decimal.IsZero() {
		return errors.UnbalancedLegs("ASSET leg requires a nonzero quantity")
	}
	return nil
}
