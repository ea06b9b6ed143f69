package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

const avgCostScale = 6

// Accumulation is the folded state of a ledger: per-instrument positions
// plus the portfolio cash balance.
type Accumulation struct {
	Positions map[string]*entities.Position
	Cash      decimal.Decimal
	// order preserves first-seen instrument order for stable output
	order []string
}

// InstrumentIDs returns instrument ids in first-seen ledger order,
// excluding positions that netted to zero.
func (a *Accumulation) InstrumentIDs() []string {
	ids := make([]string, 0, len(a.order))
	for _, id := range a.order {
		if pos, ok := a.Positions[id]; ok && !pos.Quantity.IsZero() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Accumulate folds posted transactions into positions and cash as of the
// given cutoff. Transactions are re-sorted by occurrence time ascending
// before folding; downstream statistics assume chronological order.
// A zero asOf means no cutoff. Positions that net to exactly zero
// quantity are dropped.
func Accumulate(transactions []*entities.Transaction, asOf time.Time) *Accumulation {
	sorted := make([]*entities.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	acc := &Accumulation{
		Positions: make(map[string]*entities.Position),
		Cash:      decimal.Zero,
	}

	for _, tx := range sorted {
		if tx.Status == entities.TransactionStatusVoid {
			continue
		}
		if !asOf.IsZero() && tx.OccurredAt.After(asOf) {
			continue
		}
		for i := range tx.Legs {
			acc.fold(&tx.Legs[i])
		}
	}

	for id, pos := range acc.Positions {
		if pos.Quantity.IsZero() {
			delete(acc.Positions, id)
		}
	}

	return acc
}

func (a *Accumulation) fold(leg *entities.TransactionLeg) {
	switch leg.LegType {
	case entities.LegTypeAsset:
		if leg.InstrumentID == nil || *leg.InstrumentID == "" {
			return
		}
		pos, ok := a.Positions[*leg.InstrumentID]
		if !ok {
			pos = &entities.Position{InstrumentID: *leg.InstrumentID}
			a.Positions[*leg.InstrumentID] = pos
			a.order = append(a.order, *leg.InstrumentID)
		}
		applyTrade(pos, leg)
	case entities.LegTypeCash:
		// external-account legs book against an outside account and are
		// not portfolio cash
		if !leg.IsExternal() {
			a.Cash = a.Cash.Add(leg.Amount)
		}
	}
	// FEE and TAX already flow through their CASH counter-legs
}

func applyTrade(pos *entities.Position, leg *entities.TransactionLeg) {
	if !leg.Quantity.Valid {
		return
	}
	qty := leg.Quantity.Decimal
	price := decimal.Zero
	if leg.Price.Valid {
		price = leg.Price.Decimal
	}

	if qty.IsPositive() {
		pos.TotalCost = pos.TotalCost.Add(qty.Mul(price))
		pos.Quantity = pos.Quantity.Add(qty)
	} else {
		sellQty := qty.Abs()
		avgCost := avgCostOf(pos)
		pos.RealizedPnl = pos.RealizedPnl.Add(sellQty.Mul(price.Sub(avgCost)))
		if pos.Quantity.IsPositive() {
			pos.TotalCost = pos.TotalCost.Sub(avgCost.Mul(sellQty))
		}
		pos.Quantity = pos.Quantity.Add(qty)
	}
	pos.AvgCost = avgCostOf(pos)
}

func avgCostOf(pos *entities.Position) decimal.Decimal {
	if !pos.Quantity.IsPositive() {
		return decimal.Zero
	}
	return pos.TotalCost.DivRound(pos.Quantity, avgCostScale)
}

// NetExternalCashFlow sums the portfolio-side CASH legs of DEPOSIT and
// WITHDRAW transactions dated on the given calendar day. This is the
// external cash flow term of the TWR calculation.
func NetExternalCashFlow(transactions []*entities.Transaction, date time.Time) decimal.Decimal {
	y, m, d := date.Date()
	flow := decimal.Zero

	for _, tx := range transactions {
		if tx.Status == entities.TransactionStatusVoid {
			continue
		}
		if tx.Type != entities.TransactionTypeDeposit && tx.Type != entities.TransactionTypeWithdraw {
			continue
		}
		ty, tm, td := tx.OccurredAt.Date()
		if ty != y || tm != m || td != d {
			continue
		}
		for i := range tx.Legs {
			leg := &tx.Legs[i]
			if leg.LegType == entities.LegTypeCash && !leg.IsExternal() {
				flow = flow.Add(leg.Amount)
			}
		}
	}
	return flow
}
