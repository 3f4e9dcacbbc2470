package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DeltaKind is the closed set of mutation kinds the ledger accepts.
type DeltaKind string

const (
	DeltaPurchase DeltaKind = "PURCHASE"
	DeltaSale     DeltaKind = "SALE"
	DeltaExpense  DeltaKind = "EXPENSE"
	// DeltaStockAdjustment is a manual correction to the stock baseline made
	// outside the purchase/sale flow. It shifts opening and closing stock
	// equally and does not count as trading activity.
	DeltaStockAdjustment DeltaKind = "STOCK_ADJUSTMENT"
)

// StockDelta is a signed incremental change applied to one ledger day in
// response to an external business event.
type StockDelta struct {
	Kind     DeltaKind       `json:"kind"`
	Quantity int64           `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	// ExpenseHeadID identifies the expense head for EXPENSE deltas; ignored
	// for every other kind.
	ExpenseHeadID string `json:"expenseHeadID,omitempty"`
}

// Validate checks structural validity of the delta. It does not constrain
// signs: reversals legitimately carry negative quantities and amounts.
func (d StockDelta) Validate() error {
	switch d.Kind {
	case DeltaPurchase, DeltaSale, DeltaStockAdjustment:
		if d.ExpenseHeadID != "" {
			return fmt.Errorf("expense head not allowed for %s delta", d.Kind)
		}
	case DeltaExpense:
		if d.ExpenseHeadID == "" {
			return fmt.Errorf("expense delta requires an expense head")
		}
	default:
		return fmt.Errorf("unknown delta kind %q", d.Kind)
	}
	return nil
}

// IsZero reports whether the delta changes nothing.
func (d StockDelta) IsZero() bool {
	return d.Quantity == 0 && d.Amount.IsZero()
}
