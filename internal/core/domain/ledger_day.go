package domain

import (
	"github.com/shopspring/decimal"
)

// StockFigures pairs a unit quantity with its monetary value.
type StockFigures struct {
	Quantity int64           `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// ZeroStock returns an explicitly zeroed StockFigures.
// decimal.Decimal's zero value marshals fine, but being explicit keeps the
// carry-forward seeding code readable.
func ZeroStock() StockFigures {
	return StockFigures{Quantity: 0, Amount: decimal.Zero}
}

// Add returns the pairwise sum of two figures.
func (s StockFigures) Add(other StockFigures) StockFigures {
	return StockFigures{
		Quantity: s.Quantity + other.Quantity,
		Amount:   s.Amount.Add(other.Amount),
	}
}

// AddDelta applies a signed quantity/amount delta.
func (s StockFigures) AddDelta(quantity int64, amount decimal.Decimal) StockFigures {
	return StockFigures{
		Quantity: s.Quantity + quantity,
		Amount:   s.Amount.Add(amount),
	}
}

// LedgerDay is one persisted record of a company's stock and expense activity
// for a single civil day. Identity is (TenantID, CompanyID, DayKey), unique
// and immutable once created. Opening stock is inherited from the previous
// day's closing stock by the carry-forward engine; everything else is
// delta-adjusted during the day and never recomputed wholesale.
type LedgerDay struct {
	TenantID  string `json:"tenantID"`
	CompanyID string `json:"companyID"`
	DayKey    DayKey `json:"dayKey"`

	OpeningStock StockFigures `json:"openingStock"`
	ClosingStock StockFigures `json:"closingStock"`
	Purchases    StockFigures `json:"purchases"`
	Sales        StockFigures `json:"sales"`

	// ExpenseSummary accumulates expense amounts per expense head. A head is
	// removed outright when its accumulated amount drops to zero or below;
	// nothing negative is ever stored here.
	ExpenseSummary map[string]decimal.Decimal `json:"expenseSummary"`

	// TotalExpenses is the running sum of expense deltas applied this day.
	// It intentionally is NOT kept equal to the sum of ExpenseSummary: heads
	// pruned at zero leave TotalExpenses untouched, matching how reversals
	// have always been reported.
	TotalExpenses decimal.Decimal `json:"totalExpenses"`

	// TotalCOGS is a cached cost-of-goods-sold figure, maintained lazily by
	// reporting; zero until first derived.
	TotalCOGS decimal.Decimal `json:"totalCOGS"`

	// Version guards read-modify-write updates. SaveDay only succeeds when
	// the stored version matches, bumping it by one.
	Version int64 `json:"version"`

	AuditFields
}

// CloneExpenseSummary returns a copy of the expense map, never nil.
func (d *LedgerDay) CloneExpenseSummary() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(d.ExpenseSummary))
	for head, amt := range d.ExpenseSummary {
		out[head] = amt
	}
	return out
}
