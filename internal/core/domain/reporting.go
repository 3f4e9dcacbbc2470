package domain

import (
	"github.com/shopspring/decimal"
)

// AggregateTotal is the {total, count} shape returned by the external
// transaction aggregate providers (receipts, payments).
type AggregateTotal struct {
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// SaleCategory partitions sold value by what was sold.
type SaleCategory string

const (
	CategoryGoods   SaleCategory = "GOODS"
	CategoryService SaleCategory = "SERVICE"
)

// SettlementKind partitions sold value by how it was settled.
type SettlementKind string

const (
	SettlementImmediate SettlementKind = "IMMEDIATE"
	SettlementCredit    SettlementKind = "CREDIT"
)

// SaleLine is one line item of a settled sale, carrying the category and the
// line subtotal used for proportional partitioning.
type SaleLine struct {
	Category SaleCategory    `json:"category"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// SettledSale is one sale transaction as reported by the external sales
// aggregate provider. Total is the transaction value actually settled; Lines
// carry per-category subtotals, which may not sum to Total when discounts or
// rounding applied at the transaction level.
type SettledSale struct {
	SaleID     string          `json:"saleID"`
	Total      decimal.Decimal `json:"total"`
	Settlement SettlementKind  `json:"settlement"`
	Lines      []SaleLine      `json:"lines"`
}

// LedgerRangeSummary aggregates ledger days over an inclusive day range.
// The Opening/Closing/Purchases/Sales figures are sums over every day found
// in range; OpeningStockValue and ClosingStockValue are the point-in-time
// balances of the first and last day found and must not be read as sums.
type LedgerRangeSummary struct {
	From     DayKey `json:"from"`
	To       DayKey `json:"to"`
	DayCount int    `json:"dayCount"`

	Opening   StockFigures `json:"opening"`
	Closing   StockFigures `json:"closing"`
	Purchases StockFigures `json:"purchases"`
	Sales     StockFigures `json:"sales"`

	NetStockChange int64           `json:"netStockChange"`
	NetValueChange decimal.Decimal `json:"netValueChange"`

	OpeningStockValue decimal.Decimal `json:"openingStockValue"`
	ClosingStockValue decimal.Decimal `json:"closingStockValue"`

	TotalExpenses decimal.Decimal `json:"totalExpenses"`
}

// ProfitAndLossReport combines ledger aggregates with the external
// receipt/payment/sales streams into profit-and-loss figures for a range.
type ProfitAndLossReport struct {
	From DayKey `json:"from"`
	To   DayKey `json:"to"`

	OpeningStockValue decimal.Decimal `json:"openingStockValue"`
	ClosingStockValue decimal.Decimal `json:"closingStockValue"`
	PurchasesInRange  decimal.Decimal `json:"purchasesInRange"`
	SalesInRange      decimal.Decimal `json:"salesInRange"`

	CostOfGoodsSold decimal.Decimal `json:"costOfGoodsSold"`
	GrossProfit     decimal.Decimal `json:"grossProfit"`

	Receipts AggregateTotal `json:"receipts"`
	Payments AggregateTotal `json:"payments"`

	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`

	// Percentage ratios; each is zero when its denominator is zero.
	ProfitMargin decimal.Decimal `json:"profitMargin"`
	NetMargin    decimal.Decimal `json:"netMargin"`
	ExpenseRatio decimal.Decimal `json:"expenseRatio"`

	SalesByCategory   map[SaleCategory]decimal.Decimal   `json:"salesByCategory"`
	SalesBySettlement map[SettlementKind]decimal.Decimal `json:"salesBySettlement"`
}
