package dto

import (
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AggregateTotalResponse is the wire shape of one aggregate bucket.
type AggregateTotalResponse struct {
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

func toAggregateTotalResponse(a domain.AggregateTotal) AggregateTotalResponse {
	return AggregateTotalResponse{Total: a.Total, Count: a.Count}
}

// LedgerRangeSummaryResponse carries range sums plus the point-in-time
// opening and closing stock values for the requested window.
type LedgerRangeSummaryResponse struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	DayCount int    `json:"dayCount"`

	Opening   StockFiguresResponse `json:"opening"`
	Closing   StockFiguresResponse `json:"closing"`
	Purchases StockFiguresResponse `json:"purchases"`
	Sales     StockFiguresResponse `json:"sales"`

	NetStockChange int64           `json:"netStockChange"`
	NetValueChange decimal.Decimal `json:"netValueChange"`

	OpeningStockValue decimal.Decimal `json:"openingStockValue"`
	ClosingStockValue decimal.Decimal `json:"closingStockValue"`

	TotalExpenses decimal.Decimal `json:"totalExpenses"`
}

// ToLedgerRangeSummaryResponse converts a domain summary to its wire shape.
func ToLedgerRangeSummaryResponse(s domain.LedgerRangeSummary, loc *time.Location) LedgerRangeSummaryResponse {
	return LedgerRangeSummaryResponse{
		FromDate:          s.From.Time().In(loc).Format(dateLayout),
		ToDate:            s.To.Time().In(loc).Format(dateLayout),
		DayCount:          s.DayCount,
		Opening:           toStockFiguresResponse(s.Opening),
		Closing:           toStockFiguresResponse(s.Closing),
		Purchases:         toStockFiguresResponse(s.Purchases),
		Sales:             toStockFiguresResponse(s.Sales),
		NetStockChange:    s.NetStockChange,
		NetValueChange:    s.NetValueChange,
		OpeningStockValue: s.OpeningStockValue,
		ClosingStockValue: s.ClosingStockValue,
		TotalExpenses:     s.TotalExpenses,
	}
}

// ProfitAndLossResponse is the wire shape of a period P&L report.
type ProfitAndLossResponse struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`

	OpeningStockValue decimal.Decimal `json:"openingStockValue"`
	ClosingStockValue decimal.Decimal `json:"closingStockValue"`
	PurchasesInRange  decimal.Decimal `json:"purchasesInRange"`
	SalesInRange      decimal.Decimal `json:"salesInRange"`

	CostOfGoodsSold decimal.Decimal `json:"costOfGoodsSold"`
	GrossProfit     decimal.Decimal `json:"grossProfit"`

	Receipts AggregateTotalResponse `json:"receipts"`
	Payments AggregateTotalResponse `json:"payments"`

	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`

	ProfitMargin decimal.Decimal `json:"profitMargin"`
	NetMargin    decimal.Decimal `json:"netMargin"`
	ExpenseRatio decimal.Decimal `json:"expenseRatio"`

	SalesByCategory   map[string]decimal.Decimal `json:"salesByCategory"`
	SalesBySettlement map[string]decimal.Decimal `json:"salesBySettlement"`
}

// ToProfitAndLossResponse converts a domain P&L report to its wire shape.
func ToProfitAndLossResponse(r domain.ProfitAndLossReport, loc *time.Location) ProfitAndLossResponse {
	byCategory := make(map[string]decimal.Decimal, len(r.SalesByCategory))
	for k, v := range r.SalesByCategory {
		byCategory[string(k)] = v
	}
	bySettlement := make(map[string]decimal.Decimal, len(r.SalesBySettlement))
	for k, v := range r.SalesBySettlement {
		bySettlement[string(k)] = v
	}
	return ProfitAndLossResponse{
		FromDate:          r.From.Time().In(loc).Format(dateLayout),
		ToDate:            r.To.Time().In(loc).Format(dateLayout),
		OpeningStockValue: r.OpeningStockValue,
		ClosingStockValue: r.ClosingStockValue,
		PurchasesInRange:  r.PurchasesInRange,
		SalesInRange:      r.SalesInRange,
		CostOfGoodsSold:   r.CostOfGoodsSold,
		GrossProfit:       r.GrossProfit,
		Receipts:          toAggregateTotalResponse(r.Receipts),
		Payments:          toAggregateTotalResponse(r.Payments),
		TotalIncome:       r.TotalIncome,
		TotalExpenses:     r.TotalExpenses,
		NetProfit:         r.NetProfit,
		ProfitMargin:      r.ProfitMargin,
		NetMargin:         r.NetMargin,
		ExpenseRatio:      r.ExpenseRatio,
		SalesByCategory:   byCategory,
		SalesBySettlement: bySettlement,
	}
}
