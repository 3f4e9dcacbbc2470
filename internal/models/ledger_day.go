package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerDay mirrors the ledger_days table. The day key is stored as the UTC
// start-of-day instant; (tenant_id, company_id, day_key) carries a unique
// index that is the only arbiter of creation races. expense_summary is JSONB.
type LedgerDay struct {
	TenantID  string    `json:"tenantID"`
	CompanyID string    `json:"companyID"`
	DayKey    time.Time `json:"dayKey"`

	OpeningQuantity  int64           `json:"openingQuantity"`
	OpeningAmount    decimal.Decimal `json:"openingAmount"`
	ClosingQuantity  int64           `json:"closingQuantity"`
	ClosingAmount    decimal.Decimal `json:"closingAmount"`
	PurchaseQuantity int64           `json:"purchaseQuantity"`
	PurchaseAmount   decimal.Decimal `json:"purchaseAmount"`
	SaleQuantity     int64           `json:"saleQuantity"`
	SaleAmount       decimal.Decimal `json:"saleAmount"`

	ExpenseSummary map[string]decimal.Decimal `json:"expenseSummary"`
	TotalExpenses  decimal.Decimal            `json:"totalExpenses"`
	TotalCOGS      decimal.Decimal            `json:"totalCOGS"`

	// Version is bumped on every successful save; updates carry the expected
	// version in their WHERE clause.
	Version int64 `json:"version"`

	AuditFields
}
