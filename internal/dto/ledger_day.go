package dto

import (
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// EnsureDayRequest asks for a ledger day to exist.
type EnsureDayRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD, civil date in the ledger timezone
}

// ApplyDeltaRequest posts one signed mutation against a ledger day.
type ApplyDeltaRequest struct {
	Date          string          `json:"date" binding:"required"`
	Kind          string          `json:"kind" binding:"required"`
	Quantity      int64           `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	ExpenseHeadID string          `json:"expenseHeadID,omitempty"`
}

// ToStockDelta converts the request payload into the closed domain variant.
// Unknown kinds survive the conversion and are rejected by Validate.
func (r ApplyDeltaRequest) ToStockDelta() domain.StockDelta {
	return domain.StockDelta{
		Kind:          domain.DeltaKind(r.Kind),
		Quantity:      r.Quantity,
		Amount:        r.Amount,
		ExpenseHeadID: r.ExpenseHeadID,
	}
}

// FixCarryForwardsRequest asks for a date range to be backfilled.
type FixCarryForwardsRequest struct {
	FromDate string `json:"fromDate" binding:"required"`
	ToDate   string `json:"toDate" binding:"required"`
}

// FixCarryForwardsResponse reports how many missing days were created.
type FixCarryForwardsResponse struct {
	DaysCreated int `json:"daysCreated"`
}

// StockFiguresResponse mirrors domain.StockFigures on the wire.
type StockFiguresResponse struct {
	Quantity int64           `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// LedgerDayResponse is the wire shape of one ledger day.
type LedgerDayResponse struct {
	TenantID  string `json:"tenantID"`
	CompanyID string `json:"companyID"`
	Date      string `json:"date"`

	OpeningStock StockFiguresResponse `json:"openingStock"`
	ClosingStock StockFiguresResponse `json:"closingStock"`
	Purchases    StockFiguresResponse `json:"purchases"`
	Sales        StockFiguresResponse `json:"sales"`

	ExpenseSummary map[string]decimal.Decimal `json:"expenseSummary"`
	TotalExpenses  decimal.Decimal            `json:"totalExpenses"`

	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// ToLedgerDayResponse converts a domain LedgerDay to its wire shape. The day
// is rendered as the civil date in the ledger's fixed zone.
func ToLedgerDayResponse(d domain.LedgerDay, loc *time.Location) LedgerDayResponse {
	return LedgerDayResponse{
		TenantID:       d.TenantID,
		CompanyID:      d.CompanyID,
		Date:           d.DayKey.Time().In(loc).Format(dateLayout),
		OpeningStock:   toStockFiguresResponse(d.OpeningStock),
		ClosingStock:   toStockFiguresResponse(d.ClosingStock),
		Purchases:      toStockFiguresResponse(d.Purchases),
		Sales:          toStockFiguresResponse(d.Sales),
		ExpenseSummary: d.ExpenseSummary,
		TotalExpenses:  d.TotalExpenses,
		LastUpdatedAt:  d.LastUpdatedAt,
	}
}

func toStockFiguresResponse(s domain.StockFigures) StockFiguresResponse {
	return StockFiguresResponse{Quantity: s.Quantity, Amount: s.Amount}
}

// ListLedgerDaysResponse pages through a company's day book.
type ListLedgerDaysResponse struct {
	Days      []LedgerDayResponse `json:"days"`
	NextToken *string             `json:"nextToken,omitempty"`
}

// ToListLedgerDaysResponse converts a page of ledger days.
func ToListLedgerDaysResponse(days []domain.LedgerDay, nextToken *string, loc *time.Location) ListLedgerDaysResponse {
	out := ListLedgerDaysResponse{
		Days:      make([]LedgerDayResponse, len(days)),
		NextToken: nextToken,
	}
	for i, d := range days {
		out.Days[i] = ToLedgerDayResponse(d, loc)
	}
	return out
}
