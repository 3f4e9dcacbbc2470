package services

import (
	"context"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
)

// CarryForwardService establishes ledger days and seeds their opening stock.
type CarryForwardService interface {
	// EnsureDay guarantees exactly one LedgerDay exists for the combination
	// and day, creating it with carried-forward opening stock when absent.
	// Idempotent; concurrent callers all observe success.
	EnsureDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error)

	// FixMissingCarryForwards walks [from, to] in day order and creates every
	// missing ledger day with the standard carry-forward rule. Returns the
	// number of days created.
	FixMissingCarryForwards(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (int, error)
}

// LedgerMutationService applies signed deltas to a day's ledger record.
type LedgerMutationService interface {
	// ApplyDelta ensures the target day exists and applies the delta to it,
	// retrying internally when a concurrent writer bumps the record version.
	ApplyDelta(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey, delta domain.StockDelta) (*domain.LedgerDay, error)
}

// LedgerReaderService exposes read paths over stored ledger days.
type LedgerReaderService interface {
	GetDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error)
	ListDays(ctx context.Context, tenantID, companyID string, limit int, nextToken *string) ([]domain.LedgerDay, *string, error)
}

// ReportingService aggregates ledger days and external transaction streams
// over inclusive day ranges.
type ReportingService interface {
	// Summarize sums the ledger figures over [from, to]. Days that were never
	// created are excluded from the sums, shrinking DayCount, never erroring.
	Summarize(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (*domain.LedgerRangeSummary, error)

	// ProfitAndLoss derives profit/loss figures for [from, to], combining the
	// ledger range with receipts, payments and categorized sales.
	ProfitAndLoss(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (*domain.ProfitAndLossReport, error)
}
