package repositories

import (
	"context"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
)

// LedgerDayRepository defines persistence operations for LedgerDay records.
// The (tenant_id, company_id, day_key) uniqueness constraint lives in the
// storage engine itself; CreateDay surfaces it as apperrors.ErrDuplicate and
// callers treat that as "the record exists", never as a failure to retry.
type LedgerDayRepository interface {
	// CreateDay inserts a brand-new ledger day. Returns apperrors.ErrDuplicate
	// when a record for the same identity already exists.
	CreateDay(ctx context.Context, day domain.LedgerDay) error

	// FindDay fetches one ledger day, or apperrors.ErrNotFound.
	FindDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error)

	// FindDaysInRange fetches all ledger days with from <= day <= to, ordered
	// by day ascending. Missing days are simply absent from the result.
	FindDaysInRange(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) ([]domain.LedgerDay, error)

	// SaveDay persists a read-modify-write update. The update only applies
	// when the stored version still matches day.Version; otherwise it returns
	// apperrors.ErrConflict and the caller must re-fetch and re-apply. On
	// success the returned record carries the bumped version.
	SaveDay(ctx context.Context, day domain.LedgerDay) (*domain.LedgerDay, error)

	// HasAnyDay reports whether any ledger day at all exists for the
	// combination. Used by carry-forward to distinguish "first ever day" from
	// "gap in the history".
	HasAnyDay(ctx context.Context, tenantID, companyID string) (bool, error)

	// ListDays returns ledger days newest-first with token pagination.
	ListDays(ctx context.Context, tenantID, companyID string, limit int, nextToken *string) ([]domain.LedgerDay, *string, error)
}
