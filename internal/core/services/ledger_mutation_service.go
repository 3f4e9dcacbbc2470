package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/shopspring/decimal"
)

// maxSaveAttempts bounds the optimistic-concurrency retry loop. Contention on
// a single (company, day) record is short-lived, so a handful of retries is
// plenty before surfacing the conflict.
const maxSaveAttempts = 5

// ledgerMutationService implements the LedgerMutationService interface
type ledgerMutationService struct {
	BaseService
	ledgerRepo   portsrepo.LedgerDayRepository
	carryForward portssvc.CarryForwardService
	normalizer   domain.Normalizer
	now          func() time.Time
}

// MutationOption is a functional option for configuring the mutation service
type MutationOption func(*ledgerMutationService)

// WithMutationClock overrides the wall clock, for tests.
func WithMutationClock(now func() time.Time) MutationOption {
	return func(s *ledgerMutationService) {
		s.now = now
	}
}

// NewLedgerMutationService creates a new mutation service with the provided options
func NewLedgerMutationService(ledgerRepo portsrepo.LedgerDayRepository, carryForward portssvc.CarryForwardService, normalizer domain.Normalizer, options ...MutationOption) portssvc.LedgerMutationService {
	svc := &ledgerMutationService{
		ledgerRepo:   ledgerRepo,
		carryForward: carryForward,
		normalizer:   normalizer,
		now:          time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure ledgerMutationService implements the LedgerMutationService interface
var _ portssvc.LedgerMutationService = (*ledgerMutationService)(nil)

// ApplyDelta applies one signed delta to the day's record. The day is ensured
// first, then updated read-modify-write; a version conflict on save means a
// concurrent writer got there first, so the record is re-fetched and the
// delta re-applied on the fresh copy. Deltas are therefore never lost to
// last-write-wins, only delayed.
func (s *ledgerMutationService) ApplyDelta(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey, delta domain.StockDelta) (*domain.LedgerDay, error) {
	if err := delta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	dayKey = s.normalizer.FromStored(dayKey.Time())

	day, err := s.carryForward.EnsureDay(ctx, tenantID, companyID, dayKey)
	if err != nil {
		return nil, err
	}

	// A zero stock adjustment corrects nothing; skip the write entirely.
	if delta.Kind == domain.DeltaStockAdjustment && delta.IsZero() {
		return day, nil
	}

	for attempt := 1; ; attempt++ {
		updated := s.applyToDay(ctx, *day, delta)

		saved, err := s.ledgerRepo.SaveDay(ctx, updated)
		if err == nil {
			s.LogInfo(ctx, "Ledger delta applied",
				slog.String("company_id", companyID),
				slog.String("day", dayKey.String()),
				slog.String("kind", string(delta.Kind)),
				slog.Int64("quantity", delta.Quantity),
				slog.String("amount", delta.Amount.String()))
			return saved, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			s.LogError(ctx, err, "Failed to save ledger day",
				slog.String("company_id", companyID),
				slog.String("day", dayKey.String()))
			return nil, fmt.Errorf("failed to save ledger day: %w", err)
		}
		if attempt >= maxSaveAttempts {
			s.LogError(ctx, err, "Gave up applying delta after repeated version conflicts",
				slog.String("company_id", companyID),
				slog.String("day", dayKey.String()),
				slog.Int("attempts", attempt))
			return nil, fmt.Errorf("ledger day kept changing under us: %w", apperrors.ErrConflict)
		}

		day, err = s.ledgerRepo.FindDay(ctx, tenantID, companyID, dayKey)
		if err != nil {
			return nil, fmt.Errorf("failed to re-fetch ledger day after conflict: %w", err)
		}
	}
}

// applyToDay computes the post-delta record. Pure; the caller owns retries.
func (s *ledgerMutationService) applyToDay(ctx context.Context, day domain.LedgerDay, delta domain.StockDelta) domain.LedgerDay {
	switch delta.Kind {
	case domain.DeltaPurchase:
		day.Purchases = day.Purchases.AddDelta(delta.Quantity, delta.Amount)
		day.ClosingStock = day.ClosingStock.AddDelta(delta.Quantity, delta.Amount)

	case domain.DeltaSale:
		day.Sales = day.Sales.AddDelta(delta.Quantity, delta.Amount)
		day.ClosingStock = day.ClosingStock.AddDelta(delta.Quantity, delta.Amount)

	case domain.DeltaStockAdjustment:
		// Baseline correction: shifts the whole day, not its activity.
		day.OpeningStock = day.OpeningStock.AddDelta(delta.Quantity, delta.Amount)
		day.ClosingStock = day.ClosingStock.AddDelta(delta.Quantity, delta.Amount)

	case domain.DeltaExpense:
		day.TotalExpenses = day.TotalExpenses.Add(delta.Amount)
		day.ExpenseSummary = applyExpenseHead(day.CloneExpenseSummary(), delta.ExpenseHeadID, delta.Amount)
	}

	day.LastUpdatedAt = s.now().UTC()
	if actor, ok := middleware.GetUserIDFromCtx(ctx); ok {
		day.LastUpdatedBy = actor
	}
	return day
}

// applyExpenseHead folds one expense delta into the head map. Heads whose
// accumulated amount drops to zero or below are removed outright; nothing
// negative is ever stored. A delta against an absent head only inserts when
// positive. TotalExpenses is adjusted independently of this map, so the two
// can diverge once heads are pruned; that asymmetry is long-standing reported
// behavior and is preserved.
func applyExpenseHead(summary map[string]decimal.Decimal, headID string, amount decimal.Decimal) map[string]decimal.Decimal {
	current, found := summary[headID]
	if found {
		next := current.Add(amount)
		if next.LessThanOrEqual(decimal.Zero) {
			delete(summary, headID)
		} else {
			summary[headID] = next
		}
		return summary
	}
	if amount.GreaterThan(decimal.Zero) {
		summary[headID] = amount
	}
	return summary
}
