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

// carryForwardService implements the CarryForwardService interface
type carryForwardService struct {
	BaseService
	ledgerRepo    portsrepo.LedgerDayRepository
	inventoryRepo portsrepo.InventoryReader
	normalizer    domain.Normalizer
	now           func() time.Time
}

// CarryForwardOption is a functional option for configuring the carry-forward service
type CarryForwardOption func(*carryForwardService)

// WithCarryForwardClock overrides the wall clock, for tests.
func WithCarryForwardClock(now func() time.Time) CarryForwardOption {
	return func(s *carryForwardService) {
		s.now = now
	}
}

// NewCarryForwardService creates a new carry-forward service with the provided options
func NewCarryForwardService(ledgerRepo portsrepo.LedgerDayRepository, inventoryRepo portsrepo.InventoryReader, normalizer domain.Normalizer, options ...CarryForwardOption) portssvc.CarryForwardService {
	svc := &carryForwardService{
		ledgerRepo:    ledgerRepo,
		inventoryRepo: inventoryRepo,
		normalizer:    normalizer,
		now:           time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure carryForwardService implements the CarryForwardService interface
var _ portssvc.CarryForwardService = (*carryForwardService)(nil)

// EnsureDay guarantees exactly one ledger day exists for (tenant, company,
// day). The unique index on the store is the sole race arbiter: we always
// attempt the insert and treat a duplicate rejection as success, because the
// record the caller wanted now exists.
func (s *carryForwardService) EnsureDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error) {
	if tenantID == "" || companyID == "" {
		return nil, fmt.Errorf("%w: tenant and company are required", apperrors.ErrValidation)
	}
	if dayKey.IsZero() {
		return nil, fmt.Errorf("%w: day key is required", apperrors.ErrValidation)
	}
	// Re-normalize defensively; stored keys must always be day starts.
	dayKey = s.normalizer.FromStored(dayKey.Time())

	existing, err := s.ledgerRepo.FindDay(ctx, tenantID, companyID, dayKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to look up ledger day",
			slog.String("company_id", companyID),
			slog.String("day", dayKey.String()))
		return nil, fmt.Errorf("failed to look up ledger day: %w", err)
	}

	opening, err := s.openingStockFor(ctx, tenantID, companyID, dayKey)
	if err != nil {
		return nil, err
	}

	day := s.newDay(ctx, tenantID, companyID, dayKey, opening)

	if err := s.ledgerRepo.CreateDay(ctx, day); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			// Lost the creation race; the winner's record is the one we wanted.
			s.LogDebug(ctx, "Ledger day already created by concurrent caller",
				slog.String("company_id", companyID),
				slog.String("day", dayKey.String()))
			return s.ledgerRepo.FindDay(ctx, tenantID, companyID, dayKey)
		}
		s.LogError(ctx, err, "Failed to create ledger day",
			slog.String("company_id", companyID),
			slog.String("day", dayKey.String()))
		return nil, fmt.Errorf("failed to create ledger day: %w", err)
	}

	s.LogInfo(ctx, "Ledger day created",
		slog.String("company_id", companyID),
		slog.String("day", dayKey.String()),
		slog.Int64("opening_qty", opening.Quantity),
		slog.String("opening_amount", opening.Amount.String()))

	return s.ledgerRepo.FindDay(ctx, tenantID, companyID, dayKey)
}

// openingStockFor resolves the opening balance for a new day:
// yesterday's closing when yesterday exists, the live inventory snapshot when
// this is the first record ever for the combination, zero when the history
// has a gap (gaps are only backfilled by FixMissingCarryForwards).
func (s *carryForwardService) openingStockFor(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (domain.StockFigures, error) {
	prevKey := s.normalizer.Prev(dayKey)

	prev, err := s.ledgerRepo.FindDay(ctx, tenantID, companyID, prevKey)
	if err == nil {
		return prev.ClosingStock, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return domain.StockFigures{}, fmt.Errorf("failed to look up previous ledger day: %w", err)
	}

	hasAny, err := s.ledgerRepo.HasAnyDay(ctx, tenantID, companyID)
	if err != nil {
		return domain.StockFigures{}, fmt.Errorf("failed to probe ledger history: %w", err)
	}
	if hasAny {
		// Gap in the history: default to zero rather than guessing.
		s.LogWarn(ctx, "Previous ledger day missing, opening stock defaults to zero",
			slog.String("company_id", companyID),
			slog.String("day", dayKey.String()))
		return domain.ZeroStock(), nil
	}

	// First record ever for this combination: seed from live inventory so
	// tenants onboarded mid-history start with their real stock position.
	snapshot, err := s.inventoryRepo.CurrentInventoryValue(ctx, tenantID, companyID)
	if err != nil {
		return domain.StockFigures{}, fmt.Errorf("failed to read inventory snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *carryForwardService) newDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey, opening domain.StockFigures) domain.LedgerDay {
	now := s.now().UTC()
	actor, ok := middleware.GetUserIDFromCtx(ctx)
	if !ok {
		actor = "system"
	}
	return domain.LedgerDay{
		TenantID:       tenantID,
		CompanyID:      companyID,
		DayKey:         dayKey,
		OpeningStock:   opening,
		ClosingStock:   opening,
		Purchases:      domain.ZeroStock(),
		Sales:          domain.ZeroStock(),
		ExpenseSummary: map[string]decimal.Decimal{},
		TotalExpenses:  decimal.Zero,
		TotalCOGS:      decimal.Zero,
		Version:        1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}
}

// FixMissingCarryForwards walks [from, to] one day at a time and fills every
// hole with the standard carry-forward rule. Walking forward matters: each
// created day becomes the predecessor the next day inherits from.
func (s *carryForwardService) FixMissingCarryForwards(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (int, error) {
	if from.After(to) {
		return 0, fmt.Errorf("%w: from-day is after to-day", apperrors.ErrValidation)
	}
	from = s.normalizer.FromStored(from.Time())
	to = s.normalizer.FromStored(to.Time())

	created := 0
	for day := from; !day.After(to); day = s.normalizer.Next(day) {
		_, err := s.ledgerRepo.FindDay(ctx, tenantID, companyID, day)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return created, fmt.Errorf("failed to inspect day %s: %w", day.String(), err)
		}
		if _, err := s.EnsureDay(ctx, tenantID, companyID, day); err != nil {
			return created, fmt.Errorf("failed to backfill day %s: %w", day.String(), err)
		}
		created++
	}

	if created > 0 {
		s.LogInfo(ctx, "Backfilled missing ledger days",
			slog.String("company_id", companyID),
			slog.Int("created", created))
	}
	return created, nil
}
