package services

import (
	"context"
	"fmt"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
)

// ledgerReaderService implements the LedgerReaderService interface
type ledgerReaderService struct {
	BaseService
	ledgerRepo portsrepo.LedgerDayRepository
	normalizer domain.Normalizer
}

// NewLedgerReaderService creates a new reader service
func NewLedgerReaderService(ledgerRepo portsrepo.LedgerDayRepository, normalizer domain.Normalizer) portssvc.LedgerReaderService {
	return &ledgerReaderService{
		ledgerRepo: ledgerRepo,
		normalizer: normalizer,
	}
}

var _ portssvc.LedgerReaderService = (*ledgerReaderService)(nil)

func (s *ledgerReaderService) GetDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error) {
	return s.ledgerRepo.FindDay(ctx, tenantID, companyID, s.normalizer.FromStored(dayKey.Time()))
}

func (s *ledgerReaderService) ListDays(ctx context.Context, tenantID, companyID string, limit int, nextToken *string) ([]domain.LedgerDay, *string, error) {
	if limit <= 0 || limit > 100 {
		return nil, nil, fmt.Errorf("%w: limit must be between 1 and 100", apperrors.ErrValidation)
	}
	return s.ledgerRepo.ListDays(ctx, tenantID, companyID, limit, nextToken)
}
