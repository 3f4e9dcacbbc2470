package services

import (
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/cache"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, normalizer domain.Normalizer, summaryCache cache.Cache, summaryTTL time.Duration) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Carry-forward first: the mutation path ensures days through it.
	container.CarryForward = NewCarryForwardService(repos.LedgerDayRepo, repos.InventoryRepo, normalizer)
	container.Mutation = NewLedgerMutationService(repos.LedgerDayRepo, container.CarryForward, normalizer)
	container.Reader = NewLedgerReaderService(repos.LedgerDayRepo, normalizer)
	container.Reporting = NewReportingService(repos.LedgerDayRepo, repos.TransactionRepo, normalizer,
		WithSummaryCache(summaryCache, summaryTTL))

	return container
}
