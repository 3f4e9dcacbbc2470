package pgsql

import (
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every pgsql repository against one pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool, normalizer domain.Normalizer) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerDayRepo:   newPgxLedgerDayRepository(dbPool, normalizer),
		InventoryRepo:   newPgxInventoryRepository(dbPool),
		TransactionRepo: newPgxTransactionAggregatesRepository(dbPool, normalizer),
		CompanyRepo:     newPgxCompanyRepository(dbPool),
	}
}
