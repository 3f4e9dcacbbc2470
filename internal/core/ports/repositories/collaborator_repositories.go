package repositories

import (
	"context"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
)

// InventoryReader supplies the live inventory snapshot used only when the
// very first ledger day is bootstrapped for a (tenant, company) combination.
type InventoryReader interface {
	// CurrentInventoryValue sums quantity and quantity*cost_price across all
	// active stock items of the company.
	CurrentInventoryValue(ctx context.Context, tenantID, companyID string) (domain.StockFigures, error)
}

// TransactionAggregates exposes the external receipt/payment/sales streams as
// range aggregates. These collections are owned by collaborators; the ledger
// only ever reads summaries from them.
type TransactionAggregates interface {
	ReceiptsTotal(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (domain.AggregateTotal, error)
	PaymentsTotal(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (domain.AggregateTotal, error)

	// SettledSales returns each sale settled in range with its settlement
	// kind and per-category line subtotals, so the aggregator can partition
	// mixed-category transactions proportionally.
	SettledSales(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) ([]domain.SettledSale, error)
}

// CompanyEnumerator lists every (tenant, company) combination the daily
// scheduler must carry forward.
type CompanyEnumerator interface {
	ListActiveCompanies(ctx context.Context) ([]domain.CompanyRef, error)
}
