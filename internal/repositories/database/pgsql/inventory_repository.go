package pgsql

import (
	"context"
	"fmt"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxInventoryRepository struct {
	pool *pgxpool.Pool
}

// newPgxInventoryRepository creates a reader over the stock_items collection.
// Stock items are owned by the product subsystem; the ledger only reads a
// value snapshot from them during first-ever bootstrap.
func newPgxInventoryRepository(pool *pgxpool.Pool) portsrepo.InventoryReader {
	return &PgxInventoryRepository{pool: pool}
}

var _ portsrepo.InventoryReader = (*PgxInventoryRepository)(nil)

// CurrentInventoryValue sums quantity and quantity*cost_price over the
// company's active stock items.
func (r *PgxInventoryRepository) CurrentInventoryValue(ctx context.Context, tenantID, companyID string) (domain.StockFigures, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity), 0),
			COALESCE(SUM(quantity * cost_price), 0)
		FROM stock_items
		WHERE tenant_id = $1 AND company_id = $2 AND is_active = TRUE;
	`
	var snapshot domain.StockFigures
	err := r.pool.QueryRow(ctx, query, tenantID, companyID).Scan(&snapshot.Quantity, &snapshot.Amount)
	if err != nil {
		return domain.StockFigures{}, fmt.Errorf("failed to read inventory snapshot for company %s: %w", companyID, err)
	}
	return snapshot, nil
}
