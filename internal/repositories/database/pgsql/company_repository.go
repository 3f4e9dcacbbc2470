package pgsql

import (
	"context"
	"fmt"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCompanyRepository struct {
	pool *pgxpool.Pool
}

// newPgxCompanyRepository creates the enumerator the scheduler uses to find
// every combination it must carry forward. Company records are owned by the
// account subsystem; the ledger never validates them beyond existence here.
func newPgxCompanyRepository(pool *pgxpool.Pool) portsrepo.CompanyEnumerator {
	return &PgxCompanyRepository{pool: pool}
}

var _ portsrepo.CompanyEnumerator = (*PgxCompanyRepository)(nil)

func (r *PgxCompanyRepository) ListActiveCompanies(ctx context.Context) ([]domain.CompanyRef, error) {
	query := `
		SELECT tenant_id, company_id
		FROM companies
		WHERE is_active = TRUE
		ORDER BY tenant_id, company_id;
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active companies: %w", err)
	}
	defer rows.Close()

	var refs []domain.CompanyRef
	for rows.Next() {
		var ref domain.CompanyRef
		if err := rows.Scan(&ref.TenantID, &ref.CompanyID); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading company rows: %w", err)
	}
	return refs, nil
}
