package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	"github.com/StockBookHQ/stock_ledger_app/internal/models"
	"github.com/StockBookHQ/stock_ledger_app/internal/utils/mapping"
	"github.com/StockBookHQ/stock_ledger_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const ledgerDayColumns = `
	tenant_id, company_id, day_key,
	opening_quantity, opening_amount, closing_quantity, closing_amount,
	purchase_quantity, purchase_amount, sale_quantity, sale_amount,
	expense_summary, total_expenses, total_cogs, version,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxLedgerDayRepository struct {
	pool       *pgxpool.Pool
	normalizer domain.Normalizer
}

// newPgxLedgerDayRepository creates a new repository for ledger day data.
func newPgxLedgerDayRepository(pool *pgxpool.Pool, normalizer domain.Normalizer) portsrepo.LedgerDayRepository {
	return &PgxLedgerDayRepository{pool: pool, normalizer: normalizer}
}

// Ensure PgxLedgerDayRepository implements portsrepo.LedgerDayRepository
var _ portsrepo.LedgerDayRepository = (*PgxLedgerDayRepository)(nil)

// CreateDay inserts a new ledger day. The unique index on
// (tenant_id, company_id, day_key) rejects concurrent duplicates; that
// rejection surfaces as apperrors.ErrDuplicate and is the expected outcome
// for the loser of a creation race.
func (r *PgxLedgerDayRepository) CreateDay(ctx context.Context, day domain.LedgerDay) error {
	m := mapping.ToModelLedgerDay(day)

	query := `
		INSERT INTO ledger_days (` + ledgerDayColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err := r.pool.Exec(ctx, query,
		m.TenantID,
		m.CompanyID,
		m.DayKey,
		m.OpeningQuantity,
		m.OpeningAmount,
		m.ClosingQuantity,
		m.ClosingAmount,
		m.PurchaseQuantity,
		m.PurchaseAmount,
		m.SaleQuantity,
		m.SaleAmount,
		m.ExpenseSummary,
		m.TotalExpenses,
		m.TotalCOGS,
		m.Version,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return fmt.Errorf("%w: ledger day %s already exists for company %s", apperrors.ErrDuplicate, day.DayKey.String(), day.CompanyID)
			}
		}
		return fmt.Errorf("failed to insert ledger day %s: %w", day.DayKey.String(), err)
	}
	return nil
}

// FindDay retrieves one ledger day by identity.
func (r *PgxLedgerDayRepository) FindDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error) {
	query := `
		SELECT ` + ledgerDayColumns + `
		FROM ledger_days
		WHERE tenant_id = $1 AND company_id = $2 AND day_key = $3;
	`
	row := r.pool.QueryRow(ctx, query, tenantID, companyID, dayKey.Time())

	m, err := scanLedgerDay(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find ledger day %s: %w", dayKey.String(), err)
	}

	day := mapping.ToDomainLedgerDay(*m, r.normalizer)
	return &day, nil
}

// FindDaysInRange retrieves all ledger days in [from, to] ordered by day.
func (r *PgxLedgerDayRepository) FindDaysInRange(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) ([]domain.LedgerDay, error) {
	query := `
		SELECT ` + ledgerDayColumns + `
		FROM ledger_days
		WHERE tenant_id = $1 AND company_id = $2 AND day_key >= $3 AND day_key <= $4
		ORDER BY day_key ASC;
	`
	rows, err := r.pool.Query(ctx, query, tenantID, companyID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger day range: %w", err)
	}
	defer rows.Close()

	var days []domain.LedgerDay
	for rows.Next() {
		m, err := scanLedgerDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger day: %w", err)
		}
		days = append(days, mapping.ToDomainLedgerDay(*m, r.normalizer))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading ledger day rows: %w", err)
	}
	return days, nil
}

// SaveDay applies a read-modify-write update guarded by the record version.
// Zero matched rows means a concurrent writer bumped the version first (or
// the record vanished); either way the caller's copy is stale.
func (r *PgxLedgerDayRepository) SaveDay(ctx context.Context, day domain.LedgerDay) (*domain.LedgerDay, error) {
	m := mapping.ToModelLedgerDay(day)

	query := `
		UPDATE ledger_days SET
			opening_quantity = $4, opening_amount = $5,
			closing_quantity = $6, closing_amount = $7,
			purchase_quantity = $8, purchase_amount = $9,
			sale_quantity = $10, sale_amount = $11,
			expense_summary = $12, total_expenses = $13, total_cogs = $14,
			version = version + 1,
			last_updated_at = $15, last_updated_by = $16
		WHERE tenant_id = $1 AND company_id = $2 AND day_key = $3 AND version = $17
		RETURNING version;
	`
	var newVersion int64
	err := r.pool.QueryRow(ctx, query,
		m.TenantID,
		m.CompanyID,
		m.DayKey,
		m.OpeningQuantity,
		m.OpeningAmount,
		m.ClosingQuantity,
		m.ClosingAmount,
		m.PurchaseQuantity,
		m.PurchaseAmount,
		m.SaleQuantity,
		m.SaleAmount,
		m.ExpenseSummary,
		m.TotalExpenses,
		m.TotalCOGS,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.Version,
	).Scan(&newVersion)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: ledger day %s version %d", apperrors.ErrConflict, day.DayKey.String(), day.Version)
		}
		return nil, fmt.Errorf("failed to save ledger day %s: %w", day.DayKey.String(), err)
	}

	day.Version = newVersion
	return &day, nil
}

// HasAnyDay reports whether any ledger day exists for the combination.
func (r *PgxLedgerDayRepository) HasAnyDay(ctx context.Context, tenantID, companyID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_days WHERE tenant_id = $1 AND company_id = $2);`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, tenantID, companyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to probe ledger history: %w", err)
	}
	return exists, nil
}

// ListDays returns ledger days newest-first, paginated with a day-key token.
func (r *PgxLedgerDayRepository) ListDays(ctx context.Context, tenantID, companyID string, limit int, nextToken *string) ([]domain.LedgerDay, *string, error) {
	query := `
		SELECT ` + ledgerDayColumns + `
		FROM ledger_days
		WHERE tenant_id = $1 AND company_id = $2
	`
	args := []any{tenantID, companyID}

	if nextToken != nil && *nextToken != "" {
		before, err := pagination.DecodeDateBasedToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		query += ` AND day_key < $3`
		args = append(args, before)
	}

	// Fetch one extra row to know whether another page exists.
	query += fmt.Sprintf(` ORDER BY day_key DESC LIMIT %d;`, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list ledger days: %w", err)
	}
	defer rows.Close()

	var days []domain.LedgerDay
	for rows.Next() {
		m, err := scanLedgerDay(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan ledger day: %w", err)
		}
		days = append(days, mapping.ToDomainLedgerDay(*m, r.normalizer))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed reading ledger day rows: %w", err)
	}

	var token *string
	if len(days) > limit {
		days = days[:limit]
		t := pagination.EncodeDateBasedToken(days[len(days)-1].DayKey.Time())
		token = &t
	}
	return days, token, nil
}

// scanLedgerDay scans one ledger_days row in ledgerDayColumns order.
func scanLedgerDay(row pgx.Row) (*models.LedgerDay, error) {
	var m models.LedgerDay
	err := row.Scan(
		&m.TenantID,
		&m.CompanyID,
		&m.DayKey,
		&m.OpeningQuantity,
		&m.OpeningAmount,
		&m.ClosingQuantity,
		&m.ClosingAmount,
		&m.PurchaseQuantity,
		&m.PurchaseAmount,
		&m.SaleQuantity,
		&m.SaleAmount,
		&m.ExpenseSummary,
		&m.TotalExpenses,
		&m.TotalCOGS,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if m.ExpenseSummary == nil {
		m.ExpenseSummary = map[string]decimal.Decimal{}
	}
	return &m, nil
}
