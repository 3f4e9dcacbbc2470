package pgsql

import (
	"context"
	"fmt"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxTransactionAggregatesRepository struct {
	pool       *pgxpool.Pool
	normalizer domain.Normalizer
}

// newPgxTransactionAggregatesRepository creates a reader over the receipt,
// payment and sales collections. Those tables are written by collaborating
// subsystems; the ledger only aggregates them over day ranges.
func newPgxTransactionAggregatesRepository(pool *pgxpool.Pool, normalizer domain.Normalizer) portsrepo.TransactionAggregates {
	return &PgxTransactionAggregatesRepository{pool: pool, normalizer: normalizer}
}

var _ portsrepo.TransactionAggregates = (*PgxTransactionAggregatesRepository)(nil)

// settledSalesQuery must only reference columns the sales/sale_lines
// migration defines; the repository tests cross-check it against the DDL.
const settledSalesQuery = `
	SELECT s.sale_id, s.total, s.settlement, l.category, l.subtotal
	FROM sales s
	LEFT JOIN sale_lines l ON l.sale_id = s.sale_id
	WHERE s.tenant_id = $1 AND s.company_id = $2 AND s.sold_at >= $3 AND s.sold_at < $4
	ORDER BY s.sale_id;
`

// rangeBounds converts an inclusive day range into a half-open instant range.
// The upper bound is the start of the day after `to`, computed through the
// normalizer like every other boundary in the system.
func (r *PgxTransactionAggregatesRepository) rangeBounds(from, to domain.DayKey) (any, any) {
	return from.Time(), r.normalizer.Next(to).Time()
}

const receiptsTotalQuery = `
	SELECT COALESCE(SUM(amount), 0), COUNT(*)
	FROM receipts
	WHERE tenant_id = $1 AND company_id = $2 AND received_at >= $3 AND received_at < $4;
`

func (r *PgxTransactionAggregatesRepository) ReceiptsTotal(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (domain.AggregateTotal, error) {
	lo, hi := r.rangeBounds(from, to)
	var total domain.AggregateTotal
	if err := r.pool.QueryRow(ctx, receiptsTotalQuery, tenantID, companyID, lo, hi).Scan(&total.Total, &total.Count); err != nil {
		return domain.AggregateTotal{}, fmt.Errorf("failed to aggregate receipts: %w", err)
	}
	return total, nil
}

const paymentsTotalQuery = `
	SELECT COALESCE(SUM(amount), 0), COUNT(*)
	FROM payments
	WHERE tenant_id = $1 AND company_id = $2 AND paid_at >= $3 AND paid_at < $4;
`

func (r *PgxTransactionAggregatesRepository) PaymentsTotal(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (domain.AggregateTotal, error) {
	lo, hi := r.rangeBounds(from, to)
	var total domain.AggregateTotal
	if err := r.pool.QueryRow(ctx, paymentsTotalQuery, tenantID, companyID, lo, hi).Scan(&total.Total, &total.Count); err != nil {
		return domain.AggregateTotal{}, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	return total, nil
}

// SettledSales returns each settled sale in range with its per-category line
// subtotals, ordered by sale so the rows group cleanly.
func (r *PgxTransactionAggregatesRepository) SettledSales(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) ([]domain.SettledSale, error) {
	lo, hi := r.rangeBounds(from, to)
	rows, err := r.pool.Query(ctx, settledSalesQuery, tenantID, companyID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.SettledSale
	var current *domain.SettledSale
	for rows.Next() {
		var (
			saleID     string
			total      decimal.Decimal
			settlement string
			category   *string
			subtotal   *decimal.Decimal
		)
		if err := rows.Scan(&saleID, &total, &settlement, &category, &subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan settled sale: %w", err)
		}

		if current == nil || current.SaleID != saleID {
			sales = append(sales, domain.SettledSale{
				SaleID:     saleID,
				Total:      total,
				Settlement: domain.SettlementKind(settlement),
			})
			current = &sales[len(sales)-1]
		}
		if category != nil && subtotal != nil {
			current.Lines = append(current.Lines, domain.SaleLine{
				Category: domain.SaleCategory(*category),
				Subtotal: *subtotal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading settled sale rows: %w", err)
	}
	return sales, nil
}
