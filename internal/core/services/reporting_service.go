package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/cache"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// reportingService implements the ReportingService interface
type reportingService struct {
	BaseService
	ledgerRepo      portsrepo.LedgerDayRepository
	transactionRepo portsrepo.TransactionAggregates
	normalizer      domain.Normalizer
	summaryCache    cache.Cache
	cacheTTL        time.Duration
}

// ReportingServiceOption is a functional option for configuring the reporting service
type ReportingServiceOption func(*reportingService)

// WithSummaryCache enables caching of range summaries with the given TTL.
// Writes do not invalidate cached entries, so a summary whose range covers the
// current day can lag behind new deltas for up to the TTL. Keep the TTL short
// enough that this staleness is acceptable.
func WithSummaryCache(c cache.Cache, ttl time.Duration) ReportingServiceOption {
	return func(s *reportingService) {
		s.summaryCache = c
		s.cacheTTL = ttl
	}
}

// NewReportingService creates a new reporting service with the provided options
func NewReportingService(ledgerRepo portsrepo.LedgerDayRepository, transactionRepo portsrepo.TransactionAggregates, normalizer domain.Normalizer, options ...ReportingServiceOption) portssvc.ReportingService {
	svc := &reportingService{
		ledgerRepo:      ledgerRepo,
		transactionRepo: transactionRepo,
		normalizer:      normalizer,
		summaryCache:    cache.Noop{},
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

// Ensure reportingService implements the ReportingService interface
var _ portssvc.ReportingService = (*reportingService)(nil)

// Summarize aggregates the ledger days actually present in [from, to].
// Days that were never created are silently absent: the report shrinks, it
// does not fail.
func (s *reportingService) Summarize(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (*domain.LedgerRangeSummary, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: from-day is after to-day", apperrors.ErrValidation)
	}
	from = s.normalizer.FromStored(from.Time())
	to = s.normalizer.FromStored(to.Time())

	cacheKey := summaryCacheKey(tenantID, companyID, from, to)
	if payload, found, err := s.summaryCache.Get(ctx, cacheKey); err == nil && found {
		var cached domain.LedgerRangeSummary
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		// Undecodable cache entries are dropped and recomputed.
		_ = s.summaryCache.Delete(ctx, cacheKey)
	}

	days, err := s.ledgerRepo.FindDaysInRange(ctx, tenantID, companyID, from, to)
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch ledger days for summary",
			slog.String("company_id", companyID),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
		return nil, fmt.Errorf("failed to fetch ledger days: %w", err)
	}

	summary := &domain.LedgerRangeSummary{
		From:              from,
		To:                to,
		DayCount:          len(days),
		Opening:           domain.ZeroStock(),
		Closing:           domain.ZeroStock(),
		Purchases:         domain.ZeroStock(),
		Sales:             domain.ZeroStock(),
		NetValueChange:    decimal.Zero,
		OpeningStockValue: decimal.Zero,
		ClosingStockValue: decimal.Zero,
		TotalExpenses:     decimal.Zero,
	}

	for _, day := range days {
		summary.Opening = summary.Opening.Add(day.OpeningStock)
		summary.Closing = summary.Closing.Add(day.ClosingStock)
		summary.Purchases = summary.Purchases.Add(day.Purchases)
		summary.Sales = summary.Sales.Add(day.Sales)
		summary.TotalExpenses = summary.TotalExpenses.Add(day.TotalExpenses)
	}

	summary.NetStockChange = summary.Closing.Quantity - summary.Opening.Quantity
	summary.NetValueChange = summary.Closing.Amount.Sub(summary.Opening.Amount)

	// Point-in-time balances: first day's opening, last day's closing.
	// These are NOT sums; confusing the two is the classic reporting bug.
	if len(days) > 0 {
		summary.OpeningStockValue = days[0].OpeningStock.Amount
		summary.ClosingStockValue = days[len(days)-1].ClosingStock.Amount
	}

	if payload, err := json.Marshal(summary); err == nil {
		if err := s.summaryCache.Set(ctx, cacheKey, payload, s.cacheTTL); err != nil {
			s.LogDebug(ctx, "Summary cache write failed", slog.String("error", err.Error()))
		}
	}

	return summary, nil
}

// ProfitAndLoss combines the ledger range with the external transaction
// streams into a profit-and-loss report.
func (s *reportingService) ProfitAndLoss(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (*domain.ProfitAndLossReport, error) {
	summary, err := s.Summarize(ctx, tenantID, companyID, from, to)
	if err != nil {
		return nil, err
	}

	receipts, err := s.transactionRepo.ReceiptsTotal(ctx, tenantID, companyID, summary.From, summary.To)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate receipts: %w", err)
	}
	payments, err := s.transactionRepo.PaymentsTotal(ctx, tenantID, companyID, summary.From, summary.To)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	sales, err := s.transactionRepo.SettledSales(ctx, tenantID, companyID, summary.From, summary.To)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settled sales: %w", err)
	}

	byCategory, bySettlement := partitionSales(sales)

	report := &domain.ProfitAndLossReport{
		From:              summary.From,
		To:                summary.To,
		OpeningStockValue: summary.OpeningStockValue,
		ClosingStockValue: summary.ClosingStockValue,
		PurchasesInRange:  summary.Purchases.Amount,
		SalesInRange:      summary.Sales.Amount,
		Receipts:          receipts,
		Payments:          payments,
		TotalExpenses:     summary.TotalExpenses,
		SalesByCategory:   byCategory,
		SalesBySettlement: bySettlement,
	}

	report.CostOfGoodsSold = report.OpeningStockValue.Add(report.PurchasesInRange).Sub(report.ClosingStockValue)
	report.GrossProfit = report.SalesInRange.Sub(report.CostOfGoodsSold)
	report.TotalIncome = report.SalesInRange
	report.NetProfit = report.GrossProfit.Sub(report.TotalExpenses)

	report.ProfitMargin = percentOf(report.GrossProfit, report.SalesInRange)
	report.NetMargin = percentOf(report.NetProfit, report.TotalIncome)
	report.ExpenseRatio = percentOf(report.TotalExpenses, report.TotalIncome)

	s.LogInfo(ctx, "Profit and loss report generated",
		slog.String("company_id", companyID),
		slog.String("from", summary.From.String()),
		slog.String("to", summary.To.String()),
		slog.Int("day_count", summary.DayCount),
		slog.String("net_profit", report.NetProfit.String()))

	return report, nil
}

// percentOf returns part/whole as a percentage, and zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(oneHundred)
}

// partitionSales splits settled sale values by category and settlement kind.
// A sale mixing categories is partitioned proportionally to its line-item
// subtotals, with the remainder assigned to the final category so the shares
// always sum back to the transaction value.
func partitionSales(sales []domain.SettledSale) (map[domain.SaleCategory]decimal.Decimal, map[domain.SettlementKind]decimal.Decimal) {
	byCategory := make(map[domain.SaleCategory]decimal.Decimal)
	bySettlement := make(map[domain.SettlementKind]decimal.Decimal)

	for _, sale := range sales {
		bySettlement[sale.Settlement] = bySettlement[sale.Settlement].Add(sale.Total)

		// Group line subtotals per category, keeping first-seen order so the
		// remainder assignment is deterministic.
		var order []domain.SaleCategory
		perCategory := make(map[domain.SaleCategory]decimal.Decimal)
		lineSum := decimal.Zero
		for _, line := range sale.Lines {
			if _, seen := perCategory[line.Category]; !seen {
				order = append(order, line.Category)
			}
			perCategory[line.Category] = perCategory[line.Category].Add(line.Subtotal)
			lineSum = lineSum.Add(line.Subtotal)
		}
		if len(order) == 0 || lineSum.IsZero() {
			// No line detail to split by; the whole value counts as goods.
			byCategory[domain.CategoryGoods] = byCategory[domain.CategoryGoods].Add(sale.Total)
			continue
		}

		remaining := sale.Total
		for i, category := range order {
			var share decimal.Decimal
			if i == len(order)-1 {
				share = remaining
			} else {
				share = perCategory[category].Div(lineSum).Mul(sale.Total).Round(4)
				remaining = remaining.Sub(share)
			}
			byCategory[category] = byCategory[category].Add(share)
		}
	}

	return byCategory, bySettlement
}

func summaryCacheKey(tenantID, companyID string, from, to domain.DayKey) string {
	return fmt.Sprintf("ledger:summary:%s:%s:%s:%s", tenantID, companyID, from.String(), to.String())
}
