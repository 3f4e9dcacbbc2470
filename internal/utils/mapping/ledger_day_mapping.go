package mapping

import (
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	"github.com/StockBookHQ/stock_ledger_app/internal/models"
)

// ToModelLedgerDay converts a domain LedgerDay to a model LedgerDay
func ToModelLedgerDay(d domain.LedgerDay) models.LedgerDay {
	return models.LedgerDay{
		TenantID:         d.TenantID,
		CompanyID:        d.CompanyID,
		DayKey:           d.DayKey.Time(),
		OpeningQuantity:  d.OpeningStock.Quantity,
		OpeningAmount:    d.OpeningStock.Amount,
		ClosingQuantity:  d.ClosingStock.Quantity,
		ClosingAmount:    d.ClosingStock.Amount,
		PurchaseQuantity: d.Purchases.Quantity,
		PurchaseAmount:   d.Purchases.Amount,
		SaleQuantity:     d.Sales.Quantity,
		SaleAmount:       d.Sales.Amount,
		ExpenseSummary:   d.ExpenseSummary,
		TotalExpenses:    d.TotalExpenses,
		TotalCOGS:        d.TotalCOGS,
		Version:          d.Version,
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainLedgerDay converts a model LedgerDay back to a domain LedgerDay.
// The day key is re-normalized through the caller's Normalizer so domain code
// only ever sees canonical keys.
func ToDomainLedgerDay(m models.LedgerDay, normalizer domain.Normalizer) domain.LedgerDay {
	return domain.LedgerDay{
		TenantID:       m.TenantID,
		CompanyID:      m.CompanyID,
		DayKey:         normalizer.FromStored(m.DayKey),
		OpeningStock:   domain.StockFigures{Quantity: m.OpeningQuantity, Amount: m.OpeningAmount},
		ClosingStock:   domain.StockFigures{Quantity: m.ClosingQuantity, Amount: m.ClosingAmount},
		Purchases:      domain.StockFigures{Quantity: m.PurchaseQuantity, Amount: m.PurchaseAmount},
		Sales:          domain.StockFigures{Quantity: m.SaleQuantity, Amount: m.SaleAmount},
		ExpenseSummary: m.ExpenseSummary,
		TotalExpenses:  m.TotalExpenses,
		TotalCOGS:      m.TotalCOGS,
		Version:        m.Version,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
}
