package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/dto"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler handles HTTP requests for range summaries and P&L reports.
type reportingHandler struct {
	reporting  portssvc.ReportingService
	normalizer domain.Normalizer
}

func newReportingHandler(rs portssvc.ReportingService, n domain.Normalizer) *reportingHandler {
	return &reportingHandler{reporting: rs, normalizer: n}
}

// registerReportingRoutes registers routes related to reports.
func registerReportingRoutes(rg *gin.RouterGroup, rs portssvc.ReportingService, n domain.Normalizer) {
	h := newReportingHandler(rs, n)

	reports := rg.Group("/companies/:companyID/reports")
	{
		reports.GET("/summary", h.getSummary)
		reports.GET("/profit-and-loss", h.getProfitAndLoss)
	}
}

// dateRange parses the fromDate/toDate query parameters. Writes the error
// response itself on failure.
func (h *reportingHandler) dateRange(c *gin.Context) (from, to domain.DayKey, ok bool) {
	fromKey, err := parseQueryDate(c.Query("fromDate"), h.normalizer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fromDate, expected YYYY-MM-DD"})
		return domain.DayKey{}, domain.DayKey{}, false
	}
	toKey, err := parseQueryDate(c.Query("toDate"), h.normalizer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid toDate, expected YYYY-MM-DD"})
		return domain.DayKey{}, domain.DayKey{}, false
	}
	return fromKey, toKey, true
}

// getSummary godoc
// @Summary Summarize a ledger range
// @Description Sums purchases, sales and expenses over [fromDate, toDate] and reports point-in-time opening/closing stock values
// @Tags reports
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   fromDate query string true "Range start (YYYY-MM-DD)"
// @Param   toDate query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} dto.LedgerRangeSummaryResponse
// @Failure 400 {object} map[string]string "Invalid range"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to summarize range"
// @Security BearerAuth
// @Router /companies/{companyID}/reports/summary [get]
func (h *reportingHandler) getSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}
	from, to, ok := h.dateRange(c)
	if !ok {
		return
	}

	summary, err := h.reporting.Summarize(c.Request.Context(), tenantID, companyID, from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error summarizing range", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to summarize range in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize range"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToLedgerRangeSummaryResponse(*summary, h.normalizer.Location()))
}

// getProfitAndLoss godoc
// @Summary Profit and loss for a range
// @Description Derives COGS, gross profit and net profit over [fromDate, toDate], combining the ledger with receipts, payments and categorized sales
// @Tags reports
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   fromDate query string true "Range start (YYYY-MM-DD)"
// @Param   toDate query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} dto.ProfitAndLossResponse
// @Failure 400 {object} map[string]string "Invalid range"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to build report"
// @Security BearerAuth
// @Router /companies/{companyID}/reports/profit-and-loss [get]
func (h *reportingHandler) getProfitAndLoss(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}
	from, to, ok := h.dateRange(c)
	if !ok {
		return
	}

	report, err := h.reporting.ProfitAndLoss(c.Request.Context(), tenantID, companyID, from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error building P&L report", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to build P&L report in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToProfitAndLossResponse(*report, h.normalizer.Location()))
}
