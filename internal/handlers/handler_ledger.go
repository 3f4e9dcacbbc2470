package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/dto"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

const civilDateLayout = "2006-01-02"

// ledgerHandler handles HTTP requests against a company's day book.
type ledgerHandler struct {
	carryForward portssvc.CarryForwardService
	mutation     portssvc.LedgerMutationService
	reader       portssvc.LedgerReaderService
	normalizer   domain.Normalizer
}

func newLedgerHandler(cf portssvc.CarryForwardService, mu portssvc.LedgerMutationService, rd portssvc.LedgerReaderService, n domain.Normalizer) *ledgerHandler {
	return &ledgerHandler{
		carryForward: cf,
		mutation:     mu,
		reader:       rd,
		normalizer:   n,
	}
}

// registerLedgerRoutes registers routes related to ledger days.
func registerLedgerRoutes(rg *gin.RouterGroup, cf portssvc.CarryForwardService, mu portssvc.LedgerMutationService, rd portssvc.LedgerReaderService, n domain.Normalizer) {
	h := newLedgerHandler(cf, mu, rd, n)

	days := rg.Group("/companies/:companyID/ledger-days")
	{
		days.POST("", h.ensureDay)
		days.GET("", h.listDays)
		days.GET("/:date", h.getDay)
		days.POST("/deltas", h.applyDelta)
		days.POST("/fix-carry-forwards", h.fixCarryForwards)
	}
}

// parseCivilDate turns a YYYY-MM-DD string into the DayKey of that civil day.
func (h *ledgerHandler) parseCivilDate(s string) (domain.DayKey, error) {
	t, err := time.ParseInLocation(civilDateLayout, s, h.normalizer.Location())
	if err != nil {
		return domain.DayKey{}, err
	}
	return h.normalizer.Normalize(t), nil
}

// tenantAndCompany pulls the tenant ID stamped by the auth middleware and the
// company ID from the path. Writes the error response itself on failure.
func tenantAndCompany(c *gin.Context) (tenantID, companyID string, ok bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, found := middleware.GetTenantIDFromCtx(c.Request.Context())
	if !found {
		logger.Error("Tenant ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	companyID = c.Param("companyID")
	if companyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Company ID is required"})
		return "", "", false
	}
	return tenantID, companyID, true
}

// ensureDay godoc
// @Summary Ensure a ledger day exists
// @Description Creates the ledger day for the given date if missing, carrying forward the previous closing stock. Idempotent.
// @Tags ledger-days
// @Accept  json
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   day body dto.EnsureDayRequest true "Civil date"
// @Success 200 {object} dto.LedgerDayResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to ensure ledger day"
// @Security BearerAuth
// @Router /companies/{companyID}/ledger-days [post]
func (h *ledgerHandler) ensureDay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}

	var req dto.EnsureDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for EnsureDay", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	dayKey, err := h.parseCivilDate(req.Date)
	if err != nil {
		logger.Warn("Invalid date for EnsureDay", slog.String("date", req.Date))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	logger = logger.With(slog.String("company_id", companyID), slog.String("day", dayKey.String()))
	logger.Info("Received request to ensure ledger day")

	day, err := h.carryForward.EnsureDay(c.Request.Context(), tenantID, companyID, dayKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error ensuring ledger day", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to ensure ledger day in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ensure ledger day"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToLedgerDayResponse(*day, h.normalizer.Location()))
}

// getDay godoc
// @Summary Get one ledger day
// @Description Retrieves the ledger day record for the given civil date
// @Tags ledger-days
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   date path string true "Civil date (YYYY-MM-DD)"
// @Success 200 {object} dto.LedgerDayResponse
// @Failure 400 {object} map[string]string "Invalid date"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Ledger day not found"
// @Failure 500 {object} map[string]string "Failed to retrieve ledger day"
// @Security BearerAuth
// @Router /companies/{companyID}/ledger-days/{date} [get]
func (h *ledgerHandler) getDay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}

	dayKey, err := h.parseCivilDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	day, err := h.reader.GetDay(c.Request.Context(), tenantID, companyID, dayKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Ledger day not found", slog.String("company_id", companyID), slog.String("day", dayKey.String()))
			c.JSON(http.StatusNotFound, gin.H{"error": "Ledger day not found"})
		} else {
			logger.Error("Failed to get ledger day from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve ledger day"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToLedgerDayResponse(*day, h.normalizer.Location()))
}

// listDays godoc
// @Summary List ledger days
// @Description Lists a company's ledger days newest first, paginated by token
// @Tags ledger-days
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Pagination token from a previous page"
// @Success 200 {object} dto.ListLedgerDaysResponse
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list ledger days"
// @Security BearerAuth
// @Router /companies/{companyID}/ledger-days [get]
func (h *ledgerHandler) listDays(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}
	var nextToken *string
	if raw := c.Query("nextToken"); raw != "" {
		nextToken = &raw
	}

	days, newToken, err := h.reader.ListDays(c.Request.Context(), tenantID, companyID, limit, nextToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to list ledger days from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list ledger days"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToListLedgerDaysResponse(days, newToken, h.normalizer.Location()))
}

// applyDelta godoc
// @Summary Apply a stock or expense delta
// @Description Applies one signed purchase/sale/expense/adjustment delta to the given day, creating the day first when missing
// @Tags ledger-days
// @Accept  json
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   delta body dto.ApplyDeltaRequest true "Delta details"
// @Success 200 {object} dto.LedgerDayResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Persistent version conflict"
// @Failure 500 {object} map[string]string "Failed to apply delta"
// @Security BearerAuth
// @Router /companies/{companyID}/ledger-days/deltas [post]
func (h *ledgerHandler) applyDelta(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}

	var req dto.ApplyDeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApplyDelta", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	dayKey, err := h.parseCivilDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	logger = logger.With(slog.String("company_id", companyID), slog.String("day", dayKey.String()), slog.String("kind", req.Kind))
	logger.Info("Received request to apply ledger delta")

	day, err := h.mutation.ApplyDelta(c.Request.Context(), tenantID, companyID, dayKey, req.ToStockDelta())
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error applying delta", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Persistent version conflict applying delta", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": "Ledger day is being updated concurrently, retry"})
		} else {
			logger.Error("Failed to apply delta in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply delta"})
		}
		return
	}

	logger.Info("Delta applied successfully")
	c.JSON(http.StatusOK, dto.ToLedgerDayResponse(*day, h.normalizer.Location()))
}

// fixCarryForwards godoc
// @Summary Backfill missing ledger days
// @Description Walks the given date range in day order and creates every missing ledger day with carried-forward opening stock
// @Tags ledger-days
// @Accept  json
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   range body dto.FixCarryForwardsRequest true "Date range"
// @Success 200 {object} dto.FixCarryForwardsResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to backfill ledger days"
// @Security BearerAuth
// @Router /companies/{companyID}/ledger-days/fix-carry-forwards [post]
func (h *ledgerHandler) fixCarryForwards(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	tenantID, companyID, ok := tenantAndCompany(c)
	if !ok {
		return
	}

	var req dto.FixCarryForwardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for FixCarryForwards", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	from, err := h.parseCivilDate(req.FromDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fromDate, expected YYYY-MM-DD"})
		return
	}
	to, err := h.parseCivilDate(req.ToDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid toDate, expected YYYY-MM-DD"})
		return
	}

	logger = logger.With(slog.String("company_id", companyID), slog.String("from", from.String()), slog.String("to", to.String()))
	logger.Info("Received request to backfill ledger days")

	created, err := h.carryForward.FixMissingCarryForwards(c.Request.Context(), tenantID, companyID, from, to)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error backfilling ledger days", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to backfill ledger days in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to backfill ledger days"})
		}
		return
	}

	logger.Info("Backfill finished", slog.Int("days_created", created))
	c.JSON(http.StatusOK, dto.FixCarryForwardsResponse{DaysCreated: created})
}
