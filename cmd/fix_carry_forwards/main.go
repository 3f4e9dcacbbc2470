package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/platform/config"
	"github.com/StockBookHQ/stock_ledger_app/internal/repositories/database/pgsql"
	"github.com/StockBookHQ/stock_ledger_app/pkg/database"
)

// Maintenance command: walks a date range for one company (or every active
// company) and creates any ledger days that are missing, carrying forward the
// previous closing stock. Safe to re-run; existing days are never touched.
func main() {
	tenantID := flag.String("tenant-id", "", "Tenant ID to backfill (required with -company-id)")
	companyID := flag.String("company-id", "", "Company ID to backfill (optional; default = all active)")
	fromDate := flag.String("from", "", "Range start, YYYY-MM-DD (required)")
	toDate := flag.String("to", "", "Range end, YYYY-MM-DD (required)")
	dryRun := flag.Bool("dry-run", true, "Print the plan without writing")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *fromDate == "" || *toDate == "" {
		logger.Error("-from and -to are required")
		os.Exit(2)
	}
	if *companyID != "" && *tenantID == "" {
		logger.Error("-tenant-id is required when -company-id is given")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	normalizer := domain.NewNormalizer(cfg.LedgerUTCOffset, cfg.LedgerOffsetSeconds)

	from, err := parseCivilDate(*fromDate, normalizer)
	if err != nil {
		logger.Error("Invalid -from date", slog.String("value", *fromDate))
		os.Exit(2)
	}
	to, err := parseCivilDate(*toDate, normalizer)
	if err != nil {
		logger.Error("Invalid -to date", slog.String("value", *toDate))
		os.Exit(2)
	}
	if to.Before(from) {
		logger.Error("-to must not be before -from")
		os.Exit(2)
	}

	ctx := context.Background()
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, true)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()

	repos := pgsql.NewRepositoryProvider(dbPool, normalizer)
	carryForward := services.NewCarryForwardService(repos.LedgerDayRepo, repos.InventoryRepo, normalizer)

	var targets []domain.CompanyRef
	if strings.TrimSpace(*companyID) != "" {
		targets = []domain.CompanyRef{{TenantID: *tenantID, CompanyID: *companyID}}
	} else {
		targets, err = repos.CompanyRepo.ListActiveCompanies(ctx)
		if err != nil {
			logger.Error("Failed to enumerate companies", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("Backfill starting",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("companies", len(targets)),
		slog.Bool("dry_run", *dryRun))

	totalCreated := 0
	failed := 0
	for _, target := range targets {
		targetLogger := logger.With(
			slog.String("tenant_id", target.TenantID),
			slog.String("company_id", target.CompanyID))

		if *dryRun {
			missing, err := countMissingDays(ctx, repos.LedgerDayRepo, target, from, to, normalizer)
			if err != nil {
				targetLogger.Error("Failed to inspect company", slog.String("error", err.Error()))
				failed++
				continue
			}
			targetLogger.Info("dry-run: would create missing ledger days", slog.Int("days", missing))
			totalCreated += missing
			continue
		}

		created, err := carryForward.FixMissingCarryForwards(ctx, target.TenantID, target.CompanyID, from, to)
		if err != nil {
			targetLogger.Error("Backfill failed for company", slog.String("error", err.Error()))
			failed++
			continue
		}
		targetLogger.Info("Backfill finished for company", slog.Int("days_created", created))
		totalCreated += created
	}

	logger.Info("Backfill finished",
		slog.Int("days_created", totalCreated),
		slog.Int("companies_failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}

func parseCivilDate(s string, n domain.Normalizer) (domain.DayKey, error) {
	t, err := time.ParseInLocation("2006-01-02", s, n.Location())
	if err != nil {
		return domain.DayKey{}, err
	}
	return n.Normalize(t), nil
}

// countMissingDays reports how many days in [from, to] have no ledger record,
// without creating anything.
func countMissingDays(ctx context.Context, ledgerRepo portsrepo.LedgerDayRepository, target domain.CompanyRef, from, to domain.DayKey, n domain.Normalizer) (int, error) {
	days, err := ledgerRepo.FindDaysInRange(ctx, target.TenantID, target.CompanyID, from, to)
	if err != nil {
		return 0, err
	}
	span := 0
	for k := from; !k.After(to); k = n.Next(k) {
		span++
	}
	return span - len(days), nil
}
