package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portsrepo "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/bsm/redislock"
)

// carryForwardLockKey serializes the daily batch across replicas.
const carryForwardLockKey = "stock-ledger:carry-forward"

// Scheduler fires once per civil day and carries every known
// (tenant, company) combination forward into the new day. It is constructed
// once at process start; there is no package-level state.
type Scheduler struct {
	BaseService
	carryForward portssvc.CarryForwardService
	companies    portsrepo.CompanyEnumerator
	normalizer   domain.Normalizer
	now          func() time.Time
	concurrency  int
	locker       *redislock.Client
	lockTTL      time.Duration
	logger       *slog.Logger
}

// SchedulerOption is a functional option for configuring the scheduler
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the wall clock, for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSchedulerConcurrency bounds how many combinations are carried forward
// in parallel. Values below 1 fall back to sequential processing.
func WithSchedulerConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n >= 1 {
			s.concurrency = n
		}
	}
}

// WithSchedulerLock makes the daily batch single-flight across replicas via
// a Redis lock. Without it every replica runs the batch, which is still
// correct (creation is idempotent) but wasteful.
func WithSchedulerLock(locker *redislock.Client, ttl time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// NewScheduler creates the daily carry-forward scheduler.
func NewScheduler(carryForward portssvc.CarryForwardService, companies portsrepo.CompanyEnumerator, normalizer domain.Normalizer, logger *slog.Logger, options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		carryForward: carryForward,
		companies:    companies,
		normalizer:   normalizer,
		now:          time.Now,
		concurrency:  1,
		lockTTL:      10 * time.Minute,
		logger:       logger,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Run blocks until ctx is cancelled, firing RunOnce just after each civil-day
// boundary. A couple of seconds of slack keeps the run safely inside the new
// day even with modest clock skew.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.normalizer.Next(s.normalizer.Normalize(s.now()))
		wait := next.Time().Sub(s.now()) + 5*time.Second

		s.logger.Info("Scheduler sleeping until next ledger day",
			slog.String("next_day", next.String()),
			slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Scheduler stopped")
			return
		case <-timer.C:
		}

		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Daily carry-forward batch failed", slog.String("error", err.Error()))
		}
	}
}

// RunOnce carries all known combinations into the current ledger day.
// Per-combination failures are logged and skipped; only a failure to even
// enumerate the combinations (or to arbitrate the leader lock) is returned.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, carryForwardLockKey, s.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Info("Another replica is running the carry-forward batch, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to obtain carry-forward lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release carry-forward lock", slog.String("error", err.Error()))
			}
		}()
	}

	today := s.normalizer.Normalize(s.now())
	batchLogger := s.logger.With(slog.String("day", today.String()))
	ctx = middleware.CtxWithLogger(ctx, batchLogger)

	combos, err := s.companies.ListActiveCompanies(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate companies: %w", err)
	}

	batchLogger.Info("Starting daily carry-forward batch", slog.Int("combinations", len(combos)))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, s.concurrency)

	for _, combo := range combos {
		wg.Add(1)
		sem <- struct{}{}
		go func(ref domain.CompanyRef) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.carryForward.EnsureDay(ctx, ref.TenantID, ref.CompanyID, today); err != nil {
				// One combination failing must never abort the batch.
				batchLogger.Error("Carry-forward failed for combination",
					slog.String("tenant_id", ref.TenantID),
					slog.String("company_id", ref.CompanyID),
					slog.String("error", err.Error()))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(combo)
	}
	wg.Wait()

	batchLogger.Info("Daily carry-forward batch finished",
		slog.Int("combinations", len(combos)),
		slog.Int("failed", failed))
	return nil
}
