package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock CompanyEnumerator ---
type MockCompanyEnumerator struct {
	mock.Mock
}

func (m *MockCompanyEnumerator) ListActiveCompanies(ctx context.Context) ([]domain.CompanyRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CompanyRef), args.Error(1)
}

// --- Test Suite ---
type SchedulerTestSuite struct {
	suite.Suite
	mockCarryForward *MockCarryForwardService
	mockCompanies    *MockCompanyEnumerator
	normalizer       domain.Normalizer
	scheduler        *services.Scheduler

	fixedNow time.Time
	today    domain.DayKey
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.mockCarryForward = new(MockCarryForwardService)
	suite.mockCompanies = new(MockCompanyEnumerator)
	suite.normalizer = domain.NewNormalizer("+05:30", 5*3600+30*60)
	suite.fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	suite.today = suite.normalizer.Normalize(suite.fixedNow)

	suite.scheduler = services.NewScheduler(
		suite.mockCarryForward,
		suite.mockCompanies,
		suite.normalizer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		services.WithSchedulerClock(func() time.Time { return suite.fixedNow }),
		services.WithSchedulerConcurrency(2),
	)
}

// --- Test Cases ---

func (suite *SchedulerTestSuite) TestRunOnce_CarriesEveryCombinationForwardToday() {
	combos := []domain.CompanyRef{
		{TenantID: "t1", CompanyID: "c1"},
		{TenantID: "t1", CompanyID: "c2"},
		{TenantID: "t2", CompanyID: "c9"},
	}
	suite.mockCompanies.On("ListActiveCompanies", mock.Anything).Return(combos, nil).Once()
	for _, combo := range combos {
		suite.mockCarryForward.On("EnsureDay", mock.Anything, combo.TenantID, combo.CompanyID, suite.today).
			Return(&domain.LedgerDay{}, nil).Once()
	}

	err := suite.scheduler.RunOnce(context.Background())

	suite.Require().NoError(err)
	suite.mockCarryForward.AssertExpectations(suite.T())
	suite.mockCompanies.AssertExpectations(suite.T())
}

func (suite *SchedulerTestSuite) TestRunOnce_OneFailureDoesNotAbortTheBatch() {
	combos := []domain.CompanyRef{
		{TenantID: "t1", CompanyID: "bad"},
		{TenantID: "t1", CompanyID: "good"},
	}
	suite.mockCompanies.On("ListActiveCompanies", mock.Anything).Return(combos, nil).Once()
	suite.mockCarryForward.On("EnsureDay", mock.Anything, "t1", "bad", suite.today).
		Return(nil, assert.AnError).Once()
	suite.mockCarryForward.On("EnsureDay", mock.Anything, "t1", "good", suite.today).
		Return(&domain.LedgerDay{}, nil).Once()

	err := suite.scheduler.RunOnce(context.Background())

	suite.Require().NoError(err, "per-combination failures are isolated, not returned")
	suite.mockCarryForward.AssertExpectations(suite.T())
}

func (suite *SchedulerTestSuite) TestRunOnce_EnumerationFailureIsReturned() {
	suite.mockCompanies.On("ListActiveCompanies", mock.Anything).Return(nil, assert.AnError).Once()

	err := suite.scheduler.RunOnce(context.Background())

	suite.Require().Error(err)
	suite.ErrorIs(err, assert.AnError)
	suite.mockCarryForward.AssertNotCalled(suite.T(), "EnsureDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SchedulerTestSuite) TestRunOnce_TargetsTheCurrentCivilDay() {
	// 20:00 UTC on June 1 is already June 2 in +05:30; the batch must target
	// the civil day, not the UTC day.
	suite.fixedNow = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	expectedDay := suite.normalizer.NormalizeDate(2024, time.June, 2)

	suite.mockCompanies.On("ListActiveCompanies", mock.Anything).
		Return([]domain.CompanyRef{{TenantID: "t1", CompanyID: "c1"}}, nil).Once()
	suite.mockCarryForward.On("EnsureDay", mock.Anything, "t1", "c1", expectedDay).
		Return(&domain.LedgerDay{}, nil).Once()

	err := suite.scheduler.RunOnce(context.Background())

	suite.Require().NoError(err)
	suite.mockCarryForward.AssertExpectations(suite.T())
}

func (suite *SchedulerTestSuite) TestRun_StopsWhenContextCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		suite.scheduler.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		suite.Fail("scheduler did not stop after context cancellation")
	}
}

// --- Run Suite ---
func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}
