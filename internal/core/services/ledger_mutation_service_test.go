package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock CarryForwardService ---
type MockCarryForwardService struct {
	mock.Mock
}

func (m *MockCarryForwardService) EnsureDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error) {
	args := m.Called(ctx, tenantID, companyID, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerDay), args.Error(1)
}

func (m *MockCarryForwardService) FixMissingCarryForwards(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (int, error) {
	args := m.Called(ctx, tenantID, companyID, from, to)
	return args.Int(0), args.Error(1)
}

// --- Test Suite ---
type LedgerMutationServiceTestSuite struct {
	suite.Suite
	mockLedgerRepo   *MockLedgerDayRepository
	mockCarryForward *MockCarryForwardService
	normalizer       domain.Normalizer
	service          portssvc.LedgerMutationService

	tenantID  string
	companyID string
	today     domain.DayKey
}

func (suite *LedgerMutationServiceTestSuite) SetupTest() {
	suite.mockLedgerRepo = new(MockLedgerDayRepository)
	suite.mockCarryForward = new(MockCarryForwardService)
	suite.normalizer = domain.NewNormalizer("+05:30", 5*3600+30*60)
	suite.service = services.NewLedgerMutationService(
		suite.mockLedgerRepo,
		suite.mockCarryForward,
		suite.normalizer,
		services.WithMutationClock(func() time.Time {
			return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
		}),
	)

	suite.tenantID = "tenant-1"
	suite.companyID = "company-1"
	suite.today = suite.normalizer.NormalizeDate(2024, time.June, 1)
}

// baseDay builds a day with known figures so delta effects are observable.
func (suite *LedgerMutationServiceTestSuite) baseDay() *domain.LedgerDay {
	return &domain.LedgerDay{
		TenantID:       suite.tenantID,
		CompanyID:      suite.companyID,
		DayKey:         suite.today,
		OpeningStock:   domain.StockFigures{Quantity: 100, Amount: decimal.NewFromInt(5000)},
		ClosingStock:   domain.StockFigures{Quantity: 110, Amount: decimal.NewFromInt(5500)},
		Purchases:      domain.StockFigures{Quantity: 10, Amount: decimal.NewFromInt(500)},
		Sales:          domain.ZeroStock(),
		ExpenseSummary: map[string]decimal.Decimal{},
		TotalExpenses:  decimal.Zero,
		Version:        3,
	}
}

func (suite *LedgerMutationServiceTestSuite) expectEnsure(day *domain.LedgerDay) {
	suite.mockCarryForward.On("EnsureDay", mock.Anything, suite.tenantID, suite.companyID, suite.today).Return(day, nil).Once()
}

// --- Test Cases ---

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_SaleDeltaConservation() {
	ctx := context.Background()
	day := suite.baseDay()
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaSale, Quantity: -3, Amount: decimal.NewFromInt(-150)}

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return true
	})).Return(day, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.Equal(int64(-3), savedDay.Sales.Quantity)
	suite.True(savedDay.Sales.Amount.Equal(decimal.NewFromInt(-150)))
	suite.Equal(int64(107), savedDay.ClosingStock.Quantity)
	suite.True(savedDay.ClosingStock.Amount.Equal(decimal.NewFromInt(5350)))
	// Opening stock must be untouched by trading activity.
	suite.Equal(int64(100), savedDay.OpeningStock.Quantity)
	suite.True(savedDay.OpeningStock.Amount.Equal(decimal.NewFromInt(5000)))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_PurchaseDelta() {
	ctx := context.Background()
	day := suite.baseDay()
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaPurchase, Quantity: 5, Amount: decimal.NewFromInt(250)}

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return true
	})).Return(day, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.Equal(int64(15), savedDay.Purchases.Quantity)
	suite.True(savedDay.Purchases.Amount.Equal(decimal.NewFromInt(750)))
	suite.Equal(int64(115), savedDay.ClosingStock.Quantity)
	suite.Equal(int64(100), savedDay.OpeningStock.Quantity)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_StockAdjustmentShiftsBothSides() {
	ctx := context.Background()
	day := suite.baseDay()
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaStockAdjustment, Quantity: -20, Amount: decimal.NewFromInt(-1000)}

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return true
	})).Return(day, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.Equal(int64(80), savedDay.OpeningStock.Quantity)
	suite.Equal(int64(90), savedDay.ClosingStock.Quantity)
	suite.True(savedDay.OpeningStock.Amount.Equal(decimal.NewFromInt(4000)))
	suite.True(savedDay.ClosingStock.Amount.Equal(decimal.NewFromInt(4500)))
	// Trading accumulators are not activity for a baseline correction.
	suite.Equal(int64(10), savedDay.Purchases.Quantity)
	suite.Equal(int64(0), savedDay.Sales.Quantity)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_ZeroAdjustmentIsNoOp() {
	ctx := context.Background()
	day := suite.baseDay()
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaStockAdjustment}

	result, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.Equal(day, result)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "SaveDay", mock.Anything, mock.Anything)
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_ExpenseAccumulatesPerHead() {
	ctx := context.Background()
	day := suite.baseDay()
	day.ExpenseSummary = map[string]decimal.Decimal{"rent": decimal.NewFromInt(100)}
	day.TotalExpenses = decimal.NewFromInt(100)
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaExpense, Amount: decimal.NewFromInt(40), ExpenseHeadID: "rent"}

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return true
	})).Return(day, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.True(savedDay.TotalExpenses.Equal(decimal.NewFromInt(140)))
	suite.True(savedDay.ExpenseSummary["rent"].Equal(decimal.NewFromInt(140)))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_ExpenseHeadPrunedAtZero() {
	ctx := context.Background()
	day := suite.baseDay()
	day.ExpenseSummary = map[string]decimal.Decimal{"rent": decimal.NewFromInt(100), "fuel": decimal.NewFromInt(30)}
	day.TotalExpenses = decimal.NewFromInt(130)
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaExpense, Amount: decimal.NewFromInt(-100), ExpenseHeadID: "rent"}

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return true
	})).Return(day, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.NotContains(savedDay.ExpenseSummary, "rent", "a head reduced to zero is removed outright")
	suite.Contains(savedDay.ExpenseSummary, "fuel")
	// TotalExpenses tracks the raw delta stream independently of the map.
	suite.True(savedDay.TotalExpenses.Equal(decimal.NewFromInt(30)))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_NegativeExpenseAgainstAbsentHeadNotInserted() {
	ctx := context.Background()
	day := suite.baseDay()
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaExpense, Amount: decimal.NewFromInt(-25), ExpenseHeadID: "rent"}

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return true
	})).Return(day, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	suite.NotContains(savedDay.ExpenseSummary, "rent", "nothing negative is ever stored in the summary")
	suite.True(savedDay.TotalExpenses.Equal(decimal.NewFromInt(-25)))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_ConflictRetriesOnFreshCopy() {
	ctx := context.Background()
	staleDay := suite.baseDay()
	suite.expectEnsure(staleDay)

	// A concurrent writer advanced the record between our read and write.
	freshDay := suite.baseDay()
	freshDay.ClosingStock = domain.StockFigures{Quantity: 120, Amount: decimal.NewFromInt(6000)}
	freshDay.Version = 4

	delta := domain.StockDelta{Kind: domain.DeltaPurchase, Quantity: 5, Amount: decimal.NewFromInt(250)}

	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		return d.Version == int64(3)
	})).Return(nil, apperrors.ErrConflict).Once()
	suite.mockLedgerRepo.On("FindDay", mock.Anything, suite.tenantID, suite.companyID, suite.today).Return(freshDay, nil).Once()

	var savedDay domain.LedgerDay
	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.MatchedBy(func(d domain.LedgerDay) bool {
		savedDay = d
		return d.Version == int64(4)
	})).Return(freshDay, nil).Once()

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().NoError(err)
	// The delta was re-applied on the fresh copy, not the stale one.
	suite.Equal(int64(125), savedDay.ClosingStock.Quantity)
	suite.True(savedDay.ClosingStock.Amount.Equal(decimal.NewFromInt(6250)))
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_GivesUpAfterRepeatedConflicts() {
	ctx := context.Background()
	day := suite.baseDay()
	suite.expectEnsure(day)

	delta := domain.StockDelta{Kind: domain.DeltaPurchase, Quantity: 1, Amount: decimal.NewFromInt(10)}

	suite.mockLedgerRepo.On("SaveDay", mock.Anything, mock.AnythingOfType("domain.LedgerDay")).Return(nil, apperrors.ErrConflict).Times(5)
	suite.mockLedgerRepo.On("FindDay", mock.Anything, suite.tenantID, suite.companyID, suite.today).Return(suite.baseDay(), nil).Times(4)

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerMutationServiceTestSuite) TestApplyDelta_RejectsInvalidDelta() {
	ctx := context.Background()

	delta := domain.StockDelta{Kind: domain.DeltaExpense, Amount: decimal.NewFromInt(10)} // no head

	_, err := suite.service.ApplyDelta(ctx, suite.tenantID, suite.companyID, suite.today, delta)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockCarryForward.AssertNotCalled(suite.T(), "EnsureDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Run Suite ---
func TestLedgerMutationService(t *testing.T) {
	suite.Run(t, new(LedgerMutationServiceTestSuite))
}
