package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/StockBookHQ/stock_ledger_app/internal/apperrors"
	"github.com/StockBookHQ/stock_ledger_app/internal/core/domain"
	portssvc "github.com/StockBookHQ/stock_ledger_app/internal/core/ports/services"
	"github.com/StockBookHQ/stock_ledger_app/internal/dto"
	"github.com/StockBookHQ/stock_ledger_app/internal/handlers"
	"github.com/StockBookHQ/stock_ledger_app/internal/middleware"
	"github.com/StockBookHQ/stock_ledger_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
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

var _ portssvc.CarryForwardService = (*MockCarryForwardService)(nil)

// --- Mock LedgerMutationService ---
type MockLedgerMutationService struct {
	mock.Mock
}

func (m *MockLedgerMutationService) ApplyDelta(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey, delta domain.StockDelta) (*domain.LedgerDay, error) {
	args := m.Called(ctx, tenantID, companyID, dayKey, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerDay), args.Error(1)
}

var _ portssvc.LedgerMutationService = (*MockLedgerMutationService)(nil)

// --- Mock LedgerReaderService ---
type MockLedgerReaderService struct {
	mock.Mock
}

func (m *MockLedgerReaderService) GetDay(ctx context.Context, tenantID, companyID string, dayKey domain.DayKey) (*domain.LedgerDay, error) {
	args := m.Called(ctx, tenantID, companyID, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerDay), args.Error(1)
}
func (m *MockLedgerReaderService) ListDays(ctx context.Context, tenantID, companyID string, limit int, nextToken *string) ([]domain.LedgerDay, *string, error) {
	args := m.Called(ctx, tenantID, companyID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return args.Get(0).([]domain.LedgerDay), token, args.Error(2)
}

var _ portssvc.LedgerReaderService = (*MockLedgerReaderService)(nil)

// --- Mock ReportingService ---
type MockReportingService struct {
	mock.Mock
}

func (m *MockReportingService) Summarize(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (*domain.LedgerRangeSummary, error) {
	args := m.Called(ctx, tenantID, companyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerRangeSummary), args.Error(1)
}
func (m *MockReportingService) ProfitAndLoss(ctx context.Context, tenantID, companyID string, from, to domain.DayKey) (*domain.ProfitAndLossReport, error) {
	args := m.Called(ctx, tenantID, companyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProfitAndLossReport), args.Error(1)
}

var _ portssvc.ReportingService = (*MockReportingService)(nil)

// --- Test Suite ---
type LedgerHandlerTestSuite struct {
	suite.Suite
	router           *gin.Engine
	mockCarryForward *MockCarryForwardService
	mockMutation     *MockLedgerMutationService
	mockReader       *MockLedgerReaderService
	mockReporting    *MockReportingService
	normalizer       domain.Normalizer
	jwtSecret        string

	tenantID  string
	companyID string
	userID    string
}

// generateTestToken creates a dummy JWT carrying the tenant claim.
func (suite *LedgerHandlerTestSuite) generateTestToken(userID, tenantID string) string {
	claims := middleware.LedgerClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "stock-ledger-test",
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *LedgerHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.normalizer = domain.NewNormalizer("+05:30", 5*3600+30*60)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.router.Use(middleware.StructuredLoggingMiddleware(logger))

	suite.mockCarryForward = new(MockCarryForwardService)
	suite.mockMutation = new(MockLedgerMutationService)
	suite.mockReader = new(MockLedgerReaderService)
	suite.mockReporting = new(MockReportingService)

	cfg := &config.Config{
		JWTSecret:          suite.jwtSecret,
		RateLimitFormatted: "1000-M",
	}
	container := &portssvc.ServiceContainer{
		CarryForward: suite.mockCarryForward,
		Mutation:     suite.mockMutation,
		Reader:       suite.mockReader,
		Reporting:    suite.mockReporting,
	}
	handlers.RegisterRoutes(suite.router, cfg, container, suite.normalizer)

	suite.tenantID = "tenant-1"
	suite.companyID = "company-1"
	suite.userID = "user-1"
}

func (suite *LedgerHandlerTestSuite) doJSON(method, url string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.userID, suite.tenantID))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *LedgerHandlerTestSuite) sampleDay(dayKey domain.DayKey) *domain.LedgerDay {
	return &domain.LedgerDay{
		TenantID:       suite.tenantID,
		CompanyID:      suite.companyID,
		DayKey:         dayKey,
		OpeningStock:   domain.StockFigures{Quantity: 10, Amount: decimal.NewFromInt(500)},
		ClosingStock:   domain.StockFigures{Quantity: 12, Amount: decimal.NewFromInt(600)},
		ExpenseSummary: map[string]decimal.Decimal{},
		Version:        1,
	}
}

// --- Test Cases ---

func (suite *LedgerHandlerTestSuite) TestEnsureDay_Success() {
	dayKey := suite.normalizer.NormalizeDate(2024, time.June, 1)
	suite.mockCarryForward.On("EnsureDay", mock.Anything, suite.tenantID, suite.companyID, dayKey).
		Return(suite.sampleDay(dayKey), nil).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days", suite.companyID)
	w := suite.doJSON(http.MethodPost, url, dto.EnsureDayRequest{Date: "2024-06-01"})

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.LedgerDayResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("2024-06-01", resp.Date)
	suite.Equal(int64(10), resp.OpeningStock.Quantity)
	suite.mockCarryForward.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestEnsureDay_RejectsBadDate() {
	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days", suite.companyID)
	w := suite.doJSON(http.MethodPost, url, dto.EnsureDayRequest{Date: "not-a-date"})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockCarryForward.AssertNotCalled(suite.T(), "EnsureDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerHandlerTestSuite) TestEnsureDay_RequiresToken() {
	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days", suite.companyID)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(`{"date":"2024-06-01"}`)))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *LedgerHandlerTestSuite) TestGetDay_NotFound() {
	dayKey := suite.normalizer.NormalizeDate(2024, time.June, 1)
	suite.mockReader.On("GetDay", mock.Anything, suite.tenantID, suite.companyID, dayKey).
		Return(nil, apperrors.ErrNotFound).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days/2024-06-01", suite.companyID)
	w := suite.doJSON(http.MethodGet, url, nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.mockReader.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestApplyDelta_Success() {
	dayKey := suite.normalizer.NormalizeDate(2024, time.June, 1)
	expectedDelta := domain.StockDelta{
		Kind:     domain.DeltaSale,
		Quantity: -3,
		Amount:   decimal.NewFromInt(-150),
	}
	suite.mockMutation.On("ApplyDelta", mock.Anything, suite.tenantID, suite.companyID, dayKey, mock.MatchedBy(func(d domain.StockDelta) bool {
		return d.Kind == expectedDelta.Kind && d.Quantity == expectedDelta.Quantity && d.Amount.Equal(expectedDelta.Amount)
	})).Return(suite.sampleDay(dayKey), nil).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days/deltas", suite.companyID)
	w := suite.doJSON(http.MethodPost, url, dto.ApplyDeltaRequest{
		Date:     "2024-06-01",
		Kind:     "SALE",
		Quantity: -3,
		Amount:   decimal.NewFromInt(-150),
	})

	suite.Equal(http.StatusOK, w.Code)
	suite.mockMutation.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestApplyDelta_ValidationErrorReturns400() {
	dayKey := suite.normalizer.NormalizeDate(2024, time.June, 1)
	suite.mockMutation.On("ApplyDelta", mock.Anything, suite.tenantID, suite.companyID, dayKey, mock.AnythingOfType("domain.StockDelta")).
		Return(nil, fmt.Errorf("%w: expense delta requires an expense head", apperrors.ErrValidation)).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days/deltas", suite.companyID)
	w := suite.doJSON(http.MethodPost, url, dto.ApplyDeltaRequest{
		Date:   "2024-06-01",
		Kind:   "EXPENSE",
		Amount: decimal.NewFromInt(40),
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockMutation.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestApplyDelta_PersistentConflictReturns409() {
	dayKey := suite.normalizer.NormalizeDate(2024, time.June, 1)
	suite.mockMutation.On("ApplyDelta", mock.Anything, suite.tenantID, suite.companyID, dayKey, mock.AnythingOfType("domain.StockDelta")).
		Return(nil, fmt.Errorf("ledger day kept changing under us: %w", apperrors.ErrConflict)).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days/deltas", suite.companyID)
	w := suite.doJSON(http.MethodPost, url, dto.ApplyDeltaRequest{
		Date:     "2024-06-01",
		Kind:     "PURCHASE",
		Quantity: 1,
		Amount:   decimal.NewFromInt(10),
	})

	suite.Equal(http.StatusConflict, w.Code)
	suite.mockMutation.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestListDays_Success() {
	dayKey := suite.normalizer.NormalizeDate(2024, time.June, 1)
	nextToken := "next-page"
	suite.mockReader.On("ListDays", mock.Anything, suite.tenantID, suite.companyID, 20, (*string)(nil)).
		Return([]domain.LedgerDay{*suite.sampleDay(dayKey)}, &nextToken, nil).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days", suite.companyID)
	w := suite.doJSON(http.MethodGet, url, nil)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.ListLedgerDaysResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Days, 1)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal(nextToken, *resp.NextToken)
	suite.mockReader.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestFixCarryForwards_Success() {
	from := suite.normalizer.NormalizeDate(2024, time.May, 1)
	to := suite.normalizer.NormalizeDate(2024, time.May, 31)
	suite.mockCarryForward.On("FixMissingCarryForwards", mock.Anything, suite.tenantID, suite.companyID, from, to).
		Return(7, nil).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/ledger-days/fix-carry-forwards", suite.companyID)
	w := suite.doJSON(http.MethodPost, url, dto.FixCarryForwardsRequest{FromDate: "2024-05-01", ToDate: "2024-05-31"})

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.FixCarryForwardsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(7, resp.DaysCreated)
	suite.mockCarryForward.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestGetSummary_Success() {
	from := suite.normalizer.NormalizeDate(2024, time.June, 1)
	to := suite.normalizer.NormalizeDate(2024, time.June, 30)
	summary := &domain.LedgerRangeSummary{
		From:              from,
		To:                to,
		DayCount:          30,
		Opening:           domain.ZeroStock(),
		Closing:           domain.ZeroStock(),
		Purchases:         domain.ZeroStock(),
		Sales:             domain.ZeroStock(),
		OpeningStockValue: decimal.NewFromInt(100),
		ClosingStockValue: decimal.NewFromInt(95),
	}
	suite.mockReporting.On("Summarize", mock.Anything, suite.tenantID, suite.companyID, from, to).
		Return(summary, nil).Once()

	url := fmt.Sprintf("/api/v1/companies/%s/reports/summary?fromDate=2024-06-01&toDate=2024-06-30", suite.companyID)
	w := suite.doJSON(http.MethodGet, url, nil)

	suite.Equal(http.StatusOK, w.Code)

	var resp dto.LedgerRangeSummaryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(30, resp.DayCount)
	suite.True(resp.OpeningStockValue.Equal(decimal.NewFromInt(100)))
	suite.True(resp.ClosingStockValue.Equal(decimal.NewFromInt(95)))
	suite.mockReporting.AssertExpectations(suite.T())
}

func (suite *LedgerHandlerTestSuite) TestGetSummary_RejectsMissingDates() {
	url := fmt.Sprintf("/api/v1/companies/%s/reports/summary", suite.companyID)
	w := suite.doJSON(http.MethodGet, url, nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockReporting.AssertNotCalled(suite.T(), "Summarize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Run Test Suite ---
func TestLedgerHandler(t *testing.T) {
	suite.Run(t, new(LedgerHandlerTestSuite))
}
