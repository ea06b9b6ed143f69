package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
)

// MockPortfolioRepository is a mock implementation of PortfolioRepository
type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, id string) (*entities.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) List(ctx context.Context) ([]*entities.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Portfolio), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByIDWithLegs(ctx context.Context, id string) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListPostedWithLegs(ctx context.Context, portfolioID string, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	args := m.Called(ctx, portfolioID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id string, status entities.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockInstrumentRepository is a mock implementation of InstrumentRepository
type MockInstrumentRepository struct {
	mock.Mock
}

func (m *MockInstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

func (m *MockInstrumentRepository) GetByID(ctx context.Context, id string) (*entities.Instrument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

func (m *MockInstrumentRepository) GetByTicker(ctx context.Context, ticker string) (*entities.Instrument, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Instrument), args.Error(1)
}

func testPortfolio() *entities.Portfolio {
	return &entities.Portfolio{
		ID:           "p1",
		Name:         "Growth",
		BaseCurrency: "USD",
		CreatedAt:    time.Now(),
	}
}

func TestCreateTransaction_Success(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	portfolioRepo.On("GetByID", mock.Anything, "p1").Return(testPortfolio(), nil)
	instrumentRepo.On("GetByID", mock.Anything, "AAPL").
		Return(&entities.Instrument{ID: "AAPL", Ticker: "AAPL"}, nil)
	txRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Transaction")).Return(nil)

	legs := []entities.TransactionLeg{
		assetLeg("AAPL", "10", "100", "1000"),
		cashLeg("-1000"),
	}
	tx, err := svc.CreateTransaction(context.Background(), "p1",
		entities.TransactionTypeBuy, time.Now(), "first buy", legs)

	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, entities.TransactionStatusPosted, tx.Status)
	for _, leg := range tx.Legs {
		assert.Equal(t, tx.ID, leg.TransactionID)
		assert.NotEmpty(t, leg.ID)
	}
	txRepo.AssertExpectations(t)
}

func TestCreateTransaction_PortfolioNotFound(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	portfolioRepo.On("GetByID", mock.Anything, "missing").
		Return(nil, errors.NotFound("portfolio"))

	_, err := svc.CreateTransaction(context.Background(), "missing",
		entities.TransactionTypeBuy, time.Now(), "",
		[]entities.TransactionLeg{assetLeg("AAPL", "1", "100", "100"), cashLeg("-100")})

	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodePortfolioNotFound, appErr.Code)
	txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateTransaction_UnbalancedLegsRejected(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	portfolioRepo.On("GetByID", mock.Anything, "p1").Return(testPortfolio(), nil)

	_, err := svc.CreateTransaction(context.Background(), "p1",
		entities.TransactionTypeBuy, time.Now(), "",
		[]entities.TransactionLeg{assetLeg("AAPL", "10", "100", "1000"), cashLeg("-900")})

	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, errors.ErrCodeUnbalancedLegs, appErr.Code)
	txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateTransaction_AutoRegistersUnknownInstrument(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	portfolioRepo.On("GetByID", mock.Anything, "p1").Return(testPortfolio(), nil)
	instrumentRepo.On("GetByID", mock.Anything, "NEWCO").
		Return(nil, errors.NotFound("instrument"))
	instrumentRepo.On("GetByTicker", mock.Anything, "NEWCO").
		Return(nil, errors.NotFound("instrument"))
	instrumentRepo.On("Create", mock.Anything, mock.MatchedBy(func(inst *entities.Instrument) bool {
		return inst.Ticker == "NEWCO" && inst.Currency == "USD"
	})).Return(nil)
	txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	tx, err := svc.CreateTransaction(context.Background(), "p1",
		entities.TransactionTypeBuy, time.Now(), "",
		[]entities.TransactionLeg{assetLeg("NEWCO", "10", "10", "100"), cashLeg("-100")})

	require.NoError(t, err)
	// leg now references the generated instrument id, not the raw ticker
	assert.NotEqual(t, "NEWCO", *tx.Legs[0].InstrumentID)
	instrumentRepo.AssertExpectations(t)
}

func TestCreateTransaction_TickerRewrittenToExistingInstrument(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	portfolioRepo.On("GetByID", mock.Anything, "p1").Return(testPortfolio(), nil)
	instrumentRepo.On("GetByID", mock.Anything, "AAPL").
		Return(nil, errors.NotFound("instrument"))
	instrumentRepo.On("GetByTicker", mock.Anything, "AAPL").
		Return(&entities.Instrument{ID: "inst-42", Ticker: "AAPL"}, nil)
	txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	tx, err := svc.CreateTransaction(context.Background(), "p1",
		entities.TransactionTypeBuy, time.Now(), "",
		[]entities.TransactionLeg{assetLeg("AAPL", "10", "10", "100"), cashLeg("-100")})

	require.NoError(t, err)
	assert.Equal(t, "inst-42", *tx.Legs[0].InstrumentID)
	instrumentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVoidTransaction_OneWay(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	posted := postedTx(entities.TransactionTypeBuy, time.Now(),
		assetLeg("AAPL", "1", "100", "100"), cashLeg("-100"))
	posted.ID = "tx1"

	txRepo.On("GetByIDWithLegs", mock.Anything, "tx1").Return(posted, nil)
	txRepo.On("UpdateStatus", mock.Anything, "tx1", entities.TransactionStatusVoid).Return(nil)

	voided, err := svc.VoidTransaction(context.Background(), "tx1")
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusVoid, voided.Status)
}

func TestVoidTransaction_AlreadyVoid(t *testing.T) {
	portfolioRepo := new(MockPortfolioRepository)
	txRepo := new(MockTransactionRepository)
	instrumentRepo := new(MockInstrumentRepository)
	svc := NewService(portfolioRepo, txRepo, instrumentRepo, logger.NewNop())

	dead := postedTx(entities.TransactionTypeBuy, time.Now(),
		assetLeg("AAPL", "1", "100", "100"), cashLeg("-100"))
	dead.ID = "tx1"
	dead.Status = entities.TransactionStatusVoid

	txRepo.On("GetByIDWithLegs", mock.Anything, "tx1").Return(dead, nil)

	_, err := svc.VoidTransaction(context.Background(), "tx1")
	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, errors.ErrCodeTransactionVoid, appErr.Code)
	txRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
