package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// Service manages the transaction ledger: double-entry validation,
// instrument auto-registration, posting and the one-way void lifecycle.
type Service struct {
	portfolioRepo  repositories.PortfolioRepository
	txRepo         repositories.TransactionRepository
	instrumentRepo repositories.InstrumentRepository
	logger         *logger.Logger
}

// NewService creates a new ledger service
func NewService(
	portfolioRepo repositories.PortfolioRepository,
	txRepo repositories.TransactionRepository,
	instrumentRepo repositories.InstrumentRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		portfolioRepo:  portfolioRepo,
		txRepo:         txRepo,
		instrumentRepo: instrumentRepo,
		logger:         log,
	}
}

// CreateTransaction validates and posts a new transaction. Unknown
// instrument ids referenced by the legs are auto-registered before the
// transaction is stored.
func (s *Service) CreateTransaction(
	ctx context.Context,
	portfolioID string,
	txType entities.TransactionType,
	occurredAt time.Time,
	note string,
	legs []entities.TransactionLeg,
) (*entities.Transaction, error) {
	if !txType.Valid() {
		return nil, errors.InvalidInput("unknown transaction type: " + string(txType))
	}

	portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	if err := ValidateLegs(txType, legs); err != nil {
		return nil, err
	}

	if err := s.ensureInstrumentsExist(ctx, legs, portfolio.BaseCurrency); err != nil {
		return nil, err
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	tx := &entities.Transaction{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Type:        txType,
		Status:      entities.TransactionStatusPosted,
		OccurredAt:  occurredAt,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
		Legs:        legs,
	}
	for i := range tx.Legs {
		tx.Legs[i].ID = uuid.New().String()
		tx.Legs[i].TransactionID = tx.ID
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	metrics.RecordTransaction(string(txType), string(tx.Status))
	s.logger.Infow("created transaction",
		"transaction_id", tx.ID,
		"portfolio_id", portfolioID,
		"type", txType,
		"legs", len(legs))

	return tx, nil
}

// GetTransactions lists non-void transactions with their legs; optional
// type and date filters are applied at the repository.
func (s *Service) GetTransactions(
	ctx context.Context,
	portfolioID string,
	filter repositories.TransactionFilter,
) ([]*entities.Transaction, error) {
	if _, err := s.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.txRepo.ListPostedWithLegs(ctx, portfolioID, filter)
}

// GetTransaction fetches a single transaction with its legs.
func (s *Service) GetTransaction(ctx context.Context, transactionID string) (*entities.Transaction, error) {
	return s.txRepo.GetByIDWithLegs(ctx, transactionID)
}

// VoidTransaction transitions a transaction to VOID. The transition is
// terminal; voiding an already-void transaction is an error.
func (s *Service) VoidTransaction(ctx context.Context, transactionID string) (*entities.Transaction, error) {
	tx, err := s.txRepo.GetByIDWithLegs(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if tx.Status == entities.TransactionStatusVoid {
		return nil, errors.New(errors.ErrCodeTransactionVoid, "transaction is already void")
	}

	if err := s.txRepo.UpdateStatus(ctx, transactionID, entities.TransactionStatusVoid); err != nil {
		return nil, err
	}
	tx.Status = entities.TransactionStatusVoid

	metrics.RecordTransaction(string(tx.Type), string(entities.TransactionStatusVoid))
	s.logger.Infow("voided transaction", "transaction_id", transactionID, "portfolio_id", tx.PortfolioID)

	return tx, nil
}

// ensureInstrumentsExist auto-registers instruments referenced by legs.
// A leg naming an existing ticker is rewritten to that instrument's id.
func (s *Service) ensureInstrumentsExist(ctx context.Context, legs []entities.TransactionLeg, baseCurrency string) error {
	for i := range legs {
		leg := &legs[i]
		if leg.InstrumentID == nil || *leg.InstrumentID == "" {
			continue
		}

		if _, err := s.instrumentRepo.GetByID(ctx, *leg.InstrumentID); err == nil {
			continue
		} else if appErr, ok := errors.As(err); !ok || appErr.Code != errors.ErrCodeInstrumentNotFound {
			return err
		}

		if byTicker, err := s.instrumentRepo.GetByTicker(ctx, *leg.InstrumentID); err == nil {
			leg.InstrumentID = &byTicker.ID
			continue
		} else if appErr, ok := errors.As(err); !ok || appErr.Code != errors.ErrCodeInstrumentNotFound {
			return err
		}

		currency := leg.Currency
		if currency == "" {
			currency = baseCurrency
		}
		instrument := &entities.Instrument{
			ID:         uuid.New().String(),
			Ticker:     *leg.InstrumentID,
			Name:       *leg.InstrumentID,
			Type:       entities.InstrumentTypeStock,
			AssetClass: "EQUITY",
			Currency:   currency,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.instrumentRepo.Create(ctx, instrument); err != nil {
			return err
		}
		s.logger.Infow("auto-registered instrument", "ticker", *leg.InstrumentID, "instrument_id", instrument.ID)
		leg.InstrumentID = &instrument.ID
	}
	return nil
}
