package repositories

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// TransactionRepository implements ledger data access for PostgreSQL.
// A transaction and its legs are written atomically; listings always
// hydrate legs so the accumulator never sees a partial transaction.
type TransactionRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
	tracer trace.Tracer
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB, log *logger.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: log,
		tracer: otel.Tracer("transaction-repository"),
	}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *entities.Transaction) error {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.create", trace.WithAttributes(
		attribute.String("transaction_id", transaction.ID),
		attribute.String("portfolio_id", transaction.PortfolioID),
		attribute.String("type", string(transaction.Type)),
	))
	defer span.End()

	started := time.Now()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (id, portfolio_id, transaction_type, status, occurred_at, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		transaction.ID,
		transaction.PortfolioID,
		transaction.Type,
		transaction.Status,
		transaction.OccurredAt,
		transaction.Note,
		transaction.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to insert transaction")
	}

	legQuery := `
		INSERT INTO transaction_legs
			(id, transaction_id, leg_type, instrument_id, account, currency, quantity, price, amount, fx_rate_to_base)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, leg := range transaction.Legs {
		_, err = tx.ExecContext(ctx, legQuery,
			leg.ID,
			leg.TransactionID,
			leg.LegType,
			leg.InstrumentID,
			leg.Account,
			leg.Currency,
			leg.Quantity,
			leg.Price,
			leg.Amount,
			leg.FxRateToBase,
		)
		if err != nil {
			span.RecordError(err)
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to insert transaction leg")
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to commit transaction")
	}
	metrics.RecordDatabaseQuery("insert", "transactions", time.Since(started).Seconds())

	r.logger.Infow("transaction persisted",
		"transaction_id", transaction.ID,
		"portfolio_id", transaction.PortfolioID,
		"legs", len(transaction.Legs))
	return nil
}

func (r *TransactionRepository) GetByIDWithLegs(ctx context.Context, id string) (*entities.Transaction, error) {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.get", trace.WithAttributes(
		attribute.String("transaction_id", id),
	))
	defer span.End()

	started := time.Now()
	var transaction entities.Transaction
	query := `
		SELECT id, portfolio_id, transaction_type, status, occurred_at, note, created_at
		FROM transactions
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &transaction, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("transaction").AddDetail("transaction_id", id)
	}
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load transaction")
	}

	if err := r.attachLegs(ctx, []*entities.Transaction{&transaction}); err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.RecordDatabaseQuery("select", "transactions", time.Since(started).Seconds())

	return &transaction, nil
}

func (r *TransactionRepository) ListPostedWithLegs(ctx context.Context, portfolioID string, filter repositories.TransactionFilter) ([]*entities.Transaction, error) {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.list", trace.WithAttributes(
		attribute.String("portfolio_id", portfolioID),
	))
	defer span.End()

	started := time.Now()
	query := `
		SELECT id, portfolio_id, transaction_type, status, occurred_at, note, created_at
		FROM transactions
		WHERE portfolio_id = $1 AND status <> 'VOID'
	`
	args := []interface{}{portfolioID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND transaction_type = $2`
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND occurred_at <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY occurred_at ASC, created_at ASC`

	transactions := []*entities.Transaction{}
	err := r.db.SelectContext(ctx, &transactions, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list transactions")
	}

	if err := r.attachLegs(ctx, transactions); err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.RecordDatabaseQuery("select", "transactions", time.Since(started).Seconds())

	return transactions, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, status entities.TransactionStatus) error {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.update_status", trace.WithAttributes(
		attribute.String("transaction_id", id),
		attribute.String("status", string(status)),
	))
	defer span.End()

	started := time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $1 WHERE id = $2`, status, id)
	metrics.RecordDatabaseQuery("update", "transactions", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update transaction status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to read update result")
	}
	if affected == 0 {
		return errors.NotFound("transaction").AddDetail("transaction_id", id)
	}

	return nil
}

// attachLegs hydrates legs for the given transactions with one query.
func (r *TransactionRepository) attachLegs(ctx context.Context, transactions []*entities.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	ids := make([]string, 0, len(transactions))
	byID := make(map[string]*entities.Transaction, len(transactions))
	for _, tx := range transactions {
		ids = append(ids, tx.ID)
		byID[tx.ID] = tx
	}

	query, args, err := sqlx.In(`
		SELECT id, transaction_id, leg_type, instrument_id, account, currency, quantity, price, amount, fx_rate_to_base
		FROM transaction_legs
		WHERE transaction_id IN (?)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build legs query")
	}

	legs := []entities.TransactionLeg{}
	if err := r.db.SelectContext(ctx, &legs, r.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to load transaction legs")
	}

	for _, leg := range legs {
		if tx, ok := byID[leg.TransactionID]; ok {
			tx.Legs = append(tx.Legs, leg)
		}
	}
	return nil
}
