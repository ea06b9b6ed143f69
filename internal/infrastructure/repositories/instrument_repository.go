package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// InstrumentRepository implements instrument data access for PostgreSQL
type InstrumentRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
	tracer trace.Tracer
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *sqlx.DB, log *logger.Logger) *InstrumentRepository {
	return &InstrumentRepository{
		db:     db,
		logger: log,
		tracer: otel.Tracer("instrument-repository"),
	}
}

func (r *InstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument) error {
	ctx, span := r.tracer.Start(ctx, "instrument_repo.create", trace.WithAttributes(
		attribute.String("instrument_id", instrument.ID),
		attribute.String("ticker", instrument.Ticker),
	))
	defer span.End()

	if instrument.CreatedAt.IsZero() {
		instrument.CreatedAt = time.Now().UTC()
	}

	started := time.Now()
	query := `
		INSERT INTO instruments (id, ticker, name, instrument_type, asset_class, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		instrument.ID,
		instrument.Ticker,
		instrument.Name,
		instrument.Type,
		instrument.AssetClass,
		instrument.Currency,
		instrument.CreatedAt,
	)
	metrics.RecordDatabaseQuery("insert", "instruments", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create instrument")
	}

	r.logger.Infow("instrument registered",
		"instrument_id", instrument.ID, "ticker", instrument.Ticker)
	return nil
}

func (r *InstrumentRepository) GetByID(ctx context.Context, id string) (*entities.Instrument, error) {
	ctx, span := r.tracer.Start(ctx, "instrument_repo.get", trace.WithAttributes(
		attribute.String("instrument_id", id),
	))
	defer span.End()

	started := time.Now()
	var instrument entities.Instrument
	query := `
		SELECT id, ticker, name, instrument_type, asset_class, currency, created_at
		FROM instruments
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &instrument, query, id)
	metrics.RecordDatabaseQuery("select", "instruments", time.Since(started).Seconds())
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("instrument").AddDetail("instrument_id", id)
	}
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load instrument")
	}

	return &instrument, nil
}

func (r *InstrumentRepository) GetByTicker(ctx context.Context, ticker string) (*entities.Instrument, error) {
	ctx, span := r.tracer.Start(ctx, "instrument_repo.get_by_ticker", trace.WithAttributes(
		attribute.String("ticker", ticker),
	))
	defer span.End()

	started := time.Now()
	var instrument entities.Instrument
	query := `
		SELECT id, ticker, name, instrument_type, asset_class, currency, created_at
		FROM instruments
		WHERE ticker = $1
	`
	err := r.db.GetContext(ctx, &instrument, query, ticker)
	metrics.RecordDatabaseQuery("select", "instruments", time.Since(started).Seconds())
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("instrument").AddDetail("ticker", ticker)
	}
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load instrument")
	}

	return &instrument, nil
}
