package repositories

import (
	"context"
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

// TargetRepository implements target allocation data access for
// PostgreSQL. A portfolio's target set is replaced atomically.
type TargetRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
	tracer trace.Tracer
}

// NewTargetRepository creates a new target repository
func NewTargetRepository(db *sqlx.DB, log *logger.Logger) *TargetRepository {
	return &TargetRepository{
		db:     db,
		logger: log,
		tracer: otel.Tracer("target-repository"),
	}
}

func (r *TargetRepository) ReplaceForPortfolio(ctx context.Context, portfolioID string, targets []entities.TargetAllocation) error {
	ctx, span := r.tracer.Start(ctx, "target_repo.replace", trace.WithAttributes(
		attribute.String("portfolio_id", portfolioID),
		attribute.Int("targets", len(targets)),
	))
	defer span.End()

	started := time.Now()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM portfolio_targets WHERE portfolio_id = $1`, portfolioID); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to clear targets")
	}

	query := `
		INSERT INTO portfolio_targets
			(id, portfolio_id, instrument_id, asset_class, target_weight, min_weight, max_weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, target := range targets {
		if _, err := tx.ExecContext(ctx, query,
			target.ID,
			target.PortfolioID,
			target.InstrumentID,
			target.AssetClass,
			target.TargetWeight,
			target.MinWeight,
			target.MaxWeight,
		); err != nil {
			span.RecordError(err)
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to insert target")
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to commit targets")
	}
	metrics.RecordDatabaseQuery("replace", "portfolio_targets", time.Since(started).Seconds())

	r.logger.Infow("target allocations replaced",
		"portfolio_id", portfolioID, "targets", len(targets))
	return nil
}

func (r *TargetRepository) ListForPortfolio(ctx context.Context, portfolioID string) ([]entities.TargetAllocation, error) {
	ctx, span := r.tracer.Start(ctx, "target_repo.list", trace.WithAttributes(
		attribute.String("portfolio_id", portfolioID),
	))
	defer span.End()

	started := time.Now()
	targets := []entities.TargetAllocation{}
	query := `
		SELECT id, portfolio_id, instrument_id, asset_class, target_weight, min_weight, max_weight
		FROM portfolio_targets
		WHERE portfolio_id = $1
		ORDER BY target_weight DESC, instrument_id ASC
	`
	err := r.db.SelectContext(ctx, &targets, query, portfolioID)
	metrics.RecordDatabaseQuery("select", "portfolio_targets", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list targets")
	}

	return targets, nil
}
