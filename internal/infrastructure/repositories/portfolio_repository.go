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

// PortfolioRepository implements portfolio data access for PostgreSQL
type PortfolioRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
	tracer trace.Tracer
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sqlx.DB, log *logger.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:     db,
		logger: log,
		tracer: otel.Tracer("portfolio-repository"),
	}
}

func (r *PortfolioRepository) Create(ctx context.Context, portfolio *entities.Portfolio) error {
	ctx, span := r.tracer.Start(ctx, "portfolio_repo.create", trace.WithAttributes(
		attribute.String("portfolio_id", portfolio.ID),
	))
	defer span.End()

	started := time.Now()
	query := `
		INSERT INTO portfolios (id, name, base_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		portfolio.ID,
		portfolio.Name,
		portfolio.BaseCurrency,
		portfolio.CreatedAt,
		portfolio.UpdatedAt,
	)
	metrics.RecordDatabaseQuery("insert", "portfolios", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create portfolio")
	}

	r.logger.Infow("portfolio created", "portfolio_id", portfolio.ID, "name", portfolio.Name)
	return nil
}

func (r *PortfolioRepository) GetByID(ctx context.Context, id string) (*entities.Portfolio, error) {
	ctx, span := r.tracer.Start(ctx, "portfolio_repo.get", trace.WithAttributes(
		attribute.String("portfolio_id", id),
	))
	defer span.End()

	started := time.Now()
	var portfolio entities.Portfolio
	query := `
		SELECT id, name, base_currency, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &portfolio, query, id)
	metrics.RecordDatabaseQuery("select", "portfolios", time.Since(started).Seconds())
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("portfolio").AddDetail("portfolio_id", id)
	}
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load portfolio")
	}

	return &portfolio, nil
}

func (r *PortfolioRepository) List(ctx context.Context) ([]*entities.Portfolio, error) {
	ctx, span := r.tracer.Start(ctx, "portfolio_repo.list")
	defer span.End()

	started := time.Now()
	portfolios := []*entities.Portfolio{}
	query := `
		SELECT id, name, base_currency, created_at, updated_at
		FROM portfolios
		ORDER BY created_at ASC
	`
	err := r.db.SelectContext(ctx, &portfolios, query)
	metrics.RecordDatabaseQuery("select", "portfolios", time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list portfolios")
	}

	return portfolios, nil
}
