package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/repositories"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// Service manages backtest configs and executes runs synchronously. A
// failed simulation is recorded as a FAILED run; the error does not
// propagate to the caller, who polls the run status.
type Service struct {
	store        repositories.BacktestStore
	engine       *engine
	maxRangeDays int
	logger       *logger.Logger
}

// defaultMaxRangeDays caps simulations at roughly ten calendar years.
const defaultMaxRangeDays = 3660

// NewService creates a new backtest service. maxRangeDays bounds the
// simulated date range; zero or negative applies the default cap.
func NewService(store repositories.BacktestStore, oracle repositories.PriceOracle, maxRangeDays int, log *logger.Logger) *Service {
	if maxRangeDays <= 0 {
		maxRangeDays = defaultMaxRangeDays
	}
	return &Service{
		store:        store,
		engine:       &engine{oracle: oracle},
		maxRangeDays: maxRangeDays,
		logger:       log,
	}
}

// CreateConfig validates and stores a simulation config, assigning an id
// and defaulting unset policy fields.
func (s *Service) CreateConfig(ctx context.Context, config *entities.BacktestConfig) (*entities.BacktestConfig, error) {
	if err := s.normalizeConfig(config); err != nil {
		return nil, err
	}
	if config.ID == "" {
		config.ID = uuid.New().String()
	}
	s.store.PutConfig(config)
	s.logger.Infow("created backtest config", "config_id", config.ID, "name", config.Name)
	return config, nil
}

// GetConfig returns a stored config by id.
func (s *Service) GetConfig(ctx context.Context, configID string) (*entities.BacktestConfig, error) {
	config, ok := s.store.GetConfig(configID)
	if !ok {
		return nil, errors.NotFound("backtest")
	}
	return config, nil
}

// ListConfigs returns all stored configs.
func (s *Service) ListConfigs(ctx context.Context) []*entities.BacktestConfig {
	return s.store.ListConfigs()
}

// Run executes a backtest against a stored config or an inline one. An
// inline config is persisted first, so its runs stay queryable. Exactly
// one of configID and inline must be provided.
func (s *Service) Run(ctx context.Context, configID string, inline *entities.BacktestConfig) (*entities.BacktestRun, error) {
	var config *entities.BacktestConfig
	var err error
	switch {
	case inline != nil:
		config, err = s.CreateConfig(ctx, inline)
	case configID != "":
		config, err = s.GetConfig(ctx, configID)
	default:
		return nil, errors.InvalidInput("either configId or an inline config is required")
	}
	if err != nil {
		return nil, err
	}

	run := &entities.BacktestRun{
		ID:        uuid.New().String(),
		ConfigID:  config.ID,
		Status:    entities.RunStatusRunning,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.store.PutRun(run)

	started := time.Now()
	series, stats, tradeLogs, execErr := s.executeGuarded(ctx, config)
	run.FinishedAt = time.Now().UTC().Format(time.RFC3339)

	if execErr != nil {
		run.Status = entities.RunStatusFailed
		run.ErrorMessage = execErr.Error()
		s.store.PutRun(run)
		metrics.RecordBacktestRun("failed", time.Since(started).Seconds())
		s.logger.Errorw("backtest failed",
			"run_id", run.ID, "config_id", config.ID, "error", execErr)
		return run, nil
	}

	run.Status = entities.RunStatusSucceeded
	s.store.PutRun(run)
	s.store.PutResult(run.ID, &entities.BacktestResult{
		Run:       *run,
		Series:    series,
		Stats:     stats,
		TradeLogs: tradeLogs,
	})
	metrics.RecordBacktestRun("succeeded", time.Since(started).Seconds())
	s.logger.Infow("backtest succeeded",
		"run_id", run.ID, "config_id", config.ID,
		"series_points", len(series), "trades", len(tradeLogs))

	return run, nil
}

// GetRun returns a run by id.
func (s *Service) GetRun(ctx context.Context, runID string) (*entities.BacktestRun, error) {
	run, ok := s.store.GetRun(runID)
	if !ok {
		return nil, errors.NotFound("backtest")
	}
	return run, nil
}

// ListRuns returns runs, optionally filtered by config id.
func (s *Service) ListRuns(ctx context.Context, configID string) []*entities.BacktestRun {
	return s.store.ListRuns(configID)
}

// GetResult returns the result of a succeeded run.
func (s *Service) GetResult(ctx context.Context, runID string) (*entities.BacktestResult, error) {
	result, ok := s.store.GetResult(runID)
	if !ok {
		return nil, errors.NotFound("backtest")
	}
	return result, nil
}

// executeGuarded turns an engine panic into a failed run instead of
// taking down the request.
func (s *Service) executeGuarded(ctx context.Context, config *entities.BacktestConfig) (series []entities.SeriesPoint, stats entities.BacktestStats, tradeLogs []entities.TradeLogEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeSimulationFailure, fmt.Sprintf("simulation panic: %v", r))
		}
	}()
	return s.engine.execute(ctx, config)
}

func (s *Service) normalizeConfig(config *entities.BacktestConfig) error {
	if config.InvestmentType == "" {
		config.InvestmentType = entities.InvestmentTypeLumpSum
	}
	if config.RebalanceType == "" {
		config.RebalanceType = entities.RebalanceTypePeriodic
	}
	if config.RebalancePeriod == "" {
		config.RebalancePeriod = entities.RebalancePeriodQuarterly
	}

	if !config.InvestmentType.Valid() {
		return errors.InvalidInput("unknown investment type").
			AddDetail("investment_type", string(config.InvestmentType))
	}
	if !config.RebalanceType.Valid() {
		return errors.InvalidInput("unknown rebalance type").
			AddDetail("rebalance_type", string(config.RebalanceType))
	}
	if !config.RebalancePeriod.Valid() {
		return errors.InvalidInput("unknown rebalance period").
			AddDetail("rebalance_period", string(config.RebalancePeriod))
	}
	if config.DcaFrequency != "" && !config.DcaFrequency.Valid() {
		return errors.InvalidInput("unknown dca frequency").
			AddDetail("dca_frequency", string(config.DcaFrequency))
	}

	start, err := time.Parse(dateLayout, config.StartDate)
	if err != nil {
		return errors.InvalidInput("start date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, config.EndDate)
	if err != nil {
		return errors.InvalidInput("end date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return errors.InvalidInput("end date precedes start date")
	}
	if int(end.Sub(start).Hours()/24) > s.maxRangeDays {
		return errors.InvalidInput("date range exceeds the maximum").
			AddDetail("max_range_days", s.maxRangeDays)
	}

	if len(config.Targets) == 0 {
		return errors.InvalidInput("at least one target allocation required")
	}
	for _, target := range config.Targets {
		if target.InstrumentID == "" {
			return errors.InvalidInput("target instrument id is required")
		}
		if !target.TargetWeight.IsPositive() {
			return errors.InvalidInput("target weight must be positive").
				AddDetail("instrument_id", target.InstrumentID)
		}
	}

	if config.InvestmentType == entities.InvestmentTypeDCA &&
		(!config.DcaAmount.Valid || !config.DcaAmount.Decimal.IsPositive()) {
		return errors.InvalidInput("dca amount must be positive for DCA backtests")
	}

	return nil
}
