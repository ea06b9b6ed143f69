package backtest

import (
	"sync"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// MemoryStore is an in-memory BacktestStore. Configs and runs are listed
// in insertion order. Safe for concurrent use.
// TODO: move to a persistent store once run history must survive restarts.
type MemoryStore struct {
	mu          sync.RWMutex
	configs     map[string]*entities.BacktestConfig
	configOrder []string
	runs        map[string]*entities.BacktestRun
	runOrder    []string
	results     map[string]*entities.BacktestResult
}

// NewMemoryStore creates an empty in-memory backtest store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]*entities.BacktestConfig),
		runs:    make(map[string]*entities.BacktestRun),
		results: make(map[string]*entities.BacktestResult),
	}
}

func (s *MemoryStore) PutConfig(config *entities.BacktestConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[config.ID]; !exists {
		s.configOrder = append(s.configOrder, config.ID)
	}
	s.configs[config.ID] = config
}

func (s *MemoryStore) GetConfig(id string) (*entities.BacktestConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	config, ok := s.configs[id]
	return config, ok
}

func (s *MemoryStore) ListConfigs() []*entities.BacktestConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]*entities.BacktestConfig, 0, len(s.configOrder))
	for _, id := range s.configOrder {
		configs = append(configs, s.configs[id])
	}
	return configs
}

func (s *MemoryStore) PutRun(run *entities.BacktestRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = run
}

func (s *MemoryStore) GetRun(id string) (*entities.BacktestRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// ListRuns returns runs for a config, or every run when configID is empty.
func (s *MemoryStore) ListRuns(configID string) []*entities.BacktestRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*entities.BacktestRun, 0, len(s.runOrder))
	for _, id := range s.runOrder {
		run := s.runs[id]
		if configID == "" || run.ConfigID == configID {
			runs = append(runs, run)
		}
	}
	return runs
}

func (s *MemoryStore) PutResult(runID string, result *entities.BacktestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[runID] = result
}

func (s *MemoryStore) GetResult(runID string) (*entities.BacktestResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[runID]
	return result, ok
}
