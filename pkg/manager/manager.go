package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"proxycrawl/internal/database"
	"proxycrawl/internal/database/models/model"
	"proxycrawl/internal/logger"
	"proxycrawl/pkg/checker"
	"proxycrawl/pkg/scraper"
	"proxycrawl/pkg/store"
)

// History receives a summary of every successful harvest
type History interface {
	RecordRun(ctx context.Context, run model.HarvestRuns) error
	RecordChecks(ctx context.Context, runID string, checks []database.CheckRecord) error
}

// Metrics receives probe and harvest counters
type Metrics interface {
	RecordValidation(outcome string, duration time.Duration)
	SetValidatedProxies(n int)
}

// HarvestResult describes one completed harvest
type HarvestResult struct {
	RunID      string
	Source     string
	Candidates int
	Working    []scraper.Candidate
	ByStatus   map[checker.ProxyStatus]int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Harvester fetches candidates, validates them and persists the survivors
type Harvester struct {
	source      scraper.Source
	coordinator *checker.Coordinator
	store       *store.Store
	history     History
	metrics     Metrics
	logger      *logger.Logger

	// runMu serialises harvests so the check buffer belongs to one run
	runMu   sync.Mutex
	checkMu sync.Mutex
	checks  []checker.CheckResult

	mu   sync.RWMutex
	last *HarvestResult

	updateTicker *time.Ticker
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewHarvester(source scraper.Source, coordinator *checker.Coordinator, st *store.Store) *Harvester {
	return &Harvester{
		source:      source,
		coordinator: coordinator,
		store:       st,
		logger:      logger.New("harvester"),
	}
}

// WithHistory records every harvest in h
func (m *Harvester) WithHistory(h History) *Harvester {
	m.history = h
	return m
}

// WithMetrics reports counters to mc
func (m *Harvester) WithMetrics(mc Metrics) *Harvester {
	m.metrics = mc
	return m
}

// ObserveChecker collects per-probe results from c for history and metrics.
// Must be called before the first harvest.
func (m *Harvester) ObserveChecker(c *checker.Checker) *Harvester {
	c.Observe(func(result checker.CheckResult) {
		if m.metrics != nil {
			m.metrics.RecordValidation(result.Status.Outcome().String(), result.ResponseTime)
		}
		m.checkMu.Lock()
		m.checks = append(m.checks, result)
		m.checkMu.Unlock()
	})
	return m
}

// Run performs a single harvest. Nothing is persisted when fetching fails
// strictly, a validation task faults or ctx is cancelled.
func (m *Harvester) Run(ctx context.Context) (*HarvestResult, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	runID := uuid.NewString()
	id := runID[:8]
	started := time.Now()
	m.resetChecks()

	m.logger.Info(id, "Harvesting proxies from %s (%s)", m.source.URL(), m.source.Name())

	candidates, err := m.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	m.logger.Info(id, "Scraped %d candidates, validating...", len(candidates))

	working, err := m.coordinator.Run(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to validate candidates: %w", err)
	}

	if err := m.store.Persist(working); err != nil {
		return nil, err
	}

	result := &HarvestResult{
		RunID:      runID,
		Source:     m.source.URL(),
		Candidates: len(candidates),
		Working:    working,
		ByStatus:   make(map[checker.ProxyStatus]int),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	checks := m.drainChecks()
	for status, group := range checker.GroupByStatus(checks) {
		result.ByStatus[status] = len(group)
	}

	m.logger.Info(id, "Persisted %d of %d proxies to %s in %v",
		len(working), len(candidates), m.store.Path(), result.FinishedAt.Sub(started).Round(time.Millisecond))
	for status, n := range result.ByStatus {
		m.logger.Debug(id, "  %s: %d", status, n)
	}

	if m.metrics != nil {
		m.metrics.SetValidatedProxies(len(working))
	}

	if m.history != nil {
		m.recordHistory(ctx, id, result, checks)
	}

	m.mu.Lock()
	m.last = result
	m.mu.Unlock()

	return result, nil
}

// recordHistory is best effort: the proxy file is already written
func (m *Harvester) recordHistory(ctx context.Context, id string, result *HarvestResult, checks []checker.CheckResult) {
	run := model.HarvestRuns{
		RunID:      result.RunID,
		SourceURL:  result.Source,
		Candidates: int32(result.Candidates),
		Working:    int32(len(result.Working)),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if err := m.history.RecordRun(ctx, run); err != nil {
		m.logger.Warn(id, "Failed to record harvest run: %v", err)
		return
	}

	records := make([]database.CheckRecord, 0, len(checks))
	for _, c := range checks {
		records = append(records, database.CheckRecord{
			Address:      c.Candidate.String(),
			Status:       c.Status.String(),
			ResponseTime: c.ResponseTime,
			Error:        c.Error,
			CheckedAt:    c.CheckedAt,
		})
	}
	if err := m.history.RecordChecks(ctx, result.RunID, records); err != nil {
		m.logger.Warn(id, "Failed to record proxy checks: %v", err)
	}
}

func (m *Harvester) resetChecks() {
	m.checkMu.Lock()
	m.checks = nil
	m.checkMu.Unlock()
}

func (m *Harvester) drainChecks() []checker.CheckResult {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()
	out := m.checks
	m.checks = nil
	return out
}

// Last returns the most recent successful harvest, or nil
func (m *Harvester) Last() *HarvestResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Start runs an initial harvest and then repeats it every interval until
// Stop is called or ctx is cancelled
func (m *Harvester) Start(ctx context.Context, interval time.Duration) error {
	m.logger.InfoBg("Starting harvester...")

	m.ctx, m.cancel = context.WithCancel(ctx)

	if _, err := m.Run(m.ctx); err != nil {
		m.cancel()
		return fmt.Errorf("initial harvest failed: %w", err)
	}

	m.updateTicker = time.NewTicker(interval)

	m.wg.Add(1)
	go m.updateLoop()

	m.logger.InfoBg("Harvester started, next run in %v", interval)
	return nil
}

func (m *Harvester) Stop() {
	m.logger.InfoBg("Stopping harvester...")

	if m.updateTicker != nil {
		m.updateTicker.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	m.logger.InfoBg("Harvester stopped")
}

func (m *Harvester) updateLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.updateTicker.C:
			m.logger.InfoBg("Running scheduled harvest...")
			if _, err := m.Run(m.ctx); err != nil {
				m.logger.ErrorBg("Scheduled harvest failed: %v", err)
			}
		}
	}
}
