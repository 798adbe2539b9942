/*
scheduler.go - Background metrics refresh scheduler

PURPOSE:
  Periodically recomputes current-period performance metrics for every
  attendant. The engine already refreshes metrics in-transaction after each
  evaluation; the scheduler catches drift from period boundaries rolling
  over (a week ending with no new evaluations still needs a fresh weekly
  row) and from manual database surgery.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Refreshes the four calendar periods containing "now" per attendant
  - Per-attendant failures are logged and skipped, never fatal

USAGE:
  scheduler := NewMetricsScheduler(store, agg, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - performance/aggregator.go: The refresh implementation
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/performance"
	"github.com/warp/scoring-engine/store/sqlite"
)

// MetricsScheduler refreshes current-period metrics in the background.
type MetricsScheduler struct {
	Store         *sqlite.Store
	Aggregator    *performance.Aggregator
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMetricsScheduler creates a new scheduler.
func NewMetricsScheduler(store *sqlite.Store, agg *performance.Aggregator, logger *zap.Logger) *MetricsScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsScheduler{
		Store:         store,
		Aggregator:    agg,
		Logger:        logger,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ms *MetricsScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.Logger.Info("metrics scheduler disabled, not starting")
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.wg.Add(1)

	go ms.run()

	ms.Logger.Info("metrics scheduler started", zap.Duration("interval", ms.CheckInterval))
}

// Stop stops the scheduler.
func (ms *MetricsScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker != nil {
		ms.ticker.Stop()
		close(ms.stop)
		ms.wg.Wait()
		ms.Logger.Info("metrics scheduler stopped")
	}
}

func (ms *MetricsScheduler) run() {
	defer ms.wg.Done()

	// Run immediately on start
	ms.refreshAll()

	for {
		select {
		case <-ms.ticker.C:
			ms.refreshAll()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MetricsScheduler) refreshAll() {
	ctx := context.Background()
	now := time.Now().UTC()

	attendants, err := ms.Store.ListAttendants(ctx)
	if err != nil {
		ms.Logger.Error("scheduler failed to list attendants", zap.Error(err))
		return
	}

	refreshed := 0
	for _, a := range attendants {
		entityID := gamification.EntityID(a.ID)
		for _, kind := range gamification.CalendarPeriodTypes {
			period, err := gamification.PeriodContaining(kind, now)
			if err != nil {
				ms.Logger.Error("scheduler period computation failed",
					zap.String("period_type", string(kind)), zap.Error(err))
				continue
			}
			if _, err := ms.Aggregator.Refresh(ctx, entityID, period); err != nil {
				ms.Logger.Warn("scheduler refresh failed",
					zap.String("entity_id", a.ID),
					zap.String("period", period.Label()),
					zap.Error(err))
				continue
			}
			refreshed++
		}
	}

	if refreshed > 0 {
		ms.Logger.Debug("scheduler pass complete",
			zap.Int("attendants", len(attendants)),
			zap.Int("refreshed", refreshed))
	}
}
