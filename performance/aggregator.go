/*
Package performance computes per-period performance metrics.

PURPOSE:
  Rolls the evaluation log up into one PerformanceMetric row per
  (entity, period): evaluation count, average score, satisfaction
  percentage, points earned in the period, and a streak snapshot.
  Metric rows are pure derived data - they can always be dropped and
  rebuilt from evaluations plus gamification state.

TRIGGERS:
  - In-transaction after each processed evaluation (Aggregator implements
    gamification.MetricsRefresher, so the engine's step 7 lands here)
  - On demand via Metric / MetricBulk (API reads)
  - Periodically via the api scheduler (catches drift after replays)

ROUNDING:
  AverageScore and SatisfactionPct are decimals rounded half-up to two
  places. Integer score sums stay exact until the final division.
*/
package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/telemetry"
)

var oneHundred = decimal.NewFromInt(100)

// Aggregator owns the performance_metrics table.
type Aggregator struct {
	Stores gamification.TxStores
	Logger *zap.Logger

	now func() time.Time
}

func NewAggregator(stores gamification.TxStores, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{Stores: stores, Logger: logger, now: time.Now}
}

// Refresh recomputes and upserts the metric for one (entity, period) in its
// own transaction, returning the fresh row.
func (a *Aggregator) Refresh(ctx context.Context, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("period %s: %w", period, gamification.ErrInvalidPeriod)
	}
	exists, err := a.Stores.EntityExists(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("entity %s: %w", entityID, gamification.ErrEntityNotFound)
	}

	var metric *gamification.PerformanceMetric
	err = a.Stores.WithTx(ctx, func(s gamification.Stores) error {
		metric, err = a.refresh(ctx, s, entityID, period)
		return err
	})
	if err != nil {
		return nil, err
	}
	return metric, nil
}

// RefreshAt recomputes the four calendar periods containing a timestamp.
// Runs inside the engine's transaction scope, hence the explicit store handle.
func (a *Aggregator) RefreshAt(ctx context.Context, s gamification.Stores, entityID gamification.EntityID, at time.Time) error {
	for _, kind := range gamification.CalendarPeriodTypes {
		period, err := gamification.PeriodContaining(kind, at)
		if err != nil {
			return err
		}
		if _, err := a.refresh(ctx, s, entityID, period); err != nil {
			return err
		}
	}
	return nil
}

// refresh does the actual rollup against whatever store scope it is handed.
func (a *Aggregator) refresh(ctx context.Context, s gamification.Stores, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	evals, err := s.EvaluationsInRange(ctx, entityID, period.Start, period.EndOfDay())
	if err != nil {
		return nil, err
	}

	metric := gamification.PerformanceMetric{
		ID:               uuid.NewString(),
		EntityID:         entityID,
		Period:           period,
		TotalEvaluations: len(evals),
		AverageScore:     decimal.Zero,
		SatisfactionPct:  decimal.Zero,
		ComputedAt:       a.now().UTC(),
	}

	if len(evals) > 0 {
		scoreSum, positive := 0, 0
		for _, ev := range evals {
			scoreSum += ev.Score
			if ev.Positive() {
				positive++
			}
			metric.PointsInPeriod += gamification.PointsForScore(ev.Score)
		}
		count := decimal.NewFromInt(int64(len(evals)))
		metric.AverageScore = decimal.NewFromInt(int64(scoreSum)).Div(count).Round(2)
		metric.SatisfactionPct = decimal.NewFromInt(int64(positive)).Mul(oneHundred).Div(count).Round(2)
	}

	// Streak snapshot comes from the engine-owned aggregate, not the window.
	state, err := s.GetState(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		metric.StreakDays = state.CurrentStreak
	}

	if err := s.UpsertMetric(ctx, metric); err != nil {
		return nil, err
	}
	telemetry.RecordMetricsRefresh(string(period.Type))

	a.Logger.Debug("performance metric refreshed",
		zap.String("entity_id", string(entityID)),
		zap.String("period", period.Label()),
		zap.Int("evaluations", metric.TotalEvaluations))
	return &metric, nil
}

// =============================================================================
// READ PATH
// =============================================================================

// Metric returns the stored metric for one (entity, period), computing it on
// the spot if no row exists yet.
func (a *Aggregator) Metric(ctx context.Context, entityID gamification.EntityID, period gamification.Period) (*gamification.PerformanceMetric, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("period %s: %w", period, gamification.ErrInvalidPeriod)
	}
	exists, err := a.Stores.EntityExists(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("entity %s: %w", entityID, gamification.ErrEntityNotFound)
	}

	stored, err := a.Stores.GetMetric(ctx, entityID, period)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	return a.Refresh(ctx, entityID, period)
}

// MetricBulk computes the metric for many entities over the same period.
// Failures on individual entities are reported per entity, not fatally.
type BulkResult struct {
	Metrics []gamification.PerformanceMetric
	Errors  map[gamification.EntityID]error
}

func (a *Aggregator) MetricBulk(ctx context.Context, entityIDs []gamification.EntityID, period gamification.Period) (*BulkResult, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("period %s: %w", period, gamification.ErrInvalidPeriod)
	}
	result := &BulkResult{Errors: make(map[gamification.EntityID]error)}
	for _, id := range entityIDs {
		metric, err := a.Metric(ctx, id, period)
		if err != nil {
			result.Errors[id] = err
			continue
		}
		result.Metrics = append(result.Metrics, *metric)
	}
	return result, nil
}
