/*
engine.go - The scoring and achievement engine

PURPOSE:
  Consumes one evaluation event and updates the entity's gamification state
  transactionally: base points, experience, level, streak, streak bonus,
  achievement grants, and a metrics refresh for the affected period.

PROCESSING STEPS (single atomic unit):
  1. Load or lazily create the entity's GamificationState
  2. basePoints = PointsForScore(evaluation.score)
  3. Recompute streak over the look-back window; derive the unpaid bonus tiers
  4. Fold base points and bonus into experience / level / totals
  5. Persist the state (CAS on UpdatedAt)
  6. Evaluate every active, not-yet-granted achievement against a snapshot;
     insert grants, fold their points back into the total, re-persist
  7. Refresh performance metrics for the periods containing the evaluation

CONCURRENCY:
  Mutations to one entity's state must be serialized or updates are lost.
  The engine uses optimistic concurrency: SaveState compare-and-swaps on
  UpdatedAt and the whole unit retries on ErrConcurrentModification (bounded;
  callers retry with backoff past that). Different entities are independent
  and process in parallel without coordination.

NON-IDEMPOTENCE WARNING:
  Re-processing an evaluation whose effects were already committed is a no-op
  for grants (uniqueness invariant) but NOT for points/experience. At-most-once
  invocation per evaluation is the intake collaborator's contract to uphold;
  the engine does not deduplicate.
*/
package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/scoring-engine/telemetry"
)

// DefaultMaxConflictRetries bounds the engine's internal CAS retry loop.
const DefaultMaxConflictRetries = 3

// MetricsRefresher recomputes performance metrics for the periods containing
// a timestamp. It runs inside the engine's transaction scope, hence the
// explicit Stores handle.
type MetricsRefresher interface {
	RefreshAt(ctx context.Context, s Stores, entityID EntityID, at time.Time) error
}

// Engine orchestrates evaluation processing. Construct with NewEngine; the
// exported fields may be tuned before first use.
type Engine struct {
	Stores    TxStores
	Refresher MetricsRefresher
	Logger    *zap.Logger

	Levels           LevelTable
	StreakWindowDays int
	MaxRetries       int

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an engine with default tuning. refresher may be nil,
// in which case step 7 is skipped (tests that only exercise scoring).
func NewEngine(stores TxStores, refresher MetricsRefresher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Stores:           stores,
		Refresher:        refresher,
		Logger:           logger,
		Levels:           DefaultLevels,
		StreakWindowDays: DefaultStreakWindowDays,
		MaxRetries:       DefaultMaxConflictRetries,
		now:              time.Now,
	}
}

// ProcessEvaluation folds a single evaluation into the entity's derived
// state and returns the updated view. All writes happen in one transaction;
// on any failure no partial state is left behind.
func (e *Engine) ProcessEvaluation(ctx context.Context, id EvaluationID) (*StateView, error) {
	start := time.Now()
	defer func() { telemetry.ObserveProcessDuration(time.Since(start)) }()

	var view *StateView
	var err error
	for attempt := 0; ; attempt++ {
		view, err = e.processOnce(ctx, id)
		if err == nil {
			telemetry.RecordEvaluationProcessed()
			return view, nil
		}
		if !IsRetryable(err) || attempt >= e.MaxRetries {
			telemetry.RecordProcessFailure(failureReason(err))
			return nil, err
		}
		telemetry.RecordConflictRetry()
		e.Logger.Warn("conflict processing evaluation, retrying",
			zap.String("evaluation_id", string(id)),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
}

func (e *Engine) processOnce(ctx context.Context, id EvaluationID) (*StateView, error) {
	var view *StateView
	err := e.Stores.WithTx(ctx, func(s Stores) error {
		ev, err := s.GetEvaluation(ctx, id)
		if err != nil {
			return err
		}
		if ev == nil {
			return fmt.Errorf("evaluation %s: %w", id, ErrEvaluationNotFound)
		}
		exists, err := s.EntityExists(ctx, ev.EntityID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("entity %s: %w", ev.EntityID, ErrEntityNotFound)
		}

		// Step 1: load or lazily create the state.
		state, expected, err := e.loadState(ctx, s, ev.EntityID)
		if err != nil {
			return err
		}

		// Step 2: base points. Out-of-range scores award nothing; this is
		// a data-quality warning, not an error, so replay over historical
		// bad rows cannot fail.
		basePoints := PointsForScore(ev.Score)
		if !ValidScore(ev.Score) {
			e.Logger.Warn("evaluation score out of range, awarding 0 points",
				zap.String("evaluation_id", string(ev.ID)),
				zap.String("entity_id", string(ev.EntityID)),
				zap.Int("score", ev.Score))
		}

		// Step 3: full streak recompute over the look-back window.
		windowStart := DateOf(ev.OccurredAt).AddDate(0, 0, -e.StreakWindowDays)
		history, err := s.EvaluationsInRange(ctx, ev.EntityID, windowStart, ev.OccurredAt)
		if err != nil {
			return err
		}
		streak := StreakAfter(history, *ev, e.StreakWindowDays)
		bonus, paidTier := BonusAbovePaid(state.BonusTierPaid, streak)

		// Step 4: fold into the aggregate.
		state.Experience += basePoints
		state.Level = e.Levels.LevelFor(state.Experience)
		state.TotalPoints += basePoints + bonus
		state.CurrentStreak = streak
		if streak > state.BestStreak {
			state.BestStreak = streak
		}
		state.BonusTierPaid = paidTier

		// Step 5: persist under the optimistic lock.
		state.UpdatedAt = e.now().UTC()
		if err := s.SaveState(ctx, state, expected); err != nil {
			return err
		}

		// Step 6: grant newly-qualifying achievements.
		grants, err := e.grantAchievements(ctx, s, &state, ev.Score)
		if err != nil {
			return err
		}

		// Step 7: refresh metrics for the periods touched by this event.
		if e.Refresher != nil {
			if err := e.Refresher.RefreshAt(ctx, s, ev.EntityID, ev.OccurredAt); err != nil {
				return err
			}
		}

		view = e.buildView(state, grants)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// loadState fetches the entity's state, creating a fresh zero state if none
// exists. The second return value is the CAS token for the later save.
func (e *Engine) loadState(ctx context.Context, s Stores, entityID EntityID) (GamificationState, time.Time, error) {
	existing, err := s.GetState(ctx, entityID)
	if err != nil {
		return GamificationState{}, time.Time{}, err
	}
	if existing == nil {
		return GamificationState{
			EntityID: entityID,
			Level:    e.Levels.LevelFor(0),
		}, time.Time{}, nil
	}
	return *existing, existing.UpdatedAt, nil
}

// grantAchievements evaluates every active definition not yet granted against
// the post-update snapshot, inserting grants and folding their points back
// into the total. Returns the full (pre-existing plus new) grant list.
//
// Points from a grant can qualify the entity for further achievements in the
// same pass, so the snapshot is refreshed after each award.
func (e *Engine) grantAchievements(ctx context.Context, s Stores, state *GamificationState, lastScore int) ([]AchievementGrant, error) {
	granted, err := s.GrantsByEntity(ctx, state.EntityID)
	if err != nil {
		return nil, err
	}
	have := make(map[AchievementID]bool, len(granted))
	for _, g := range granted {
		have[g.AchievementID] = true
	}

	defs, err := s.ActiveDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{
		TotalPoints:         state.TotalPoints,
		Level:               state.Level,
		BestStreak:          state.BestStreak,
		LastEvaluationScore: lastScore,
	}

	awarded := 0
	for _, def := range defs {
		if have[def.ID] || !Meets(def.Requirement, snap) {
			continue
		}
		grant := AchievementGrant{
			ID:            uuid.NewString(),
			EntityID:      state.EntityID,
			AchievementID: def.ID,
			PointsGranted: def.PointsAwarded,
			GrantedAt:     e.now().UTC(),
		}
		if err := s.InsertGrant(ctx, grant); err != nil {
			if IsDuplicateGrant(err) {
				// The uniqueness invariant held against a racing writer.
				// Non-fatal: skip, do not award points again.
				e.Logger.Warn("duplicate achievement grant suppressed",
					zap.String("entity_id", string(state.EntityID)),
					zap.String("achievement_id", string(def.ID)))
				have[def.ID] = true
				continue
			}
			return nil, err
		}
		telemetry.RecordAchievementGrant()
		granted = append(granted, grant)
		have[def.ID] = true
		state.TotalPoints += def.PointsAwarded
		snap.TotalPoints = state.TotalPoints
		awarded++
	}

	if awarded > 0 {
		expected := state.UpdatedAt
		state.UpdatedAt = e.now().UTC()
		if err := s.SaveState(ctx, *state, expected); err != nil {
			return nil, err
		}
	}
	return granted, nil
}

// =============================================================================
// READ PATH
// =============================================================================

// StateView returns the read-only projection for an entity. An entity with
// no evaluations yet yields a zero-valued view at level 1, not an error.
func (e *Engine) StateView(ctx context.Context, entityID EntityID) (*StateView, error) {
	exists, err := e.Stores.EntityExists(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("entity %s: %w", entityID, ErrEntityNotFound)
	}

	state, _, err := e.loadState(ctx, e.Stores, entityID)
	if err != nil {
		return nil, err
	}
	grants, err := e.Stores.GrantsByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return e.buildView(state, grants), nil
}

func (e *Engine) buildView(state GamificationState, grants []AchievementGrant) *StateView {
	views := make([]GrantView, len(grants))
	for i, g := range grants {
		views[i] = GrantView{
			AchievementID: g.AchievementID,
			PointsGranted: g.PointsGranted,
			GrantedAt:     g.GrantedAt,
		}
	}
	return &StateView{
		EntityID:              state.EntityID,
		TotalPoints:           state.TotalPoints,
		Experience:            state.Experience,
		Level:                 state.Level,
		ExperienceToNextLevel: e.Levels.ExperienceToNext(state.Experience),
		LevelProgressPercent:  e.Levels.ProgressPercent(state.Experience),
		CurrentStreak:         state.CurrentStreak,
		BestStreak:            state.BestStreak,
		Achievements:          views,
	}
}

func failureReason(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case IsClientError(err):
		return "validation"
	case IsRetryable(err):
		return "conflict"
	default:
		return "internal"
	}
}
