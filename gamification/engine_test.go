package gamification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/gamification/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newEngineRig() (*store.TxMemory, *gamification.Engine) {
	mem := store.NewTxMemory()
	mem.AddEntity("att-1")
	engine := gamification.NewEngine(mem, nil, nil)
	return mem, engine
}

func grantedIDs(t *testing.T, mem *store.TxMemory) map[gamification.AchievementID]bool {
	t.Helper()
	grants, err := mem.GrantsByEntity(context.Background(), "att-1")
	require.NoError(t, err)
	ids := make(map[gamification.AchievementID]bool, len(grants))
	for _, g := range grants {
		ids[g.AchievementID] = true
	}
	return ids
}

// =============================================================================
// SCORING PIPELINE TESTS
// =============================================================================

func TestProcessEvaluation_FirstEvaluation(t *testing.T) {
	// GIVEN: a fresh attendant, a first-evaluation and a perfect-score achievement
	// WHEN: a 5-star evaluation is processed
	// THEN: base points, lazy state creation, and both grants in one unit
	mem, engine := newEngineRig()
	mem.SeedDefinitions([]gamification.AchievementDefinition{
		{ID: "first_evaluation", Name: "First Steps", PointsAwarded: 25, Active: true},
		{ID: "perfect_score", Name: "Perfection", PointsAwarded: 30, Active: true,
			Requirement: gamification.Requirement{ScoreMinimum: intp(5)}},
	})
	mem.AddEvaluation(eval(5, day(0)))

	view, err := engine.ProcessEvaluation(context.Background(), eval(5, day(0)).ID)
	require.NoError(t, err)

	assert.Equal(t, 155, view.TotalPoints, "100 base + 25 + 30 grant awards")
	assert.Equal(t, 100, view.Experience, "grants do not add experience")
	assert.Equal(t, 1, view.Level, "one perfect score is not a level-up")
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, 1, view.BestStreak)
	assert.Len(t, view.Achievements, 2)
}

func TestProcessEvaluation_UnknownEvaluation(t *testing.T) {
	_, engine := newEngineRig()

	_, err := engine.ProcessEvaluation(context.Background(), "nope")
	assert.ErrorIs(t, err, gamification.ErrEvaluationNotFound)
	assert.True(t, gamification.IsNotFound(err))
	assert.False(t, gamification.IsRetryable(err))
}

func TestProcessEvaluation_UnknownEntity(t *testing.T) {
	mem, engine := newEngineRig()
	ev := gamification.Evaluation{ID: "ev-x", EntityID: "ghost", Score: 4, OccurredAt: day(0)}
	mem.AddEvaluation(ev)

	_, err := engine.ProcessEvaluation(context.Background(), "ev-x")
	assert.ErrorIs(t, err, gamification.ErrEntityNotFound)
}

func TestProcessEvaluation_InvalidStoredScore(t *testing.T) {
	// A historical row with a bad score must process as a 0-point warning,
	// never as a failure, or replay could wedge on it.
	mem, engine := newEngineRig()
	mem.AddEvaluation(eval(9, day(0)))

	view, err := engine.ProcessEvaluation(context.Background(), eval(9, day(0)).ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalPoints)
	assert.Equal(t, 0, view.Experience)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, 0, view.CurrentStreak, "invalid score is not a positive evaluation")
}

func TestProcessEvaluation_StreakBonusPaidOncePerTier(t *testing.T) {
	// GIVEN: eight consecutive days of 4-star evaluations
	// WHEN: processed in order
	// THEN: the 7-day bonus is paid exactly once, on day 7
	mem, engine := newEngineRig()
	ctx := context.Background()

	var total int
	for i := 0; i < 8; i++ {
		ev := eval(4, day(i))
		mem.AddEvaluation(ev)
		view, err := engine.ProcessEvaluation(ctx, ev.ID)
		require.NoError(t, err)
		total = view.TotalPoints
	}

	// 8 * 50 base + one 50-point tier bonus
	assert.Equal(t, 450, total)

	state, err := mem.GetState(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, 8, state.CurrentStreak)
	assert.Equal(t, 8, state.BestStreak)
	assert.Equal(t, 7, state.BonusTierPaid)
	assert.Equal(t, 400, state.Experience)
	assert.Equal(t, 3, state.Level)
}

func TestProcessEvaluation_LowScoreBreaksStreak(t *testing.T) {
	// GIVEN: a 10-day positive streak
	// WHEN: a score-2 evaluation is processed the next day
	// THEN: the current streak drops to 0; best streak and paid tier are kept
	mem, engine := newEngineRig()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ev := eval(5, day(i))
		mem.AddEvaluation(ev)
		_, err := engine.ProcessEvaluation(ctx, ev.ID)
		require.NoError(t, err)
	}

	bad := eval(2, day(10))
	mem.AddEvaluation(bad)
	view, err := engine.ProcessEvaluation(ctx, bad.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, view.CurrentStreak, "a non-positive day ends the run")
	assert.Equal(t, 10, view.BestStreak)

	state, err := mem.GetState(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, 7, state.BonusTierPaid, "paid tiers are not clawed back")
}

func TestProcessEvaluation_GrantIsAtMostOnce(t *testing.T) {
	mem, engine := newEngineRig()
	ctx := context.Background()
	mem.SeedDefinitions([]gamification.AchievementDefinition{
		{ID: "first_evaluation", Name: "First Steps", PointsAwarded: 25, Active: true},
	})

	ev1, ev2 := eval(3, day(0)), eval(3, day(1))
	mem.AddEvaluation(ev1)
	mem.AddEvaluation(ev2)

	_, err := engine.ProcessEvaluation(ctx, ev1.ID)
	require.NoError(t, err)
	view, err := engine.ProcessEvaluation(ctx, ev2.ID)
	require.NoError(t, err)

	assert.Len(t, view.Achievements, 1, "empty-requirement achievement granted exactly once")
	assert.Equal(t, 85, view.TotalPoints, "30 + 30 base + one 25-point award")
}

func TestProcessEvaluation_GrantPointsCascade(t *testing.T) {
	// Points awarded by one achievement can qualify the next one within
	// the same processing pass (definitions evaluate in ID order).
	mem, engine := newEngineRig()
	mem.SeedDefinitions([]gamification.AchievementDefinition{
		{ID: "a_bootstrap", Name: "Bootstrap", PointsAwarded: 500, Active: true},
		{ID: "b_collector", Name: "Collector", PointsAwarded: 10, Active: true,
			Requirement: gamification.Requirement{PointsMinimum: intp(500)}},
	})
	ev := eval(1, day(0))
	mem.AddEvaluation(ev)

	view, err := engine.ProcessEvaluation(context.Background(), ev.ID)
	require.NoError(t, err)

	ids := grantedIDs(t, mem)
	assert.True(t, ids["a_bootstrap"])
	assert.True(t, ids["b_collector"], "cascade: bootstrap award pushed points past the threshold")
	assert.Equal(t, 520, view.TotalPoints)
}

func TestProcessEvaluation_InactiveDefinitionsIgnored(t *testing.T) {
	mem, engine := newEngineRig()
	mem.SeedDefinitions([]gamification.AchievementDefinition{
		{ID: "retired", Name: "Retired", PointsAwarded: 1000, Active: false},
	})
	ev := eval(5, day(0))
	mem.AddEvaluation(ev)

	view, err := engine.ProcessEvaluation(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Achievements)
	assert.Equal(t, 100, view.TotalPoints)
}

// =============================================================================
// OPTIMISTIC CONCURRENCY TESTS
// =============================================================================

// conflictStores simulates an entity whose state is perpetually modified by
// a racing writer: every save loses.
type conflictStores struct {
	*store.Memory
	saves int
}

func (c *conflictStores) WithTx(_ context.Context, fn func(gamification.Stores) error) error {
	return fn(c)
}

func (c *conflictStores) SaveState(_ context.Context, state gamification.GamificationState, expected time.Time) error {
	c.saves++
	return &gamification.StateConflictError{EntityID: state.EntityID, Expected: expected}
}

func TestProcessEvaluation_ConflictRetriesThenGivesUp(t *testing.T) {
	cs := &conflictStores{Memory: store.NewMemory()}
	cs.AddEntity("att-1")
	ev := eval(4, day(0))
	cs.AddEvaluation(ev)

	engine := gamification.NewEngine(cs, nil, nil)
	_, err := engine.ProcessEvaluation(context.Background(), ev.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, gamification.ErrConcurrentModification)
	assert.True(t, gamification.IsRetryable(err), "caller may retry with backoff")
	assert.Equal(t, engine.MaxRetries+1, cs.saves, "initial attempt plus bounded retries")
}

// =============================================================================
// READ PATH TESTS
// =============================================================================

func TestStateView_UnknownEntity(t *testing.T) {
	_, engine := newEngineRig()
	_, err := engine.StateView(context.Background(), "ghost")
	assert.ErrorIs(t, err, gamification.ErrEntityNotFound)
}

func TestStateView_NoEvaluationsYet(t *testing.T) {
	// An attendant nobody has scored yet reads as a zero view, not an error.
	_, engine := newEngineRig()

	view, err := engine.StateView(context.Background(), "att-1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalPoints)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, 150, view.ExperienceToNextLevel)
	assert.Empty(t, view.Achievements)
}
