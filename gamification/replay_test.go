package gamification_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/gamification/store"
)

// derived captures the replay-stable fields of a state; bookkeeping
// timestamps are excluded on purpose.
type derived struct {
	TotalPoints   int
	Experience    int
	Level         int
	CurrentStreak int
	BestStreak    int
	BonusTierPaid int
	Grants        map[gamification.AchievementID]bool
}

func snapshotDerived(t *testing.T, mem *store.TxMemory) derived {
	t.Helper()
	ctx := context.Background()

	state, err := mem.GetState(ctx, "att-1")
	require.NoError(t, err)
	require.NotNil(t, state)

	return derived{
		TotalPoints:   state.TotalPoints,
		Experience:    state.Experience,
		Level:         state.Level,
		CurrentStreak: state.CurrentStreak,
		BestStreak:    state.BestStreak,
		BonusTierPaid: state.BonusTierPaid,
		Grants:        grantedIDs(t, mem),
	}
}

func seedMixedHistory(mem *store.TxMemory) []gamification.Evaluation {
	// 30 evaluations over 20 days: deterministic score pattern mixing
	// positives, negatives, same-day repeats and one out-of-range row.
	var evals []gamification.Evaluation
	scores := []int{5, 2, 4, 4, 1, 5, 3, 4, 5, 9}
	for i := 0; i < 30; i++ {
		ev := gamification.Evaluation{
			ID:         gamification.EvaluationID(fmt.Sprintf("ev-%02d", i)),
			EntityID:   "att-1",
			RaterID:    "rater-1",
			Score:      scores[i%len(scores)],
			OccurredAt: day(i * 2 / 3), // several evaluations share a calendar day
		}
		evals = append(evals, ev)
		mem.AddEvaluation(ev)
	}
	return evals
}

func TestRecompute_IsDeterministic(t *testing.T) {
	// GIVEN: a processed history of 30 mixed evaluations
	// WHEN: recomputing from scratch three times
	// THEN: every derived field converges to the same values each time
	mem, engine := newEngineRig()
	mem.SeedDefinitions([]gamification.AchievementDefinition{
		{ID: "first_evaluation", Name: "First Steps", PointsAwarded: 25, Active: true},
		{ID: "points_500", Name: "Point Collector", PointsAwarded: 50, Active: true,
			Requirement: gamification.Requirement{PointsMinimum: intp(500)}},
		{ID: "streak_7", Name: "Week Warrior", PointsAwarded: 75, Active: true,
			Requirement: gamification.Requirement{StreakMinimum: intp(7)}},
	})
	replayer := gamification.NewReplayController(mem, engine, nil)
	ctx := context.Background()

	evals := seedMixedHistory(mem)
	for _, ev := range evals {
		_, err := engine.ProcessEvaluation(ctx, ev.ID)
		require.NoError(t, err)
	}
	original := snapshotDerived(t, mem)

	for run := 0; run < 3; run++ {
		_, err := replayer.Recompute(ctx, "att-1")
		require.NoError(t, err)
		assert.Equal(t, original, snapshotDerived(t, mem), "recompute run %d diverged", run+1)
	}
}

func TestRecompute_GrantsNotDuplicated(t *testing.T) {
	mem, engine := newEngineRig()
	mem.SeedDefinitions([]gamification.AchievementDefinition{
		{ID: "first_evaluation", Name: "First Steps", PointsAwarded: 25, Active: true},
	})
	replayer := gamification.NewReplayController(mem, engine, nil)
	ctx := context.Background()

	ev := eval(4, day(0))
	mem.AddEvaluation(ev)
	_, err := engine.ProcessEvaluation(ctx, ev.ID)
	require.NoError(t, err)

	view, err := replayer.Recompute(ctx, "att-1")
	require.NoError(t, err)

	grants, err := mem.GrantsByEntity(ctx, "att-1")
	require.NoError(t, err)
	assert.Len(t, grants, 1, "replay resets grants before re-deriving them")
	assert.Equal(t, 75, view.TotalPoints, "50 base + 25 award, not double-counted")
}

func TestRecompute_UnknownEntity(t *testing.T) {
	mem, engine := newEngineRig()
	replayer := gamification.NewReplayController(mem, engine, nil)

	_, err := replayer.Recompute(context.Background(), "ghost")
	assert.ErrorIs(t, err, gamification.ErrEntityNotFound)
}

func TestRecompute_EmptyHistoryYieldsZeroView(t *testing.T) {
	mem, engine := newEngineRig()
	replayer := gamification.NewReplayController(mem, engine, nil)

	view, err := replayer.Recompute(context.Background(), "att-1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalPoints)
	assert.Equal(t, 1, view.Level)
	assert.Empty(t, view.Achievements)
}
