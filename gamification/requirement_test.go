package gamification_test

import (
	"testing"

	"github.com/warp/scoring-engine/gamification"
)

func intp(v int) *int { return &v }

func TestMeets_EmptyRequirementAlwaysMet(t *testing.T) {
	req := gamification.Requirement{}
	if !req.Empty() {
		t.Fatal("requirement should report empty")
	}
	if !gamification.Meets(req, gamification.Snapshot{}) {
		t.Error("empty requirement must be met by the zero snapshot")
	}
}

func TestMeets_SingleConditions(t *testing.T) {
	snap := gamification.Snapshot{
		TotalPoints:         600,
		Level:               4,
		BestStreak:          12,
		LastEvaluationScore: 4,
	}

	cases := []struct {
		name string
		req  gamification.Requirement
		want bool
	}{
		{"points met", gamification.Requirement{PointsMinimum: intp(500)}, true},
		{"points exact", gamification.Requirement{PointsMinimum: intp(600)}, true},
		{"points unmet", gamification.Requirement{PointsMinimum: intp(601)}, false},
		{"level met", gamification.Requirement{LevelMinimum: intp(4)}, true},
		{"level unmet", gamification.Requirement{LevelMinimum: intp(5)}, false},
		{"streak met", gamification.Requirement{StreakMinimum: intp(7)}, true},
		{"streak unmet", gamification.Requirement{StreakMinimum: intp(13)}, false},
		{"score met", gamification.Requirement{ScoreMinimum: intp(4)}, true},
		{"score unmet", gamification.Requirement{ScoreMinimum: intp(5)}, false},
	}
	for _, c := range cases {
		if got := gamification.Meets(c.req, snap); got != c.want {
			t.Errorf("%s: Meets = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMeets_ConditionsAreANDed(t *testing.T) {
	snap := gamification.Snapshot{TotalPoints: 600, Level: 4}

	both := gamification.Requirement{PointsMinimum: intp(500), LevelMinimum: intp(4)}
	if !gamification.Meets(both, snap) {
		t.Error("both conditions satisfied, requirement should be met")
	}

	oneFails := gamification.Requirement{PointsMinimum: intp(500), LevelMinimum: intp(9)}
	if gamification.Meets(oneFails, snap) {
		t.Error("one failing condition must fail the whole requirement")
	}
}

func TestMeets_BestStreakNotCurrent(t *testing.T) {
	// Streak requirements check the best streak ever, so an achievement
	// stays earnable even after the run breaks.
	snap := gamification.Snapshot{BestStreak: 30}
	if !gamification.Meets(gamification.Requirement{StreakMinimum: intp(30)}, snap) {
		t.Error("best streak of 30 should satisfy a 30-day requirement")
	}
}
