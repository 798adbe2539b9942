package gamification_test

import (
	"testing"

	"github.com/warp/scoring-engine/gamification"
)

// =============================================================================
// POINTS TABLE TESTS
// =============================================================================

func TestPointsForScore_Table(t *testing.T) {
	cases := []struct {
		score  int
		points int
	}{
		{1, 10},
		{2, 20},
		{3, 30},
		{4, 50},
		{5, 100},
		{0, 0},
		{6, 0},
		{-3, 0},
	}
	for _, c := range cases {
		if got := gamification.PointsForScore(c.score); got != c.points {
			t.Errorf("PointsForScore(%d) = %d, want %d", c.score, got, c.points)
		}
	}
}

func TestValidScore(t *testing.T) {
	for score := 1; score <= 5; score++ {
		if !gamification.ValidScore(score) {
			t.Errorf("score %d should be valid", score)
		}
	}
	for _, score := range []int{0, 6, -1, 100} {
		if gamification.ValidScore(score) {
			t.Errorf("score %d should be invalid", score)
		}
	}
}

// =============================================================================
// LEVEL TABLE TESTS
// =============================================================================

func TestLevelFor_Boundaries(t *testing.T) {
	lt := gamification.DefaultLevels

	cases := []struct {
		experience int
		level      int
	}{
		{0, 1},
		{50, 1},
		{100, 1}, // a single top score stays level 1
		{149, 1},
		{150, 2}, // exact threshold crossing
		{249, 2},
		{250, 3},
		{11000, 10},
		{1000000, 10}, // clamped at max level
	}
	for _, c := range cases {
		if got := lt.LevelFor(c.experience); got != c.level {
			t.Errorf("LevelFor(%d) = %d, want %d", c.experience, got, c.level)
		}
	}
}

func TestExperienceToNext(t *testing.T) {
	lt := gamification.DefaultLevels

	if got := lt.ExperienceToNext(0); got != 150 {
		t.Errorf("ExperienceToNext(0) = %d, want 150", got)
	}
	if got := lt.ExperienceToNext(150); got != 100 {
		t.Errorf("ExperienceToNext(150) = %d, want 100", got)
	}
	// Max level has no next threshold
	if got := lt.ExperienceToNext(20000); got != 0 {
		t.Errorf("ExperienceToNext(20000) = %d, want 0", got)
	}
}

func TestProgressPercent(t *testing.T) {
	lt := gamification.DefaultLevels

	if got := lt.ProgressPercent(0); got != 0 {
		t.Errorf("ProgressPercent(0) = %d, want 0", got)
	}
	// Halfway between 150 and 250
	if got := lt.ProgressPercent(200); got != 50 {
		t.Errorf("ProgressPercent(200) = %d, want 50", got)
	}
	if got := lt.ProgressPercent(20000); got != 100 {
		t.Errorf("ProgressPercent(20000) = %d, want 100", got)
	}
}
