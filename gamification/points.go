/*
points.go - Points and level calculation (pure functions)

PURPOSE:
  Maps a raw evaluation score to awarded points and accumulated experience
  to a level. No state, no error paths: these functions are total over their
  inputs so the engine and the replay controller can call them blindly.

POINTS TABLE:
  score 1 -> 10, 2 -> 20, 3 -> 30, 4 -> 50, 5 -> 100
  Anything outside 1..5 yields 0 points. That is a data-quality warning for
  the caller to log, not a fatal error: historical bad rows must not be able
  to break replay.

LEVEL TABLE:
  A strictly increasing threshold table; index 0 is level 1. The level for an
  experience value is the highest level whose threshold is <= experience,
  capped at the maximum defined level.
*/
package gamification

// pointsByScore is the fixed score-to-points lookup.
var pointsByScore = map[int]int{
	1: 10,
	2: 20,
	3: 30,
	4: 50,
	5: 100,
}

// PointsForScore returns the base points awarded for a raw evaluation score.
// Scores outside 1..5 yield 0.
func PointsForScore(score int) int {
	return pointsByScore[score]
}

// ValidScore reports whether the score is in the accepted 1..5 range.
func ValidScore(score int) bool {
	return score >= 1 && score <= 5
}

// =============================================================================
// LEVEL TABLE
// =============================================================================

// LevelTable maps experience to levels. Entry i is the minimum experience
// for level i+1. The table must be strictly increasing with entry 0 == 0.
type LevelTable []int

// DefaultLevels is the standard ten-level progression. The level-2 threshold
// sits above the 100 points of a single top score: one perfect evaluation
// is not a level-up.
var DefaultLevels = LevelTable{0, 150, 250, 500, 1000, 2000, 3500, 5500, 8000, 11000}

// MaxLevel returns the highest defined level.
func (lt LevelTable) MaxLevel() int { return len(lt) }

// LevelFor returns the level for the given experience: the highest level
// whose threshold is <= experience. Monotonic and total; experience below
// zero is clamped to level 1.
func (lt LevelTable) LevelFor(experience int) int {
	level := 1
	for i, threshold := range lt {
		if experience < threshold {
			break
		}
		level = i + 1
	}
	return level
}

// ExperienceToNext returns how much experience is missing until the next
// level, or 0 when already at the maximum level.
func (lt LevelTable) ExperienceToNext(experience int) int {
	level := lt.LevelFor(experience)
	if level >= lt.MaxLevel() {
		return 0
	}
	return lt[level] - experience
}

// ProgressPercent returns the position within the current level's band as an
// integer 0..100. The maximum level always reports 100.
func (lt LevelTable) ProgressPercent(experience int) int {
	level := lt.LevelFor(experience)
	if level >= lt.MaxLevel() {
		return 100
	}
	floor := lt[level-1]
	ceil := lt[level]
	span := ceil - floor
	if span <= 0 {
		return 100
	}
	pct := (experience - floor) * 100 / span
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
