/*
Package gamification provides the core scoring and achievement engine.

PURPOSE:
  This package turns a stream of immutable evaluation events into derived,
  shared, mutable state: points, experience, levels, streaks and achievement
  grants. The evaluation log is the source of truth; everything else in this
  package can be re-derived from it by replay.

KEY CONCEPTS IN THIS FILE (types.go):
  - Evaluation: An immutable scoring event (1-5, never mutated by the core)
  - GamificationState: The single mutable aggregate per entity
  - AchievementDefinition / AchievementGrant: Catalog and at-most-once grants
  - Requirement: A structured, ANDed predicate over a state snapshot
  - PerformanceMetric: Per-period derived aggregates (always reconstructible)

DESIGN PRINCIPLES:
  1. Immutability: Evaluations are append-only facts, the core only reads them
  2. Exclusive ownership: GamificationState and AchievementGrant rows are
     written by the Engine only; PerformanceMetric rows by the Aggregator only
  3. Replayability: Recompute(entity) over the full history always converges
     to the same derived state
  4. Type safety: Strong typing for IDs prevents mixing entity/achievement IDs

SEE ALSO:
  - engine.go: The transactional scoring pipeline
  - points.go, streak.go: Pure calculators
  - requirement.go: Achievement predicate evaluation
  - replay.go: Full re-derivation from history
*/
package gamification

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type EvaluationID string
type AchievementID string

// =============================================================================
// EVALUATION - Immutable scoring event (owned by the intake collaborator)
// =============================================================================

// Evaluation is an immutable fact: somebody scored an entity 1-5 at a point
// in time. The core never mutates or deletes evaluations; it only reads them
// in OccurredAt order.
type Evaluation struct {
	ID         EvaluationID
	EntityID   EntityID
	RaterID    string
	Score      int
	OccurredAt time.Time
	Comment    string
}

// Positive reports whether the evaluation counts toward a streak (score >= 4).
// Out-of-range scores never count, even when numerically above the threshold.
func (e Evaluation) Positive() bool {
	return ValidScore(e.Score) && e.Score >= PositiveScoreThreshold
}

// PositiveScoreThreshold is the minimum score considered a "positive"
// evaluation for streak and satisfaction purposes.
const PositiveScoreThreshold = 4

// =============================================================================
// GAMIFICATION STATE - One mutable aggregate row per entity
// =============================================================================

// GamificationState is the derived aggregate for an entity. Exactly one row
// per entity, created lazily on its first evaluation, mutated only by the
// Engine, deleted only by the replay reset.
//
// Experience counts base points only (it drives level); TotalPoints also
// includes streak bonuses and achievement awards.
type GamificationState struct {
	EntityID      EntityID
	TotalPoints   int
	Experience    int
	Level         int
	CurrentStreak int
	BestStreak    int

	// BonusTierPaid is the highest streak-bonus threshold already rewarded
	// to this entity. Each bonus tier is paid at most once per entity,
	// so a streak that keeps meeting the 7-day threshold does not re-award
	// the 7-day bonus on every evaluation.
	BonusTierPaid int

	// UpdatedAt doubles as the optimistic-concurrency token: writes
	// compare-and-swap on it to detect lost updates.
	UpdatedAt time.Time
}

// =============================================================================
// ACHIEVEMENTS - Catalog definitions and at-most-once grants
// =============================================================================

// Requirement is the unlock condition of an achievement. All populated
// fields must be satisfied (AND); nil fields are vacuously satisfied.
type Requirement struct {
	PointsMinimum *int
	LevelMinimum  *int
	StreakMinimum *int
	ScoreMinimum  *int
}

// Empty reports whether the requirement has no conditions at all.
// An empty requirement is met by any snapshot (e.g. "first evaluation").
func (r Requirement) Empty() bool {
	return r.PointsMinimum == nil && r.LevelMinimum == nil &&
		r.StreakMinimum == nil && r.ScoreMinimum == nil
}

// AchievementDefinition is static catalog data, read-only to the core.
type AchievementDefinition struct {
	ID            AchievementID
	Name          string
	Description   string
	Requirement   Requirement
	PointsAwarded int
	Active        bool
}

// AchievementGrant records that an entity unlocked an achievement.
//
// INVARIANT: at most one grant per (entity, achievement) pair, ever.
// This is the central correctness invariant of the achievement subsystem
// and is enforced by a storage-level uniqueness constraint.
type AchievementGrant struct {
	ID            string
	EntityID      EntityID
	AchievementID AchievementID
	PointsGranted int
	GrantedAt     time.Time
}

// Snapshot is the minimal read-only view of an entity's derived state used
// to evaluate achievement requirements.
type Snapshot struct {
	TotalPoints         int
	Level               int
	BestStreak          int
	LastEvaluationScore int
}

// =============================================================================
// PERFORMANCE METRIC - Per-period derived aggregates
// =============================================================================

// PerformanceMetric is one row per (entity, period). Owned exclusively by
// the aggregator; always reconstructible from evaluations + state, so it may
// be dropped and rebuilt without information loss.
type PerformanceMetric struct {
	ID               string
	EntityID         EntityID
	Period           Period
	TotalEvaluations int
	AverageScore     decimal.Decimal
	SatisfactionPct  decimal.Decimal
	PointsInPeriod   int
	StreakDays       int
	ComputedAt       time.Time
}

// =============================================================================
// STATE VIEW - Read-only projection for dashboards/leaderboards
// =============================================================================

// StateView is the external projection of GamificationState returned by the
// read path and by ProcessEvaluation.
type StateView struct {
	EntityID              EntityID    `json:"entity_id"`
	TotalPoints           int         `json:"total_points"`
	Experience            int         `json:"experience"`
	Level                 int         `json:"level"`
	ExperienceToNextLevel int         `json:"experience_to_next_level"`
	LevelProgressPercent  int         `json:"level_progress_percent"`
	CurrentStreak         int         `json:"current_streak"`
	BestStreak            int         `json:"best_streak"`
	Achievements          []GrantView `json:"achievements"`
}

// GrantView is one earned achievement in a StateView.
type GrantView struct {
	AchievementID AchievementID `json:"achievement_id"`
	PointsGranted int           `json:"points_granted"`
	GrantedAt     time.Time     `json:"granted_at"`
}
