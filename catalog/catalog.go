/*
Package catalog manages achievement definitions.

PURPOSE:
  The achievement catalog is static configuration: which achievements exist,
  what unlocks them, and how many bonus points they award. The scoring core
  only ever reads it. This package holds the built-in default catalog, the
  JSON codec used to persist requirements, and validation for catalog edits.
*/
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/warp/scoring-engine/gamification"
)

// =============================================================================
// REQUIREMENT CODEC - JSON persistence format for unlock conditions
// =============================================================================

// requirementJSON is the storage shape of a Requirement. Absent keys mean
// "no condition on this dimension".
type requirementJSON struct {
	PointsMinimum *int `json:"points_min,omitempty"`
	LevelMinimum  *int `json:"level_min,omitempty"`
	StreakMinimum *int `json:"streak_min,omitempty"`
	ScoreMinimum  *int `json:"score_min,omitempty"`
}

// EncodeRequirement serializes a requirement for storage.
func EncodeRequirement(r gamification.Requirement) ([]byte, error) {
	return json.Marshal(requirementJSON{
		PointsMinimum: r.PointsMinimum,
		LevelMinimum:  r.LevelMinimum,
		StreakMinimum: r.StreakMinimum,
		ScoreMinimum:  r.ScoreMinimum,
	})
}

// DecodeRequirement parses a stored requirement. Empty input decodes to the
// empty requirement (met by any snapshot).
func DecodeRequirement(data []byte) (gamification.Requirement, error) {
	if len(data) == 0 {
		return gamification.Requirement{}, nil
	}
	var rj requirementJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return gamification.Requirement{}, fmt.Errorf("decode requirement: %w", err)
	}
	return gamification.Requirement{
		PointsMinimum: rj.PointsMinimum,
		LevelMinimum:  rj.LevelMinimum,
		StreakMinimum: rj.StreakMinimum,
		ScoreMinimum:  rj.ScoreMinimum,
	}, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks a definition before it enters the catalog.
func Validate(def gamification.AchievementDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("achievement id is required")
	}
	if def.Name == "" {
		return fmt.Errorf("achievement %s: name is required", def.ID)
	}
	if def.PointsAwarded < 0 {
		return fmt.Errorf("achievement %s: points awarded must be >= 0", def.ID)
	}
	for name, min := range map[string]*int{
		"points_min": def.Requirement.PointsMinimum,
		"level_min":  def.Requirement.LevelMinimum,
		"streak_min": def.Requirement.StreakMinimum,
	} {
		if min != nil && *min < 0 {
			return fmt.Errorf("achievement %s: %s must be >= 0", def.ID, name)
		}
	}
	if min := def.Requirement.ScoreMinimum; min != nil && !gamification.ValidScore(*min) {
		return fmt.Errorf("achievement %s: score_min must be 1-5", def.ID)
	}
	return nil
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

func intPtr(v int) *int { return &v }

// DefaultCatalog is the built-in achievement set, seeded into the store on
// first startup. Operators extend it through the achievements API.
func DefaultCatalog() []gamification.AchievementDefinition {
	return []gamification.AchievementDefinition{
		{
			ID:          "first_evaluation",
			Name:        "First Steps",
			Description: "Received a first evaluation.",
			// Empty requirement: unlocked by the very first processed event.
			PointsAwarded: 25,
			Active:        true,
		},
		{
			ID:            "points_500",
			Name:          "Point Collector",
			Description:   "Accumulated 500 points.",
			Requirement:   gamification.Requirement{PointsMinimum: intPtr(500)},
			PointsAwarded: 50,
			Active:        true,
		},
		{
			ID:            "points_2500",
			Name:          "Point Hoarder",
			Description:   "Accumulated 2,500 points.",
			Requirement:   gamification.Requirement{PointsMinimum: intPtr(2500)},
			PointsAwarded: 150,
			Active:        true,
		},
		{
			ID:            "points_10000",
			Name:          "Point Legend",
			Description:   "Accumulated 10,000 points.",
			Requirement:   gamification.Requirement{PointsMinimum: intPtr(10000)},
			PointsAwarded: 500,
			Active:        true,
		},
		{
			ID:            "level_5",
			Name:          "Rising Star",
			Description:   "Reached level 5.",
			Requirement:   gamification.Requirement{LevelMinimum: intPtr(5)},
			PointsAwarded: 100,
			Active:        true,
		},
		{
			ID:            "level_10",
			Name:          "Elite",
			Description:   "Reached the maximum level.",
			Requirement:   gamification.Requirement{LevelMinimum: intPtr(10)},
			PointsAwarded: 1000,
			Active:        true,
		},
		{
			ID:            "streak_7",
			Name:          "Week Warrior",
			Description:   "Seven consecutive days of positive evaluations.",
			Requirement:   gamification.Requirement{StreakMinimum: intPtr(7)},
			PointsAwarded: 75,
			Active:        true,
		},
		{
			ID:            "streak_30",
			Name:          "Monthly Master",
			Description:   "Thirty consecutive days of positive evaluations.",
			Requirement:   gamification.Requirement{StreakMinimum: intPtr(30)},
			PointsAwarded: 300,
			Active:        true,
		},
		{
			ID:            "streak_90",
			Name:          "Quarterly Champion",
			Description:   "Ninety consecutive days of positive evaluations.",
			Requirement:   gamification.Requirement{StreakMinimum: intPtr(90)},
			PointsAwarded: 1500,
			Active:        true,
		},
		{
			ID:            "perfect_score",
			Name:          "Perfection",
			Description:   "Received a perfect 5-star evaluation.",
			Requirement:   gamification.Requirement{ScoreMinimum: intPtr(5)},
			PointsAwarded: 30,
			Active:        true,
		},
	}
}
