// requirement.go - Achievement requirement evaluation (pure predicate logic).
//
// A Requirement is a structured predicate with explicit optional fields
// rather than a free-form map, so evaluation is exhaustive and type-checked.
// Meets has no side effects and no error path.

package gamification

// Meets reports whether the snapshot satisfies every populated field of the
// requirement. Absent fields are vacuously satisfied, so an empty requirement
// is met by any snapshot.
func Meets(req Requirement, snap Snapshot) bool {
	if req.PointsMinimum != nil && snap.TotalPoints < *req.PointsMinimum {
		return false
	}
	if req.LevelMinimum != nil && snap.Level < *req.LevelMinimum {
		return false
	}
	if req.StreakMinimum != nil && snap.BestStreak < *req.StreakMinimum {
		return false
	}
	if req.ScoreMinimum != nil && snap.LastEvaluationScore < *req.ScoreMinimum {
		return false
	}
	return true
}
