/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/scoring-engine/gamification"
)

// =============================================================================
// ATTENDANTS
// =============================================================================

// AttendantDTO represents a scored entity in API responses.
type AttendantDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Team      string `json:"team,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateAttendantRequest is the request to register an attendant.
type CreateAttendantRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Team  string `json:"team"`
}

// =============================================================================
// EVALUATIONS
// =============================================================================

// SubmitEvaluationRequest is the intake payload for one scoring event.
type SubmitEvaluationRequest struct {
	ID         string `json:"id,omitempty"`
	EntityID   string `json:"entity_id"`
	RaterID    string `json:"rater_id"`
	Score      int    `json:"score"`
	OccurredAt string `json:"occurred_at,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// EvaluationDTO represents one stored evaluation.
type EvaluationDTO struct {
	ID         string `json:"id"`
	EntityID   string `json:"entity_id"`
	RaterID    string `json:"rater_id,omitempty"`
	Score      int    `json:"score"`
	OccurredAt string `json:"occurred_at"`
	Comment    string `json:"comment,omitempty"`
}

// SubmitEvaluationResponse couples the stored event with the state it produced.
type SubmitEvaluationResponse struct {
	Evaluation EvaluationDTO           `json:"evaluation"`
	State      *gamification.StateView `json:"state"`
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

// AchievementDTO represents a catalog entry.
type AchievementDTO struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Requirement   RequirementDTO `json:"requirement"`
	PointsAwarded int            `json:"points_awarded"`
	Active        bool           `json:"active"`
}

// RequirementDTO mirrors the stored unlock condition. Absent fields mean
// no condition on that dimension.
type RequirementDTO struct {
	PointsMinimum *int `json:"points_min,omitempty"`
	LevelMinimum  *int `json:"level_min,omitempty"`
	StreakMinimum *int `json:"streak_min,omitempty"`
	ScoreMinimum  *int `json:"score_min,omitempty"`
}

// =============================================================================
// METRICS
// =============================================================================

// MetricDTO represents one per-period performance rollup.
type MetricDTO struct {
	EntityID         string `json:"entity_id"`
	PeriodType       string `json:"period_type"`
	PeriodLabel      string `json:"period_label"`
	PeriodStart      string `json:"period_start"`
	PeriodEnd        string `json:"period_end"`
	TotalEvaluations int    `json:"total_evaluations"`
	AverageScore     string `json:"average_score"`
	SatisfactionPct  string `json:"satisfaction_pct"`
	PointsInPeriod   int    `json:"points_in_period"`
	StreakDays       int    `json:"streak_days"`
	ComputedAt       string `json:"computed_at"`
}

// BulkMetricsRequest asks for the same period across many entities.
type BulkMetricsRequest struct {
	EntityIDs []string `json:"entity_ids"`
	Period    string   `json:"period"`
}

// BulkMetricsResponse carries per-entity results and per-entity failures.
type BulkMetricsResponse struct {
	Metrics []MetricDTO       `json:"metrics"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
