/*
handlers.go - HTTP API handlers for the scoring engine

PURPOSE:
  Exposes the scoring and metrics engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Evaluations:
    POST   /api/evaluations                     Submit a scoring event

  Attendants:
    GET    /api/attendants                      List attendants
    POST   /api/attendants                      Register attendant
    GET    /api/attendants/{id}                 Attendant details
    GET    /api/attendants/{id}/gamification    Points/level/streak/grants
    GET    /api/attendants/{id}/evaluations     Evaluation history
    GET    /api/attendants/{id}/metrics?period= Per-period metrics
    POST   /api/attendants/{id}/recompute       Replay from history

  Metrics:
    POST   /api/metrics/bulk                    Same period, many attendants

  Achievements:
    GET    /api/achievements                    Full catalog
    POST   /api/achievements                    Create/update catalog entry

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, aggregator, replay)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (lost optimistic-lock race after retries)
  - 503: Store unavailable
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/scoring-engine/catalog"
	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/performance"
	"github.com/warp/scoring-engine/store/sqlite"
	"github.com/warp/scoring-engine/telemetry"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Engine     *gamification.Engine
	Aggregator *performance.Aggregator
	Replayer   *gamification.ReplayController
	Logger     *zap.Logger

	// currentScenario tracks the last demo scenario loaded, if any.
	currentScenario string
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store *sqlite.Store, engine *gamification.Engine, agg *performance.Aggregator, replayer *gamification.ReplayController, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Engine:     engine,
		Aggregator: agg,
		Replayer:   replayer,
		Logger:     logger,
	}
}

// =============================================================================
// EVALUATION INTAKE
// =============================================================================

// SubmitEvaluation records a scoring event and folds it into the attendant's
// gamification state.
// POST /api/evaluations
func (h *Handler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var req SubmitEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required", nil)
		return
	}
	if !gamification.ValidScore(req.Score) {
		writeError(w, http.StatusBadRequest, "Invalid score", gamification.ErrInvalidScore)
		return
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "occurred_at must be RFC3339", err)
			return
		}
		occurredAt = t.UTC()
	}

	ctx := r.Context()
	exists, err := h.Store.EntityExists(ctx, gamification.EntityID(req.EntityID))
	if err != nil {
		writeDomainError(w, "Failed to check attendant", err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Attendant not found", gamification.ErrEntityNotFound)
		return
	}

	ev := gamification.Evaluation{
		ID:         gamification.EvaluationID(req.ID),
		EntityID:   gamification.EntityID(req.EntityID),
		RaterID:    req.RaterID,
		Score:      req.Score,
		OccurredAt: occurredAt,
		Comment:    req.Comment,
	}
	if ev.ID == "" {
		ev.ID = gamification.EvaluationID(uuid.NewString())
	}

	if err := h.Store.InsertEvaluation(ctx, ev); err != nil {
		writeDomainError(w, "Failed to store evaluation", err)
		return
	}

	view, err := h.Engine.ProcessEvaluation(ctx, ev.ID)
	if err != nil {
		// The event is durably stored; processing can be re-driven by a
		// recompute. Still reported to the caller.
		h.Logger.Error("evaluation stored but processing failed",
			zap.String("evaluation_id", string(ev.ID)), zap.Error(err))
		writeDomainError(w, "Evaluation stored but processing failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, SubmitEvaluationResponse{
		Evaluation: toEvaluationDTO(ev),
		State:      view,
	})
}

// =============================================================================
// ATTENDANT HANDLERS
// =============================================================================

// ListAttendants returns all attendants.
// GET /api/attendants
func (h *Handler) ListAttendants(w http.ResponseWriter, r *http.Request) {
	attendants, err := h.Store.ListAttendants(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list attendants", err)
		return
	}

	dtos := make([]AttendantDTO, len(attendants))
	for i, a := range attendants {
		dtos[i] = toAttendantDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAttendant registers an attendant.
// POST /api/attendants
func (h *Handler) CreateAttendant(w http.ResponseWriter, r *http.Request) {
	var req CreateAttendantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	a := sqlite.Attendant{ID: req.ID, Name: req.Name, Email: req.Email, Team: req.Team}
	if err := h.Store.SaveAttendant(r.Context(), a); err != nil {
		writeDomainError(w, "Failed to save attendant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendantDTO(a))
}

// GetAttendant returns one attendant.
// GET /api/attendants/{id}
func (h *Handler) GetAttendant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.Store.GetAttendant(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load attendant", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Attendant not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toAttendantDTO(*a))
}

// GetGamification returns the attendant's derived state.
// GET /api/attendants/{id}/gamification
func (h *Handler) GetGamification(w http.ResponseWriter, r *http.Request) {
	id := gamification.EntityID(chi.URLParam(r, "id"))
	view, err := h.Engine.StateView(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load gamification state", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetEvaluations returns the attendant's evaluation history.
// GET /api/attendants/{id}/evaluations
func (h *Handler) GetEvaluations(w http.ResponseWriter, r *http.Request) {
	id := gamification.EntityID(chi.URLParam(r, "id"))
	ctx := r.Context()

	exists, err := h.Store.EntityExists(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to check attendant", err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Attendant not found", nil)
		return
	}

	evals, err := h.Store.EvaluationsByEntity(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to load evaluations", err)
		return
	}

	dtos := make([]EvaluationDTO, len(evals))
	for i, ev := range evals {
		dtos[i] = toEvaluationDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMetrics returns the attendant's metrics for one period.
// GET /api/attendants/{id}/metrics?period=2025-W03
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	id := gamification.EntityID(chi.URLParam(r, "id"))

	spec := r.URL.Query().Get("period")
	if spec == "" {
		writeError(w, http.StatusBadRequest, "period query parameter is required", nil)
		return
	}
	period, err := gamification.ParsePeriodSpec(spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	metric, err := h.Aggregator.Metric(r.Context(), id, period)
	if err != nil {
		writeDomainError(w, "Failed to compute metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricDTO(*metric))
}

// Recompute rebuilds the attendant's derived state from the evaluation log.
// POST /api/attendants/{id}/recompute
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	id := gamification.EntityID(chi.URLParam(r, "id"))
	view, err := h.Replayer.Recompute(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Recompute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// =============================================================================
// METRICS HANDLERS
// =============================================================================

// BulkMetrics computes the same period across many attendants.
// POST /api/metrics/bulk
func (h *Handler) BulkMetrics(w http.ResponseWriter, r *http.Request) {
	var req BulkMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.EntityIDs) == 0 {
		writeError(w, http.StatusBadRequest, "entity_ids is required", nil)
		return
	}
	period, err := gamification.ParsePeriodSpec(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	ids := make([]gamification.EntityID, len(req.EntityIDs))
	for i, id := range req.EntityIDs {
		ids[i] = gamification.EntityID(id)
	}

	result, err := h.Aggregator.MetricBulk(r.Context(), ids, period)
	if err != nil {
		writeDomainError(w, "Bulk metrics failed", err)
		return
	}

	resp := BulkMetricsResponse{}
	for _, m := range result.Metrics {
		resp.Metrics = append(resp.Metrics, toMetricDTO(m))
	}
	if len(result.Errors) > 0 {
		resp.Errors = make(map[string]string, len(result.Errors))
		for id, err := range result.Errors {
			resp.Errors[string(id)] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ACHIEVEMENT CATALOG HANDLERS
// =============================================================================

// ListAchievements returns the full catalog including inactive entries.
// GET /api/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.ListDefinitions(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list achievements", err)
		return
	}

	dtos := make([]AchievementDTO, len(defs))
	for i, def := range defs {
		dtos[i] = toAchievementDTO(def)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveAchievement creates or updates one catalog entry.
// POST /api/achievements
func (h *Handler) SaveAchievement(w http.ResponseWriter, r *http.Request) {
	var dto AchievementDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def := gamification.AchievementDefinition{
		ID:          gamification.AchievementID(dto.ID),
		Name:        dto.Name,
		Description: dto.Description,
		Requirement: gamification.Requirement{
			PointsMinimum: dto.Requirement.PointsMinimum,
			LevelMinimum:  dto.Requirement.LevelMinimum,
			StreakMinimum: dto.Requirement.StreakMinimum,
			ScoreMinimum:  dto.Requirement.ScoreMinimum,
		},
		PointsAwarded: dto.PointsAwarded,
		Active:        dto.Active,
	}
	if err := catalog.Validate(def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid achievement", err)
		return
	}
	if err := h.Store.SaveDefinition(r.Context(), def); err != nil {
		writeDomainError(w, "Failed to save achievement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAchievementDTO(def))
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness.
// GET /api/healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toAttendantDTO(a sqlite.Attendant) AttendantDTO {
	dto := AttendantDTO{ID: a.ID, Name: a.Name, Email: a.Email, Team: a.Team}
	if !a.CreatedAt.IsZero() {
		dto.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toEvaluationDTO(ev gamification.Evaluation) EvaluationDTO {
	return EvaluationDTO{
		ID:         string(ev.ID),
		EntityID:   string(ev.EntityID),
		RaterID:    ev.RaterID,
		Score:      ev.Score,
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
		Comment:    ev.Comment,
	}
}

func toAchievementDTO(def gamification.AchievementDefinition) AchievementDTO {
	return AchievementDTO{
		ID:          string(def.ID),
		Name:        def.Name,
		Description: def.Description,
		Requirement: RequirementDTO{
			PointsMinimum: def.Requirement.PointsMinimum,
			LevelMinimum:  def.Requirement.LevelMinimum,
			StreakMinimum: def.Requirement.StreakMinimum,
			ScoreMinimum:  def.Requirement.ScoreMinimum,
		},
		PointsAwarded: def.PointsAwarded,
		Active:        def.Active,
	}
}

func toMetricDTO(m gamification.PerformanceMetric) MetricDTO {
	return MetricDTO{
		EntityID:         string(m.EntityID),
		PeriodType:       string(m.Period.Type),
		PeriodLabel:      m.Period.Label(),
		PeriodStart:      m.Period.Start.UTC().Format("2006-01-02"),
		PeriodEnd:        m.Period.End.UTC().Format("2006-01-02"),
		TotalEvaluations: m.TotalEvaluations,
		AverageScore:     m.AverageScore.StringFixed(2),
		SatisfactionPct:  m.SatisfactionPct.StringFixed(2),
		PointsInPeriod:   m.PointsInPeriod,
		StreakDays:       m.StreakDays,
		ComputedAt:       m.ComputedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	telemetry.RecordHTTPRequest("api", strconv.Itoa(status))
	writeJSON(w, status, resp)
}

// writeDomainError maps the domain error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case gamification.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case gamification.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, gamification.ErrConcurrentModification),
		errors.Is(err, gamification.ErrDuplicateGrant):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, gamification.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
