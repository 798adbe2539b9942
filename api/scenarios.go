/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates attendants and drives
	evaluations through the engine so the derived state (points, levels,
	streaks, grants, metrics) is exactly what live traffic would produce.

AVAILABLE SCENARIOS:

	new-attendant:   Single attendant, first few evaluations
	streak-runner:   Ten positive days in a row, crosses the 7-day bonus tier
	rough-patch:     Mixed scores with a broken streak, satisfaction below 50%
	busy-team:       Three attendants with a month of history for dashboards

HOW SCENARIOS WORK:
 1. Reset database (clear attendants, evaluations, derived state)
 2. Create attendants
 3. Submit evaluations through the engine in occurrence order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "streak-runner"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler context and response helpers
  - server.go: Route registration
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/scoring-engine/gamification"
	"github.com/warp/scoring-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "new-attendant",
		Name:        "New Attendant",
		Description: "Single attendant with their first few evaluations",
	},
	{
		ID:          "streak-runner",
		Name:        "Streak Runner",
		Description: "Ten positive days in a row, crosses the 7-day bonus tier",
	},
	{
		ID:          "rough-patch",
		Name:        "Rough Patch",
		Description: "Mixed scores with a broken streak and low satisfaction",
	},
	{
		ID:          "busy-team",
		Name:        "Busy Team",
		Description: "Three attendants with a month of history for dashboards",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "new-attendant":
		err = h.loadNewAttendantScenario(ctx)
	case "streak-runner":
		err = h.loadStreakRunnerScenario(ctx)
	case "rough-patch":
		err = h.loadRoughPatchScenario(ctx)
	case "busy-team":
		err = h.loadBusyTeamScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewAttendantScenario(ctx context.Context) error {
	if err := h.Store.SaveAttendant(ctx, sqlite.Attendant{
		ID:    "att-001",
		Name:  "Alice Johnson",
		Email: "alice@example.com",
		Team:  "support",
	}); err != nil {
		return err
	}

	// Three evaluations over the last three days, most recent yesterday.
	today := gamification.DateOf(time.Now().UTC())
	return h.seedEvaluations(ctx, "att-001", []seedEval{
		{day: today.AddDate(0, 0, -3), score: 4, rater: "cust-101", comment: "Quick and friendly"},
		{day: today.AddDate(0, 0, -2), score: 5, rater: "cust-102", comment: "Solved it on the first call"},
		{day: today.AddDate(0, 0, -1), score: 5, rater: "cust-103"},
	})
}

func (h *Handler) loadStreakRunnerScenario(ctx context.Context) error {
	if err := h.Store.SaveAttendant(ctx, sqlite.Attendant{
		ID:    "att-010",
		Name:  "Bruno Silva",
		Email: "bruno@example.com",
		Team:  "support",
	}); err != nil {
		return err
	}

	// Ten consecutive positive days ending yesterday: the streak is alive,
	// the 7-day bonus tier is paid, and streak_7 is granted.
	today := gamification.DateOf(time.Now().UTC())
	evals := make([]seedEval, 0, 10)
	for i := 10; i >= 1; i-- {
		score := 4
		if i%3 == 0 {
			score = 5
		}
		evals = append(evals, seedEval{
			day:   today.AddDate(0, 0, -i),
			score: score,
			rater: fmt.Sprintf("cust-%03d", 200+i),
		})
	}
	return h.seedEvaluations(ctx, "att-010", evals)
}

func (h *Handler) loadRoughPatchScenario(ctx context.Context) error {
	if err := h.Store.SaveAttendant(ctx, sqlite.Attendant{
		ID:    "att-020",
		Name:  "Carla Mendes",
		Email: "carla@example.com",
		Team:  "escalations",
	}); err != nil {
		return err
	}

	// A strong start, then a gap and low scores. The streak breaks and the
	// monthly satisfaction lands under 50%.
	today := gamification.DateOf(time.Now().UTC())
	return h.seedEvaluations(ctx, "att-020", []seedEval{
		{day: today.AddDate(0, 0, -14), score: 5, rater: "cust-301"},
		{day: today.AddDate(0, 0, -13), score: 4, rater: "cust-302"},
		{day: today.AddDate(0, 0, -9), score: 2, rater: "cust-303", comment: "Long hold time"},
		{day: today.AddDate(0, 0, -7), score: 1, rater: "cust-304", comment: "Issue not resolved"},
		{day: today.AddDate(0, 0, -4), score: 3, rater: "cust-305"},
		{day: today.AddDate(0, 0, -2), score: 2, rater: "cust-306"},
	})
}

func (h *Handler) loadBusyTeamScenario(ctx context.Context) error {
	team := []sqlite.Attendant{
		{ID: "att-101", Name: "Dana Wright", Email: "dana@example.com", Team: "support"},
		{ID: "att-102", Name: "Elio Romano", Email: "elio@example.com", Team: "support"},
		{ID: "att-103", Name: "Fatima Noor", Email: "fatima@example.com", Team: "escalations"},
	}
	for _, a := range team {
		if err := h.Store.SaveAttendant(ctx, a); err != nil {
			return err
		}
	}

	// A month of staggered history. Score patterns differ per attendant so
	// the leaderboard and period metrics have some spread.
	patterns := map[string][]int{
		"att-101": {5, 5, 4, 5, 4},
		"att-102": {4, 3, 4, 5, 3},
		"att-103": {3, 4, 2, 5, 4},
	}
	today := gamification.DateOf(time.Now().UTC())
	for id, pattern := range patterns {
		evals := make([]seedEval, 0, 20)
		for i := 0; i < 20; i++ {
			evals = append(evals, seedEval{
				day:   today.AddDate(0, 0, -30+i+i/2),
				score: pattern[i%len(pattern)],
				rater: fmt.Sprintf("cust-%s-%02d", id, i),
			})
		}
		if err := h.seedEvaluations(ctx, id, evals); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

type seedEval struct {
	day     time.Time
	score   int
	rater   string
	comment string
}

// seedEvaluations stores and processes events in occurrence order, the same
// path live intake takes.
func (h *Handler) seedEvaluations(ctx context.Context, entityID string, evals []seedEval) error {
	for i, se := range evals {
		ev := gamification.Evaluation{
			ID:         gamification.EvaluationID(fmt.Sprintf("demo-%s-%03d", entityID, i)),
			EntityID:   gamification.EntityID(entityID),
			RaterID:    se.rater,
			Score:      se.score,
			OccurredAt: se.day.Add(10 * time.Hour),
			Comment:    se.comment,
		}
		if err := h.Store.InsertEvaluation(ctx, ev); err != nil {
			return fmt.Errorf("seed evaluation %s: %w", ev.ID, err)
		}
		if _, err := h.Engine.ProcessEvaluation(ctx, ev.ID); err != nil {
			return fmt.Errorf("process evaluation %s: %w", ev.ID, err)
		}
	}
	return nil
}
