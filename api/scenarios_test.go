/*
scenarios_test.go - Tests for demo scenario loading

Tests for:
- Loading each scenario end to end through the router
- Reset behavior between loads
- Derived state produced by the streak-runner and rough-patch loaders
*/
package api

import (
	"net/http"
	"testing"

	"github.com/warp/scoring-engine/gamification"
)

func loadScenario(t *testing.T, api *testAPI, id string) {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id})
	if rec.Code != http.StatusOK {
		t.Fatalf("Failed to load scenario %s: status %d body %s", id, rec.Code, rec.Body.String())
	}
}

func TestScenarios_ListAndCurrent(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/scenarios", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decodeBody[[]ScenarioDTO](t, rec); len(got) != len(scenarios) {
		t.Errorf("Expected %d scenarios, got %d", len(scenarios), len(got))
	}

	// Nothing loaded yet.
	rec = api.do(t, http.MethodGet, "/api/scenarios/current", nil)
	if body := rec.Body.String(); body != "null\n" {
		t.Errorf("Expected null current scenario, got %q", body)
	}

	loadScenario(t, api, "new-attendant")

	rec = api.do(t, http.MethodGet, "/api/scenarios/current", nil)
	if got := decodeBody[ScenarioDTO](t, rec); got.ID != "new-attendant" {
		t.Errorf("Expected new-attendant current, got %s", got.ID)
	}
}

func TestScenarios_UnknownID(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestScenarios_LoadResetsPreviousData(t *testing.T) {
	// GIVEN: The busy-team scenario with three attendants
	api := newTestAPI(t)
	loadScenario(t, api, "busy-team")

	rec := api.do(t, http.MethodGet, "/api/attendants", nil)
	if got := decodeBody[[]AttendantDTO](t, rec); len(got) != 3 {
		t.Fatalf("Expected 3 attendants, got %d", len(got))
	}

	// WHEN: Loading the single-attendant scenario on top
	loadScenario(t, api, "new-attendant")

	// THEN: Only the new scenario's data remains
	rec = api.do(t, http.MethodGet, "/api/attendants", nil)
	got := decodeBody[[]AttendantDTO](t, rec)
	if len(got) != 1 {
		t.Fatalf("Expected 1 attendant after reset, got %d", len(got))
	}
	if got[0].ID != "att-001" {
		t.Errorf("Expected att-001, got %s", got[0].ID)
	}
}

func TestScenarios_StreakRunnerState(t *testing.T) {
	// GIVEN: Ten consecutive positive days ending yesterday
	api := newTestAPI(t)
	loadScenario(t, api, "streak-runner")

	// WHEN: Reading the gamification view
	rec := api.do(t, http.MethodGet, "/api/attendants/att-010/gamification", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	view := decodeBody[gamification.StateView](t, rec)

	// THEN: The streak is alive and the 7-day milestones have fired
	if view.CurrentStreak != 10 {
		t.Errorf("Expected streak 10, got %d", view.CurrentStreak)
	}
	// 7x50 + 3x100 base, +50 seven-day tier, +25 first_evaluation,
	// +30 perfect_score, +75 streak_7, +50 points_500.
	if view.TotalPoints != 880 {
		t.Errorf("Expected 880 total points, got %d", view.TotalPoints)
	}
	ids := make(map[string]bool, len(view.Achievements))
	for _, g := range view.Achievements {
		ids[string(g.AchievementID)] = true
	}
	if !ids["streak_7"] {
		t.Errorf("Expected streak_7 granted, have %v", ids)
	}
}

func TestScenarios_RoughPatchState(t *testing.T) {
	// GIVEN: A broken streak with mostly low scores
	api := newTestAPI(t)
	loadScenario(t, api, "rough-patch")

	rec := api.do(t, http.MethodGet, "/api/attendants/att-020/gamification", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	view := decodeBody[gamification.StateView](t, rec)

	if view.CurrentStreak != 0 {
		t.Errorf("Expected broken streak, got %d", view.CurrentStreak)
	}
	if view.BestStreak != 2 {
		t.Errorf("Expected best streak 2, got %d", view.BestStreak)
	}
}
