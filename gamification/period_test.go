package gamification_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/scoring-engine/gamification"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// PERIOD BOUNDARY TESTS
// =============================================================================

func TestPeriodContaining_Weekly_MondayStart(t *testing.T) {
	// 2025-01-15 is a Wednesday; its ISO week runs Mon 13th to Sun 19th.
	p, err := gamification.PeriodContaining(gamification.PeriodWeekly, date(2025, time.January, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2025, time.January, 13)) {
		t.Errorf("week start = %v, want 2025-01-13", p.Start)
	}
	if !p.End.Equal(date(2025, time.January, 19)) {
		t.Errorf("week end = %v, want 2025-01-19", p.End)
	}
	if p.Label() != "2025-W03" {
		t.Errorf("label = %q, want 2025-W03", p.Label())
	}
}

func TestPeriodContaining_Weekly_SundayBelongsToPrecedingWeek(t *testing.T) {
	// A Sunday must land in the week starting the previous Monday, not
	// start a new one.
	p, err := gamification.PeriodContaining(gamification.PeriodWeekly, date(2025, time.January, 19))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2025, time.January, 13)) {
		t.Errorf("week start = %v, want 2025-01-13", p.Start)
	}
}

func TestPeriodContaining_Monthly(t *testing.T) {
	p, err := gamification.PeriodContaining(gamification.PeriodMonthly, date(2024, time.February, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2024, time.February, 1)) || !p.End.Equal(date(2024, time.February, 29)) {
		t.Errorf("february 2024 = [%v, %v], want leap-year month bounds", p.Start, p.End)
	}
	if p.Label() != "2024-02" {
		t.Errorf("label = %q, want 2024-02", p.Label())
	}
}

func TestPeriodContaining_Quarterly(t *testing.T) {
	p, err := gamification.PeriodContaining(gamification.PeriodQuarterly, date(2025, time.May, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2025, time.April, 1)) || !p.End.Equal(date(2025, time.June, 30)) {
		t.Errorf("Q2 2025 = [%v, %v]", p.Start, p.End)
	}
	if p.Label() != "2025-Q2" {
		t.Errorf("label = %q, want 2025-Q2", p.Label())
	}
}

func TestPeriodContaining_Annual(t *testing.T) {
	p, err := gamification.PeriodContaining(gamification.PeriodAnnual, date(2025, time.July, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Start.Equal(date(2025, time.January, 1)) || !p.End.Equal(date(2025, time.December, 31)) {
		t.Errorf("year 2025 = [%v, %v]", p.Start, p.End)
	}
	if p.Label() != "2025" {
		t.Errorf("label = %q, want 2025", p.Label())
	}
}

func TestPeriodContaining_CustomRejected(t *testing.T) {
	_, err := gamification.PeriodContaining(gamification.PeriodCustom, date(2025, time.July, 4))
	if !errors.Is(err, gamification.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

// =============================================================================
// SPEC PARSING TESTS
// =============================================================================

func TestParsePeriodSpec_LabelsRoundTrip(t *testing.T) {
	for _, spec := range []string{"2025", "2025-01", "2025-Q1", "2025-W03"} {
		p, err := gamification.ParsePeriodSpec(spec)
		if err != nil {
			t.Fatalf("ParsePeriodSpec(%q): %v", spec, err)
		}
		if p.Label() != spec {
			t.Errorf("label round-trip: parsed %q, Label() = %q", spec, p.Label())
		}
	}
}

func TestParsePeriodSpec_CustomRange(t *testing.T) {
	p, err := gamification.ParsePeriodSpec("2025-01-01..2025-02-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Type != gamification.PeriodCustom {
		t.Errorf("type = %v, want custom", p.Type)
	}
	if !p.Start.Equal(date(2025, time.January, 1)) || !p.End.Equal(date(2025, time.February, 15)) {
		t.Errorf("bounds = [%v, %v]", p.Start, p.End)
	}
}

func TestParsePeriodSpec_Invalid(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"2025-13",           // no month 13
		"2025-Q5",           // no fifth quarter
		"2025-W60",          // no week 60
		"2025-02-15..2025-01-01", // end before start
		"20250101",
	}
	for _, spec := range cases {
		if _, err := gamification.ParsePeriodSpec(spec); !errors.Is(err, gamification.ErrInvalidPeriod) {
			t.Errorf("ParsePeriodSpec(%q): expected ErrInvalidPeriod, got %v", spec, err)
		}
	}
}

func TestParsePeriodSpec_ISOWeekEdge(t *testing.T) {
	// 2021-W53 exists (2021-01-04 is in week 1, but week 53 of 2020 spills
	// into January 2021); 2021 itself has 52 weeks.
	if _, err := gamification.ParsePeriodSpec("2021-W53"); err == nil {
		t.Error("2021 has no week 53, expected error")
	}
	p, err := gamification.ParsePeriodSpec("2020-W53")
	if err != nil {
		t.Fatalf("2020-W53 should parse: %v", err)
	}
	if !p.Start.Equal(date(2020, time.December, 28)) {
		t.Errorf("2020-W53 starts %v, want 2020-12-28", p.Start)
	}
}

// =============================================================================
// MISC PERIOD TESTS
// =============================================================================

func TestPeriod_Contains(t *testing.T) {
	p, _ := gamification.ParsePeriodSpec("2025-01")
	if !p.Contains(time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC)) {
		t.Error("last day of month should be contained")
	}
	if p.Contains(date(2025, time.February, 1)) {
		t.Error("next month should not be contained")
	}
}

func TestPeriod_EndOfDay(t *testing.T) {
	p, _ := gamification.ParsePeriodSpec("2025-01")
	end := p.EndOfDay()
	if end.Before(time.Date(2025, time.January, 31, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("EndOfDay = %v, want final instant of Jan 31", end)
	}
	if !end.Before(date(2025, time.February, 1)) {
		t.Errorf("EndOfDay = %v, must precede Feb 1", end)
	}
}
