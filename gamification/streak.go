/*
streak.go - Consecutive-day streak calculation (pure functions)

PURPOSE:
  Derives the current consecutive-day streak of positive evaluations
  (score >= 4) for an entity from its evaluation history.

WHY A FULL RECOMPUTE?
  The streak is intentionally recomputed from history on every evaluation
  rather than incrementally maintained. An incremental counter silently
  corrupts under out-of-order event arrival and under replay; a recompute
  over a bounded look-back window stays correct in both cases.

STREAK RULES:
  - Only evaluations with score >= 4 qualify.
  - The streak counts distinct calendar days (UTC); several qualifying
    evaluations on the same day extend the run by at most one day.
  - A run breaks at the first gap of more than one day.
  - If the most recent qualifying day is more than one day before the
    reference date, the streak is 0: a stale streak is not kept alive.
  - A non-positive evaluation on a new day breaks the run outright: the
    entity's most recent day is no longer positive, so the count restarts
    at 0 (StreakAfter). Another positive on that same day keeps the day
    qualifying.
  - Only evaluations within the look-back window are considered.

BONUS TIERS:
  7d -> 50, 14d -> 100, 30d -> 250, 60d -> 500, 90d -> 1000.
  Each tier is paid at most once per entity; see Engine.
*/
package gamification

import (
	"sort"
	"time"
)

// DefaultStreakWindowDays bounds how far back the streak recompute scans.
const DefaultStreakWindowDays = 90

// bonusTier pairs a streak-day threshold with its one-time bonus.
type bonusTier struct {
	Days  int
	Bonus int
}

// bonusTiers is ordered ascending by threshold.
var bonusTiers = []bonusTier{
	{Days: 7, Bonus: 50},
	{Days: 14, Bonus: 100},
	{Days: 30, Bonus: 250},
	{Days: 60, Bonus: 500},
	{Days: 90, Bonus: 1000},
}

// CurrentStreak computes the consecutive-day streak of positive evaluations
// as of a neutral reference time, scanning at most windowDays back.
// The history slice may be in any order and may contain non-qualifying
// evaluations; both are handled here.
func CurrentStreak(history []Evaluation, asOf time.Time, windowDays int) int {
	days := qualifyingDays(history, asOf, windowDays)
	if len(days) == 0 {
		return 0
	}

	// Stale streak: most recent qualifying day must be within one day of
	// the reference date.
	if DaysApart(days[0], DateOf(asOf)) > 1 {
		return 0
	}

	run := 1
	for i := 1; i < len(days); i++ {
		if DaysApart(days[i], days[i-1]) > 1 {
			break
		}
		run++
	}
	return run
}

// StreakAfter computes the streak immediately after folding the given
// evaluation. A positive trigger extends or starts the run like any other
// qualifying evaluation. A non-positive trigger on a day with no qualifying
// evaluation breaks the run: the most recent day is no longer a positive
// one, so the consecutive count restarts at 0.
func StreakAfter(history []Evaluation, trigger Evaluation, windowDays int) int {
	if !trigger.Positive() {
		days := qualifyingDays(history, trigger.OccurredAt, windowDays)
		if len(days) == 0 || DateOf(trigger.OccurredAt).After(days[0]) {
			return 0
		}
	}
	return CurrentStreak(history, trigger.OccurredAt, windowDays)
}

// qualifyingDays returns the distinct positive-evaluation days within the
// window ending at asOf, newest first.
func qualifyingDays(history []Evaluation, asOf time.Time, windowDays int) []time.Time {
	if windowDays <= 0 {
		windowDays = DefaultStreakWindowDays
	}
	ref := DateOf(asOf)
	cutoff := ref.AddDate(0, 0, -windowDays)

	seen := make(map[time.Time]bool)
	for _, ev := range history {
		if !ev.Positive() {
			continue
		}
		day := DateOf(ev.OccurredAt)
		if day.Before(cutoff) || day.After(ref) {
			continue
		}
		seen[day] = true
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// StreakBonus returns the bonus for the highest tier met by the given streak
// length, or 0 if no tier is met.
func StreakBonus(streakDays int) int {
	bonus := 0
	for _, t := range bonusTiers {
		if streakDays < t.Days {
			break
		}
		bonus = t.Bonus
	}
	return bonus
}

// BonusAbovePaid returns the total bonus for all tiers met by streakDays
// that lie strictly above the already-paid tier, together with the new
// highest paid tier. Paying per tier exactly once keeps replay deterministic
// and prevents the same bonus from being re-awarded while a streak persists.
func BonusAbovePaid(paidTier, streakDays int) (bonus, newPaidTier int) {
	newPaidTier = paidTier
	for _, t := range bonusTiers {
		if streakDays < t.Days {
			break
		}
		if t.Days > paidTier {
			bonus += t.Bonus
			newPaidTier = t.Days
		}
	}
	return bonus, newPaidTier
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// DateOf truncates a timestamp to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysApart returns the absolute number of calendar days between two dates.
func DaysApart(a, b time.Time) int {
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
