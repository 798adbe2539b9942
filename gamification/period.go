/*
period.go - Calendar periods for metric aggregation

PURPOSE:
  Performance metrics are always computed for a period, never at a bare point
  in time. Periods are calendar-aligned (ISO week, month, quarter, year) or
  caller-supplied custom ranges.

BOUNDARY RULES:
  - Weekly:    ISO-8601 calendar week, Monday first day
  - Monthly:   calendar month
  - Quarterly: 3-month blocks aligned to the calendar year
  - Annual:    calendar year
  - Custom:    caller-supplied [start, end]

  Start and End are dates (UTC midnight); both bounds are inclusive at day
  granularity.

LABELS:
  Periods round-trip through compact labels used by the API and as part of
  the metric storage key:
    "2025"                    annual
    "2025-01"                 monthly
    "2025-Q1"                 quarterly
    "2025-W03"                weekly
    "2025-01-01..2025-02-15"  custom
*/
package gamification

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PeriodType defines how period boundaries are calculated.
type PeriodType string

const (
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"
	PeriodCustom    PeriodType = "custom"
)

// CalendarPeriodTypes lists the calendar-aligned period kinds, coarsest last.
var CalendarPeriodTypes = []PeriodType{PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnual}

// Period is an inclusive [Start, End] date range of a given kind.
type Period struct {
	Type  PeriodType
	Start time.Time
	End   time.Time
}

// Contains returns true if the timestamp falls within the period.
func (p Period) Contains(t time.Time) bool {
	day := DateOf(t)
	return !day.Before(p.Start) && !day.After(p.End)
}

// EndOfDay returns the last instant of the period's final day, for
// timestamp-level range queries.
func (p Period) EndOfDay() time.Time {
	return p.End.Add(24*time.Hour - time.Nanosecond)
}

// Valid reports whether the period is well-formed.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

// Label returns the compact spec label for the period.
func (p Period) Label() string {
	switch p.Type {
	case PeriodWeekly:
		year, week := p.Start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonthly:
		return p.Start.Format("2006-01")
	case PeriodQuarterly:
		return fmt.Sprintf("%d-Q%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	case PeriodAnnual:
		return strconv.Itoa(p.Start.Year())
	default:
		return p.Start.Format("2006-01-02") + ".." + p.End.Format("2006-01-02")
	}
}

func (p Period) String() string { return string(p.Type) + " " + p.Label() }

// =============================================================================
// PERIOD CALCULATION - Which period contains a date
// =============================================================================

// PeriodContaining returns the calendar period of the given kind containing
// the timestamp. PeriodCustom has no calendar alignment and is rejected.
func PeriodContaining(kind PeriodType, at time.Time) (Period, error) {
	day := DateOf(at)
	switch kind {
	case PeriodWeekly:
		// Walk back to Monday.
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Period{Type: PeriodWeekly, Start: start, End: start.AddDate(0, 0, 6)}, nil

	case PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: PeriodMonthly, Start: start, End: start.AddDate(0, 1, -1)}, nil

	case PeriodQuarterly:
		q := (int(day.Month()) - 1) / 3
		start := time.Date(day.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: PeriodQuarterly, Start: start, End: start.AddDate(0, 3, -1)}, nil

	case PeriodAnnual:
		start := time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Type: PeriodAnnual, Start: start, End: start.AddDate(1, 0, -1)}, nil

	default:
		return Period{}, fmt.Errorf("%w: no calendar alignment for %q", ErrInvalidPeriod, kind)
	}
}

// =============================================================================
// PERIOD SPEC PARSING
// =============================================================================

var (
	annualSpec    = regexp.MustCompile(`^(\d{4})$`)
	monthlySpec   = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	quarterlySpec = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	weeklySpec    = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
)

// ParsePeriodSpec parses a compact period label into a Period.
// Custom ranges use "YYYY-MM-DD..YYYY-MM-DD".
func ParsePeriodSpec(spec string) (Period, error) {
	spec = strings.TrimSpace(spec)

	if m := annualSpec.FindStringSubmatch(spec); m != nil {
		year, _ := strconv.Atoi(m[1])
		return PeriodContaining(PeriodAnnual, time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
	}

	if m := monthlySpec.FindStringSubmatch(spec); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return Period{}, fmt.Errorf("%w: month %d in %q", ErrInvalidPeriod, month, spec)
		}
		return PeriodContaining(PeriodMonthly, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	}

	if m := quarterlySpec.FindStringSubmatch(spec); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return PeriodContaining(PeriodQuarterly, time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC))
	}

	if m := weeklySpec.FindStringSubmatch(spec); m != nil {
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		start, err := isoWeekStart(year, week)
		if err != nil {
			return Period{}, err
		}
		return Period{Type: PeriodWeekly, Start: start, End: start.AddDate(0, 0, 6)}, nil
	}

	if from, to, ok := strings.Cut(spec, ".."); ok {
		start, err1 := time.Parse("2006-01-02", from)
		end, err2 := time.Parse("2006-01-02", to)
		if err1 != nil || err2 != nil {
			return Period{}, fmt.Errorf("%w: bad custom range %q", ErrInvalidPeriod, spec)
		}
		return NewCustomPeriod(start, end)
	}

	return Period{}, fmt.Errorf("%w: unrecognized spec %q", ErrInvalidPeriod, spec)
}

// NewCustomPeriod builds an ad-hoc period from explicit bounds.
func NewCustomPeriod(start, end time.Time) (Period, error) {
	p := Period{Type: PeriodCustom, Start: DateOf(start), End: DateOf(end)}
	if !p.Valid() {
		return Period{}, fmt.Errorf("%w: end before start", ErrInvalidPeriod)
	}
	return p, nil
}

// isoWeekStart returns the Monday of the given ISO week.
// January 4 is always in ISO week 1 of its year.
func isoWeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("%w: week %d", ErrInvalidPeriod, week)
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	week1Monday := jan4.AddDate(0, 0, -offset)
	start := week1Monday.AddDate(0, 0, (week-1)*7)
	if y, w := start.ISOWeek(); y != year || w != week {
		return time.Time{}, fmt.Errorf("%w: year %d has no week %d", ErrInvalidPeriod, year, week)
	}
	return start, nil
}
