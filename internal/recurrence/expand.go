package recurrence

import (
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

// Expand generates the occurrence timestamps for an event starting at start
// under rule r. The sequence begins with start itself and advances by one
// rule unit times Interval per step, never past the inclusive end date, and
// truncates at MaxOccurrences.
//
// Month and year steps target the start's day-of-month, clamped to the last
// day of shorter months: a Jan 31 monthly rule lands on Feb 28 (29 in leap
// years), Mar 31, Apr 30. Each step is computed from the start rather than
// the previous occurrence, so clamping never drifts the day downward.
//
// Expand is pure: same inputs, same output, no side effects.
func Expand(start time.Time, r Rule) ([]time.Time, error) {
	if err := r.Validate(start); err != nil {
		return nil, err
	}
	if r.None() {
		return []time.Time{start}, nil
	}

	limit := inclusiveEnd(r.End)
	occurrences := []time.Time{start}

	for step := 1; len(occurrences) < MaxOccurrences; step++ {
		next := advance(start, r.Type, r.Interval*step)
		if next.After(limit) {
			break
		}
		// Strictly increasing, deduplicated output.
		if !next.After(occurrences[len(occurrences)-1]) {
			continue
		}
		occurrences = append(occurrences, next)
	}

	return occurrences, nil
}

// advance returns start moved forward by units of the given recurrence type.
func advance(start time.Time, typ model.RecurrenceType, units int) time.Time {
	switch typ {
	case model.RecurrenceDaily:
		return start.AddDate(0, 0, units)
	case model.RecurrenceWeekly:
		return start.AddDate(0, 0, 7*units)
	case model.RecurrenceMonthly:
		return addMonthsClamped(start, units)
	case model.RecurrenceYearly:
		return addYearsClamped(start, units)
	}
	return time.Time{}
}

// addMonthsClamped advances by whole calendar months, landing on t's
// day-of-month or the last day of the target month when it is shorter.
// time.AddDate is avoided here because it rolls Jan 31 + 1 month into March.
func addMonthsClamped(t time.Time, months int) time.Time {
	day := t.Day()
	// Pin to day 1 so month arithmetic can't overflow into the next month.
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// addYearsClamped advances by whole years; Feb 29 starts land on Feb 28 in
// non-leap years.
func addYearsClamped(t time.Time, years int) time.Time {
	day := t.Day()
	year := t.Year() + years
	if last := daysInMonth(year, t.Month()); day > last {
		day = last
	}
	return time.Date(year, t.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// inclusiveEnd widens a date-only end bound (midnight clock) to the end of
// that day, so an end date of Apr 30 admits an occurrence at Apr 30 09:00.
// An end carrying an explicit time is honored as-is.
func inclusiveEnd(end time.Time) time.Time {
	h, m, s := end.Clock()
	if h == 0 && m == 0 && s == 0 && end.Nanosecond() == 0 {
		return end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return end
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
