package recurrence

import (
	"fmt"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

// MaxOccurrences caps how many instances a single rule may expand to.
// A degenerate rule (tiny interval, far-off end date) truncates at the cap
// instead of failing.
const MaxOccurrences = 365

// Rule describes how an anchor event repeats: a calendar unit, a step
// multiplier, and an inclusive end date.
type Rule struct {
	Type     model.RecurrenceType
	Interval int       // step multiplier, >= 1 when recurring
	End      time.Time // inclusive; zero only when Type is none
}

// None reports whether the rule describes a non-repeating event.
func (r Rule) None() bool {
	return r.Type == "" || r.Type == model.RecurrenceNone
}

// Validate checks the rule against the event's start time.
func (r Rule) Validate(start time.Time) error {
	switch r.Type {
	case "", model.RecurrenceNone:
		return nil
	case model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly, model.RecurrenceYearly:
	default:
		return fmt.Errorf("unknown recurrence type %q", r.Type)
	}

	if r.Interval < 1 {
		return fmt.Errorf("recurrence interval must be at least 1, got %d", r.Interval)
	}
	if r.End.IsZero() {
		return fmt.Errorf("recurring rule requires an end date")
	}
	if inclusiveEnd(r.End).Before(start) {
		return fmt.Errorf("recurrence end %s is before start %s",
			r.End.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return nil
}

// Describe returns a human-readable summary of the rule.
func (r Rule) Describe() string {
	if r.None() {
		return ""
	}

	var prefix string
	switch r.Type {
	case model.RecurrenceDaily:
		prefix = "Repeats daily"
		if r.Interval > 1 {
			prefix = fmt.Sprintf("Repeats every %d days", r.Interval)
		}
	case model.RecurrenceWeekly:
		prefix = "Repeats weekly"
		if r.Interval == 2 {
			prefix = "Repeats every 2 weeks"
		} else if r.Interval > 2 {
			prefix = fmt.Sprintf("Repeats every %d weeks", r.Interval)
		}
	case model.RecurrenceMonthly:
		prefix = "Repeats monthly"
		if r.Interval > 1 {
			prefix = fmt.Sprintf("Repeats every %d months", r.Interval)
		}
	case model.RecurrenceYearly:
		prefix = "Repeats yearly"
		if r.Interval > 1 {
			prefix = fmt.Sprintf("Repeats every %d years", r.Interval)
		}
	default:
		return ""
	}

	return prefix + " until " + r.End.Format("Jan 2, 2006")
}
