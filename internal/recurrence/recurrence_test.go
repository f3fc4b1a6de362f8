package recurrence

import (
	"testing"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestExpandNone(t *testing.T) {
	start := date(2025, 6, 10, 9, 0)

	for _, typ := range []model.RecurrenceType{"", model.RecurrenceNone} {
		got, err := Expand(start, Rule{Type: typ})
		if err != nil {
			t.Fatalf("Expand(none) error: %v", err)
		}
		if len(got) != 1 || !got[0].Equal(start) {
			t.Errorf("Expand(none) = %v, want [%v]", got, start)
		}
	}
}

func TestExpandDaily(t *testing.T) {
	start := date(2025, 6, 1, 8, 30)
	rule := Rule{Type: model.RecurrenceDaily, Interval: 1, End: date(2025, 6, 5, 0, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d occurrences, want 5", len(got))
	}
	for i, occ := range got {
		want := start.AddDate(0, 0, i)
		if !occ.Equal(want) {
			t.Errorf("occurrence[%d] = %v, want %v", i, occ, want)
		}
	}
}

func TestExpandWeeklyInterval(t *testing.T) {
	start := date(2025, 1, 6, 18, 0) // Monday
	rule := Rule{Type: model.RecurrenceWeekly, Interval: 2, End: date(2025, 2, 17, 0, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	want := []time.Time{
		date(2025, 1, 6, 18, 0),
		date(2025, 1, 20, 18, 0),
		date(2025, 2, 3, 18, 0),
		date(2025, 2, 17, 18, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// Month-end starts clamp to the last day of shorter months and snap back to
// the anchor's day when the month allows it.
func TestExpandMonthlyClampsMonthEnd(t *testing.T) {
	start := date(2025, 1, 31, 9, 0)
	rule := Rule{Type: model.RecurrenceMonthly, Interval: 1, End: date(2025, 4, 30, 0, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	want := []time.Time{
		date(2025, 1, 31, 9, 0),
		date(2025, 2, 28, 9, 0),
		date(2025, 3, 31, 9, 0),
		date(2025, 4, 30, 9, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExpandMonthlyLeapFebruary(t *testing.T) {
	start := date(2023, 12, 31, 12, 0)
	rule := Rule{Type: model.RecurrenceMonthly, Interval: 2, End: date(2024, 3, 1, 0, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	// Dec 31 + 2 months lands in leap-year February.
	want := []time.Time{date(2023, 12, 31, 12, 0), date(2024, 2, 29, 12, 0)}
	if len(got) != 2 || !got[1].Equal(want[1]) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExpandYearlyFeb29(t *testing.T) {
	start := date(2024, 2, 29, 7, 0)
	rule := Rule{Type: model.RecurrenceYearly, Interval: 1, End: date(2028, 12, 31, 0, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	want := []time.Time{
		date(2024, 2, 29, 7, 0),
		date(2025, 2, 28, 7, 0),
		date(2026, 2, 28, 7, 0),
		date(2027, 2, 28, 7, 0),
		date(2028, 2, 29, 7, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestExpandStrictlyIncreasingAndBounded(t *testing.T) {
	start := date(2025, 3, 3, 10, 15)
	rules := []Rule{
		{Type: model.RecurrenceDaily, Interval: 3, End: date(2025, 4, 1, 0, 0)},
		{Type: model.RecurrenceWeekly, Interval: 1, End: date(2025, 5, 1, 0, 0)},
		{Type: model.RecurrenceMonthly, Interval: 1, End: date(2026, 3, 1, 0, 0)},
		{Type: model.RecurrenceYearly, Interval: 2, End: date(2031, 1, 1, 0, 0)},
	}

	for _, rule := range rules {
		got, err := Expand(start, rule)
		if err != nil {
			t.Fatalf("Expand(%s) error: %v", rule.Type, err)
		}
		if len(got) == 0 || !got[0].Equal(start) {
			t.Fatalf("Expand(%s) does not start at start: %v", rule.Type, got)
		}
		limit := inclusiveEnd(rule.End)
		for i := 1; i < len(got); i++ {
			if !got[i].After(got[i-1]) {
				t.Errorf("Expand(%s) not strictly increasing at %d: %v", rule.Type, i, got)
			}
		}
		last := got[len(got)-1]
		if last.After(limit) {
			t.Errorf("Expand(%s) last occurrence %v after end %v", rule.Type, last, limit)
		}
		// One more step must exceed the end, otherwise the sequence stopped early.
		if next := advance(start, rule.Type, rule.Interval*len(got)); !next.After(limit) {
			t.Errorf("Expand(%s) stopped early: next %v still within %v", rule.Type, next, limit)
		}
	}
}

func TestExpandCapTruncates(t *testing.T) {
	start := date(2025, 1, 1, 6, 0)
	rule := Rule{Type: model.RecurrenceDaily, Interval: 1, End: date(2030, 1, 1, 0, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(got) != MaxOccurrences {
		t.Errorf("got %d occurrences, want cap %d", len(got), MaxOccurrences)
	}
}

func TestExpandDeterministic(t *testing.T) {
	start := date(2025, 1, 31, 9, 0)
	rule := Rule{Type: model.RecurrenceMonthly, Interval: 1, End: date(2025, 12, 31, 0, 0)}

	first, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	second, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Errorf("occurrence[%d] differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestExpandEndWithExplicitTime(t *testing.T) {
	start := date(2025, 6, 1, 9, 0)
	// End carries a clock before the occurrence time, so Jun 3 09:00 is out.
	rule := Rule{Type: model.RecurrenceDaily, Interval: 1, End: date(2025, 6, 3, 8, 0)}

	got, err := Expand(start, rule)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d occurrences, want 2: %v", len(got), got)
	}
}

func TestValidateErrors(t *testing.T) {
	start := date(2025, 6, 1, 9, 0)
	tests := []struct {
		name string
		rule Rule
	}{
		{"unknown type", Rule{Type: "hourly", Interval: 1, End: date(2025, 7, 1, 0, 0)}},
		{"zero interval", Rule{Type: model.RecurrenceDaily, Interval: 0, End: date(2025, 7, 1, 0, 0)}},
		{"negative interval", Rule{Type: model.RecurrenceWeekly, Interval: -2, End: date(2025, 7, 1, 0, 0)}},
		{"missing end", Rule{Type: model.RecurrenceMonthly, Interval: 1}},
		{"end before start", Rule{Type: model.RecurrenceDaily, Interval: 1, End: date(2025, 5, 1, 0, 0)}},
	}

	for _, tt := range tests {
		if _, err := Expand(start, tt.rule); err == nil {
			t.Errorf("%s: Expand should error", tt.name)
		}
	}
}

func TestValidateNoneIgnoresRest(t *testing.T) {
	// A non-recurring rule needs no interval or end date.
	if err := (Rule{Type: model.RecurrenceNone}).Validate(date(2025, 6, 1, 9, 0)); err != nil {
		t.Errorf("Validate(none) error: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	end := date(2026, 3, 1, 0, 0)
	tests := []struct {
		rule Rule
		want string
	}{
		{Rule{Type: model.RecurrenceNone}, ""},
		{Rule{Type: model.RecurrenceDaily, Interval: 1, End: end}, "Repeats daily until Mar 1, 2026"},
		{Rule{Type: model.RecurrenceDaily, Interval: 3, End: end}, "Repeats every 3 days until Mar 1, 2026"},
		{Rule{Type: model.RecurrenceWeekly, Interval: 1, End: end}, "Repeats weekly until Mar 1, 2026"},
		{Rule{Type: model.RecurrenceWeekly, Interval: 2, End: end}, "Repeats every 2 weeks until Mar 1, 2026"},
		{Rule{Type: model.RecurrenceMonthly, Interval: 1, End: end}, "Repeats monthly until Mar 1, 2026"},
		{Rule{Type: model.RecurrenceYearly, Interval: 1, End: end}, "Repeats yearly until Mar 1, 2026"},
	}

	for _, tt := range tests {
		if got := tt.rule.Describe(); got != tt.want {
			t.Errorf("Describe(%s/%d) = %q, want %q", tt.rule.Type, tt.rule.Interval, got, tt.want)
		}
	}
}
