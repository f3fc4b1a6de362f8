// Package reminder decides when a reminder event is due for notification
// and drives the periodic notifier that delivers it.
package reminder

import (
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

// DefaultSlice is the width of the due window below the lead time.
const DefaultSlice = time.Hour

// Due reports whether e is inside its notification window at now: the event
// is an uncompleted reminder and starts within (lead−slice, lead] hours.
// With the default one-hour slice a 24-hour lead fires while the event is
// between 23 and 24 hours away. The lower bound never drops below zero, so
// a lead shorter than the slice still yields a window that closes at the
// event itself.
func Due(e model.Event, now time.Time, slice time.Duration) bool {
	if !e.IsReminder || e.ReminderCompleted || e.ReminderLeadHours <= 0 {
		return false
	}
	if slice <= 0 {
		slice = DefaultSlice
	}

	lead := float64(e.ReminderLeadHours)
	lower := lead - slice.Hours()
	if lower < 0 {
		lower = 0
	}

	h := e.StartsAt.Sub(now).Hours()
	return h > lower && h <= lead
}

// DueFilter returns the candidates that are due at now.
func DueFilter(candidates []model.Event, now time.Time, slice time.Duration) []model.Event {
	var due []model.Event
	for _, e := range candidates {
		if Due(e, now, slice) {
			due = append(due, e)
		}
	}
	return due
}
