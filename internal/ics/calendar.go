// Package ics serializes a family's care schedule as an iCalendar feed.
// Every record is its own VEVENT so date-shifted instances stay accurate;
// series anchors carry their recurrence rule as readable text instead of an
// RRULE, since the children are already materialized.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/pawkeep/internal/model"
	"github.com/dukerupert/pawkeep/internal/recurrence"
)

const eventDuration = time.Hour

// Calendar builds a serialized iCalendar document for the given events.
// Pet names prefix the event summaries.
func Calendar(name string, pets []model.Pet, events []model.Event) string {
	petNames := make(map[int64]string, len(pets))
	for _, p := range pets {
		petNames[p.ID] = p.Name
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//pawkeep//feed//EN")
	cal.SetXWRCalName(name)

	now := time.Now().UTC()
	for i := range events {
		addEvent(cal, &events[i], petNames, now)
	}
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, e *model.Event, petNames map[int64]string, stamp time.Time) {
	ve := cal.AddEvent(fmt.Sprintf("event-%d@pawkeep", e.ID))
	ve.SetDtStampTime(stamp)
	ve.SetStartAt(e.StartsAt.UTC())
	ve.SetEndAt(e.StartsAt.UTC().Add(eventDuration))

	summary := e.Title
	if petName, ok := petNames[e.PetID]; ok {
		summary = petName + ": " + e.Title
	}
	ve.SetSummary(summary)

	if e.Location != "" {
		ve.SetLocation(e.Location)
	}
	if desc := describe(e); desc != "" {
		ve.SetDescription(desc)
	}
	ve.SetProperty(ical.ComponentPropertyCategories, e.Category.Label())
}

// describe joins the event's own description with the recurrence summary
// on anchors.
func describe(e *model.Event) string {
	desc := e.Description
	if !e.IsAnchor() {
		return desc
	}

	rule := recurrence.Rule{Type: e.Recurrence, Interval: e.Interval}
	if e.RecurrenceEnd != nil {
		rule.End = *e.RecurrenceEnd
	}
	text := rule.Describe()
	if text == "" {
		return desc
	}
	if desc == "" {
		return text
	}
	return desc + "\n" + text
}
