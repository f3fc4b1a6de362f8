package series

import (
	"sort"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

// Series is the read-side grouping of one anchor and its generated children.
// It is derived on every read and never persisted.
type Series struct {
	Anchor   model.Event
	Children []model.Event
}

// Members returns the anchor and children sorted ascending by timestamp.
func (s *Series) Members() []model.Event {
	members := make([]model.Event, 0, 1+len(s.Children))
	members = append(members, s.Anchor)
	members = append(members, s.Children...)
	sort.Slice(members, func(i, j int) bool { return members[i].StartsAt.Before(members[j].StartsAt) })
	return members
}

// MemberIDs returns the anchor id followed by the child ids in timestamp
// order.
func (s *Series) MemberIDs() []int64 {
	ids := make([]int64, 0, 1+len(s.Children))
	for _, m := range s.Members() {
		ids = append(ids, m.ID)
	}
	return ids
}

// Group is one display entry in a pet's schedule: either a recurring series
// or a single standalone record. Exactly one of the two fields is set.
type Group struct {
	Series *Series
	Single *model.Event
}

// Schedule is a pet's grouped care schedule split into upcoming and past.
type Schedule struct {
	Upcoming []Group
	Past     []Group
}

// GroupEvents partitions a flat record list into series groups and
// standalone entries. A child whose anchor is missing from the list is kept
// visible as a standalone entry rather than dropped.
func GroupEvents(events []model.Event) []Group {
	children := make(map[int64][]model.Event)
	for _, e := range events {
		if e.ParentEventID != nil {
			children[*e.ParentEventID] = append(children[*e.ParentEventID], e)
		}
	}

	anchors := make(map[int64]bool)
	var groups []Group
	for _, e := range events {
		if e.ParentEventID != nil {
			continue
		}
		if e.IsAnchor() {
			anchors[e.ID] = true
			s := &Series{Anchor: e, Children: sortedByStart(children[e.ID])}
			groups = append(groups, Group{Series: s})
			continue
		}
		single := e
		groups = append(groups, Group{Single: &single})
	}

	// Orphans: children pointing at an anchor that is not in the list.
	for parentID, orphaned := range children {
		if anchors[parentID] {
			continue
		}
		for _, e := range orphaned {
			single := e
			groups = append(groups, Group{Single: &single})
		}
	}

	return groups
}

// Partition splits groups into upcoming and past relative to now. A group is
// upcoming when any member starts on now's calendar day or later. Members
// within a series are already ascending; groups sort ascending by their
// earliest relevant member — the next occurrence for upcoming groups, the
// first occurrence for past ones.
func Partition(groups []Group, now time.Time) Schedule {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var schedule Schedule
	for _, g := range groups {
		if g.upcoming(today) {
			schedule.Upcoming = append(schedule.Upcoming, g)
		} else {
			schedule.Past = append(schedule.Past, g)
		}
	}

	sort.Slice(schedule.Upcoming, func(i, j int) bool {
		return schedule.Upcoming[i].sortKey(today).Before(schedule.Upcoming[j].sortKey(today))
	})
	sort.Slice(schedule.Past, func(i, j int) bool {
		return schedule.Past[i].sortKey(today).Before(schedule.Past[j].sortKey(today))
	})
	return schedule
}

func (g Group) upcoming(today time.Time) bool {
	for _, m := range g.members() {
		if !m.StartsAt.Before(today) {
			return true
		}
	}
	return false
}

// sortKey returns the group's earliest member on or after today, falling
// back to its earliest member overall.
func (g Group) sortKey(today time.Time) time.Time {
	members := g.members()
	for _, m := range members {
		if !m.StartsAt.Before(today) {
			return m.StartsAt
		}
	}
	return members[0].StartsAt
}

func (g Group) members() []model.Event {
	if g.Series != nil {
		return g.Series.Members()
	}
	return []model.Event{*g.Single}
}

func sortedByStart(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}
