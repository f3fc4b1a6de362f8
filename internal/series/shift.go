package series

import (
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

// Shift is the delta between an occurrence's old and new timestamp, split
// into whole calendar days plus a clock-time remainder. Applying it moves a
// timestamp by days first, so an occurrence shifted across a DST change
// keeps its wall-clock time the way the edited one did.
type Shift struct {
	Days      int
	Remainder time.Duration
}

// ComputeShift derives the shift that turns from into to. Both components
// are signed, so moving an occurrence earlier works the same as moving it
// later.
func ComputeShift(from, to time.Time) Shift {
	days := int(startOfDay(to).Sub(startOfDay(from)).Round(24*time.Hour) / (24 * time.Hour))
	return Shift{Days: days, Remainder: clockTime(to) - clockTime(from)}
}

// Apply moves t by the shift.
func (s Shift) Apply(t time.Time) time.Time {
	return t.AddDate(0, 0, s.Days).Add(s.Remainder)
}

// IsZero reports whether applying the shift would leave timestamps unchanged.
func (s Shift) IsZero() bool {
	return s.Days == 0 && s.Remainder == 0
}

// ShiftFrom moves the edited record to newStart and every later member of
// its series by the same delta. Membership is decided on the timestamps as
// they were before the shift: members whose starts_at was at or after the
// edited record's move too, earlier ones stay put. The anchor's
// recurrence_end is left alone, so shifted members may sit past it.
//
// A standalone record, or a child whose anchor is gone, just moves by
// itself. A zero delta writes nothing. Mixed per-member outcomes surface as
// a PartialFailureError naming the ids that moved and the ids that did not.
func (m *Manager) ShiftFrom(editedID int64, newStart time.Time) ([]model.Event, error) {
	if newStart.IsZero() {
		return nil, &ValidationError{Field: "starts_at", Reason: "required"}
	}

	edited, err := m.repo.ByID(editedID)
	if err != nil {
		return nil, &PersistenceError{Op: "load event", Err: err}
	}
	if edited == nil {
		return nil, &NotFoundError{Entity: "event", ID: editedID}
	}

	members, err := m.shiftScope(edited)
	if err != nil {
		return nil, err
	}

	shift := ComputeShift(edited.StartsAt, newStart)
	if shift.IsZero() {
		return sortedByStart(members), nil
	}

	times := make(map[int64]time.Time)
	for _, e := range members {
		if e.StartsAt.Before(edited.StartsAt) {
			continue
		}
		times[e.ID] = shift.Apply(e.StartsAt)
	}

	outcomes, err := m.repo.UpdateStarts(times)
	if err != nil {
		return nil, &PersistenceError{Op: "shift series", Err: err}
	}
	if perr := partialFromOutcomes("shift series", outcomes); perr != nil {
		return nil, perr
	}

	for i := range members {
		if at, ok := times[members[i].ID]; ok {
			members[i].StartsAt = at
		}
	}
	return sortedByStart(members), nil
}

// shiftScope resolves the records a shift starting at edited may touch: the
// full series when edited belongs to one, otherwise just edited itself.
func (m *Manager) shiftScope(edited *model.Event) ([]model.Event, error) {
	anchorID := edited.ID
	if edited.IsChild() {
		anchorID = *edited.ParentEventID
		anchor, err := m.repo.ByID(anchorID)
		if err != nil {
			return nil, &PersistenceError{Op: "load anchor", Err: err}
		}
		if anchor == nil {
			// Orphaned child: nothing else to move with it.
			return []model.Event{*edited}, nil
		}
		children, err := m.repo.ByParent(anchorID)
		if err != nil {
			return nil, &PersistenceError{Op: "load series members", Err: err}
		}
		return append([]model.Event{*anchor}, children...), nil
	}

	if !edited.IsAnchor() {
		return []model.Event{*edited}, nil
	}
	children, err := m.repo.ByParent(anchorID)
	if err != nil {
		return nil, &PersistenceError{Op: "load series members", Err: err}
	}
	return append([]model.Event{*edited}, children...), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clockTime(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
