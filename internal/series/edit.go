package series

import (
	"github.com/dukerupert/pawkeep/internal/model"
)

// EditInstance updates one record's shared fields and its own timestamp.
// Siblings in the same series are untouched; an anchor edited this way keeps
// its recurrence rule.
func (m *Manager) EditInstance(id int64, edit InstanceEdit) (*model.Event, error) {
	e, err := m.repo.ByID(id)
	if err != nil {
		return nil, &PersistenceError{Op: "load event", Err: err}
	}
	if e == nil {
		return nil, &NotFoundError{Entity: "event", ID: id}
	}

	if edit.StartsAt.IsZero() {
		return nil, &ValidationError{Field: "starts_at", Reason: "required"}
	}
	if err := validateShared(&edit.SharedFields); err != nil {
		return nil, err
	}

	if err := m.repo.UpdateInstance(id, edit); err != nil {
		return nil, &PersistenceError{Op: "update event", Err: err}
	}

	updated, err := m.repo.ByID(id)
	if err != nil {
		return nil, &PersistenceError{Op: "reload event", Err: err}
	}
	return updated, nil
}

// EditSeries applies the same shared fields to the anchor and every child in
// one batch. Timestamps are untouched and the per-record completion flag is
// never fanned out. The full member list is resolved before any write so the
// batch covers the whole series; mixed per-member outcomes surface as a
// PartialFailureError rather than a silent partial update.
func (m *Manager) EditSeries(anchorID int64, fields SharedFields) (*Series, error) {
	anchor, err := m.repo.ByID(anchorID)
	if err != nil {
		return nil, &PersistenceError{Op: "load anchor", Err: err}
	}
	if anchor == nil {
		return nil, &NotFoundError{Entity: "event", ID: anchorID}
	}
	if anchor.IsChild() {
		return nil, &ValidationError{Field: "event_id", Reason: "series edits address the anchor, not a child"}
	}

	if err := validateShared(&fields); err != nil {
		return nil, err
	}

	children, err := m.repo.ByParent(anchorID)
	if err != nil {
		return nil, &PersistenceError{Op: "load series members", Err: err}
	}

	ids := make([]int64, 0, 1+len(children))
	ids = append(ids, anchor.ID)
	for _, c := range children {
		ids = append(ids, c.ID)
	}

	outcomes, err := m.repo.UpdateShared(ids, fields)
	if err != nil {
		return nil, &PersistenceError{Op: "series edit", Err: err}
	}
	if perr := partialFromOutcomes("series edit", outcomes); perr != nil {
		return nil, perr
	}

	return m.loadSeries(anchorID)
}

// ToggleCompleted flips the completion flag on a single reminder event. The
// flag is per-record even inside a series.
func (m *Manager) ToggleCompleted(id int64, done bool) error {
	e, err := m.repo.ByID(id)
	if err != nil {
		return &PersistenceError{Op: "load event", Err: err}
	}
	if e == nil {
		return &NotFoundError{Entity: "event", ID: id}
	}
	if !e.IsReminder {
		return &ValidationError{Field: "reminder_completed", Reason: "event is not a reminder"}
	}
	if err := m.repo.SetCompleted(id, done); err != nil {
		return &PersistenceError{Op: "set completed", Err: err}
	}
	return nil
}

func (m *Manager) loadSeries(anchorID int64) (*Series, error) {
	anchor, err := m.repo.ByID(anchorID)
	if err != nil {
		return nil, &PersistenceError{Op: "reload anchor", Err: err}
	}
	if anchor == nil {
		return nil, &NotFoundError{Entity: "event", ID: anchorID}
	}
	children, err := m.repo.ByParent(anchorID)
	if err != nil {
		return nil, &PersistenceError{Op: "reload series members", Err: err}
	}
	return &Series{Anchor: *anchor, Children: sortedByStart(children)}, nil
}
