package series

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
	"github.com/dukerupert/pawkeep/internal/recurrence"
)

// Draft is an event-creation request. A trivial rule produces one standalone
// record; a recurring rule produces an anchor plus its generated children.
type Draft struct {
	PetID    int64
	UserID   int64
	StartsAt time.Time
	Rule     recurrence.Rule
	SharedFields
}

// Manager creates, groups, edits, and shifts care events through an
// EventRepository.
type Manager struct {
	repo EventRepository
}

func NewManager(repo EventRepository) *Manager {
	return &Manager{repo: repo}
}

// Create validates the draft, expands its recurrence rule, and persists the
// resulting records. For a recurring draft the anchor is inserted first and
// the remaining occurrences become children referencing it; if the children
// cannot be inserted the anchor is deleted again so no partial series
// survives.
func (m *Manager) Create(d Draft) (*Series, error) {
	if err := validateDraft(&d); err != nil {
		return nil, err
	}

	occurrences, err := recurrence.Expand(d.StartsAt, d.Rule)
	if err != nil {
		return nil, &ValidationError{Field: "recurrence", Reason: err.Error()}
	}

	anchor := d.toEvent(occurrences[0])
	inserted, err := m.repo.Insert(anchor)
	if err != nil {
		return nil, &PersistenceError{Op: "insert event", Err: err}
	}

	if len(occurrences) == 1 {
		return &Series{Anchor: *inserted}, nil
	}

	children := make([]*model.Event, 0, len(occurrences)-1)
	for _, at := range occurrences[1:] {
		child := d.toEvent(at)
		child.ParentEventID = &inserted.ID
		child.Recurrence = model.RecurrenceNone
		child.Interval = 0
		child.RecurrenceEnd = nil
		children = append(children, child)
	}

	insertedChildren, err := m.repo.InsertMany(children)
	if err != nil {
		// Compensate: removing the anchor cascades over any children that
		// made it in before the failure.
		if delErr := m.repo.Delete(inserted.ID); delErr != nil {
			return nil, &PersistenceError{
				Op:  "insert series children",
				Err: fmt.Errorf("%v (cleanup of anchor %d also failed: %v)", err, inserted.ID, delErr),
			}
		}
		return nil, &PersistenceError{Op: "insert series children", Err: err}
	}

	return &Series{Anchor: *inserted, Children: sortedByStart(insertedChildren)}, nil
}

// Delete removes one record. Deleting an anchor removes the whole series via
// the storage-level cascade.
func (m *Manager) Delete(id int64) error {
	e, err := m.repo.ByID(id)
	if err != nil {
		return &PersistenceError{Op: "load event", Err: err}
	}
	if e == nil {
		return &NotFoundError{Entity: "event", ID: id}
	}
	if err := m.repo.Delete(id); err != nil {
		return &PersistenceError{Op: "delete event", Err: err}
	}
	return nil
}

// SchedulePet returns the pet's full care schedule grouped into series and
// standalone records, partitioned into upcoming and past relative to now.
func (m *Manager) SchedulePet(petID int64, now time.Time) (Schedule, error) {
	events, err := m.repo.ByPet(petID)
	if err != nil {
		return Schedule{}, &PersistenceError{Op: "load pet events", Err: err}
	}
	return Partition(GroupEvents(events), now), nil
}

func (d *Draft) toEvent(at time.Time) *model.Event {
	e := &model.Event{
		PetID:             d.PetID,
		UserID:            d.UserID,
		StartsAt:          at,
		Recurrence:        d.Rule.Type,
		Interval:          d.Rule.Interval,
		Title:             d.Title,
		Category:          d.Category,
		Location:          d.Location,
		Description:       d.Description,
		PhotoRef:          d.PhotoRef,
		IsReminder:        d.IsReminder,
		ReminderLeadHours: d.ReminderLeadHours,
	}
	if e.Recurrence == "" {
		e.Recurrence = model.RecurrenceNone
	}
	if e.Recurrence != model.RecurrenceNone {
		end := d.Rule.End
		e.RecurrenceEnd = &end
	} else {
		e.Interval = 0
	}
	return e
}

func validateDraft(d *Draft) error {
	if d.PetID == 0 {
		return &ValidationError{Field: "pet_id", Reason: "required"}
	}
	if d.StartsAt.IsZero() {
		return &ValidationError{Field: "starts_at", Reason: "required"}
	}
	if err := validateShared(&d.SharedFields); err != nil {
		return err
	}
	if err := d.Rule.Validate(d.StartsAt); err != nil {
		return &ValidationError{Field: "recurrence", Reason: err.Error()}
	}
	return nil
}

// validateShared checks and normalizes the fields common to create and edit
// operations.
func validateShared(f *SharedFields) error {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}

	if f.Category.Kind == "" {
		f.Category.Kind = model.CategoryGeneral
	}
	if !f.Category.Valid() {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown kind %q", f.Category.Kind)}
	}
	f.Category.Custom = strings.TrimSpace(f.Category.Custom)
	if f.Category.Kind == model.CategoryOther && f.Category.Custom == "" {
		return &ValidationError{Field: "category", Reason: "custom label required for kind other"}
	}
	if f.Category.Kind != model.CategoryOther {
		// The custom label is the payload of the "other" variant only.
		f.Category.Custom = ""
	}

	if f.IsReminder {
		if f.ReminderLeadHours < 1 {
			return &ValidationError{Field: "reminder_lead_hours", Reason: "must be at least 1 hour"}
		}
	} else {
		f.ReminderLeadHours = 0
	}
	return nil
}
