package series

import (
	"fmt"
	"testing"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
	"github.com/dukerupert/pawkeep/internal/recurrence"
)

// fakeRepo is an in-memory EventRepository so engine behavior can be
// exercised without sqlite. Per-id failures for batch writes are injected
// through failIDs; insertManyErr makes child insertion fail wholesale.
type fakeRepo struct {
	nextID int64
	events map[int64]*model.Event

	insertManyErr     error
	deleteErr         error
	failIDs           map[int64]error
	updateStartsCalls int
}

var _ EventRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events:  make(map[int64]*model.Event),
		failIDs: make(map[int64]error),
	}
}

func (r *fakeRepo) Insert(e *model.Event) (*model.Event, error) {
	r.nextID++
	stored := *e
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.events[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakeRepo) InsertMany(events []*model.Event) ([]model.Event, error) {
	if r.insertManyErr != nil {
		return nil, r.insertManyErr
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		stored, err := r.Insert(e)
		if err != nil {
			return nil, err
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *fakeRepo) ByID(id int64) (*model.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (r *fakeRepo) ByParent(parentID int64) ([]model.Event, error) {
	var out []model.Event
	for id := int64(1); id <= r.nextID; id++ {
		e, ok := r.events[id]
		if ok && e.ParentEventID != nil && *e.ParentEventID == parentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeRepo) ByPet(petID int64) ([]model.Event, error) {
	var out []model.Event
	for id := int64(1); id <= r.nextID; id++ {
		e, ok := r.events[id]
		if ok && e.PetID == petID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateInstance(id int64, edit InstanceEdit) error {
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("event %d not in fake store", id)
	}
	applyShared(e, edit.SharedFields)
	e.StartsAt = edit.StartsAt
	return nil
}

func (r *fakeRepo) UpdateShared(ids []int64, fields SharedFields) (map[int64]error, error) {
	outcomes := make(map[int64]error, len(ids))
	for _, id := range ids {
		if err := r.failIDs[id]; err != nil {
			outcomes[id] = err
			continue
		}
		e, ok := r.events[id]
		if !ok {
			outcomes[id] = fmt.Errorf("event %d not in fake store", id)
			continue
		}
		applyShared(e, fields)
		outcomes[id] = nil
	}
	return outcomes, nil
}

func (r *fakeRepo) UpdateStarts(times map[int64]time.Time) (map[int64]error, error) {
	r.updateStartsCalls++
	outcomes := make(map[int64]error, len(times))
	for id, at := range times {
		if err := r.failIDs[id]; err != nil {
			outcomes[id] = err
			continue
		}
		e, ok := r.events[id]
		if !ok {
			outcomes[id] = fmt.Errorf("event %d not in fake store", id)
			continue
		}
		e.StartsAt = at
		outcomes[id] = nil
	}
	return outcomes, nil
}

func (r *fakeRepo) SetCompleted(id int64, done bool) error {
	e, ok := r.events[id]
	if !ok {
		return fmt.Errorf("event %d not in fake store", id)
	}
	e.ReminderCompleted = done
	return nil
}

func (r *fakeRepo) Delete(id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.events, id)
	for cid, e := range r.events {
		if e.ParentEventID != nil && *e.ParentEventID == id {
			delete(r.events, cid)
		}
	}
	return nil
}

func applyShared(e *model.Event, f SharedFields) {
	e.Title = f.Title
	e.Category = f.Category
	e.Location = f.Location
	e.Description = f.Description
	e.PhotoRef = f.PhotoRef
	e.IsReminder = f.IsReminder
	e.ReminderLeadHours = f.ReminderLeadHours
}

// weeklyDraft builds a weekly draft that expands to exactly count
// occurrences, the first on Monday 2026-03-02 at 10:00 UTC.
func weeklyDraft(count int) Draft {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return Draft{
		PetID:    1,
		UserID:   7,
		StartsAt: start,
		Rule: recurrence.Rule{
			Type:     model.RecurrenceWeekly,
			Interval: 1,
			End:      start.AddDate(0, 0, 7*(count-1)),
		},
		SharedFields: SharedFields{
			Title:    "Flea treatment",
			Category: model.Category{Kind: model.CategoryMedication},
		},
	}
}

func mustCreate(t *testing.T, m *Manager, d Draft) *Series {
	t.Helper()
	s, err := m.Create(d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}
