package series

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

func reminderDraft(at time.Time, title string) Draft {
	d := standaloneDraft(1, at, title)
	d.IsReminder = true
	d.ReminderLeadHours = 24
	return d
}

func TestEditInstanceUpdatesOnlyTarget(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(3))

	target := s.Children[0]
	edit := InstanceEdit{
		SharedFields: SharedFields{
			Title:    "Flea bath instead",
			Category: model.Category{Kind: model.CategoryGrooming},
		},
		StartsAt: target.StartsAt.Add(2 * time.Hour),
	}

	updated, err := m.EditInstance(target.ID, edit)
	if err != nil {
		t.Fatalf("EditInstance: %v", err)
	}
	if updated.Title != "Flea bath instead" {
		t.Errorf("title = %q, want the edited one", updated.Title)
	}
	if !updated.StartsAt.Equal(edit.StartsAt) {
		t.Errorf("starts_at = %v, want %v", updated.StartsAt, edit.StartsAt)
	}
	if updated.ParentEventID == nil || *updated.ParentEventID != s.Anchor.ID {
		t.Error("instance edit must not detach the child from its series")
	}

	anchor, _ := repo.ByID(s.Anchor.ID)
	if anchor.Title != "Flea treatment" || !anchor.StartsAt.Equal(s.Anchor.StartsAt) {
		t.Error("anchor changed by an instance edit")
	}
	sibling, _ := repo.ByID(s.Children[1].ID)
	if sibling.Title != "Flea treatment" {
		t.Error("sibling changed by an instance edit")
	}
}

func TestEditInstanceAnchorKeepsRule(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(3))

	edit := InstanceEdit{
		SharedFields: SharedFields{
			Title:    "New clinic",
			Category: model.Category{Kind: model.CategoryMedication},
		},
		StartsAt: s.Anchor.StartsAt.Add(time.Hour),
	}
	updated, err := m.EditInstance(s.Anchor.ID, edit)
	if err != nil {
		t.Fatalf("EditInstance: %v", err)
	}
	if !updated.IsAnchor() {
		t.Error("anchor lost its recurrence rule on an instance edit")
	}
	if updated.RecurrenceEnd == nil {
		t.Error("anchor lost its recurrence end on an instance edit")
	}
}

func TestEditInstanceMissing(t *testing.T) {
	m := NewManager(newFakeRepo())

	_, err := m.EditInstance(42, InstanceEdit{
		SharedFields: SharedFields{Title: "x"},
		StartsAt:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	})
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestEditInstanceValidation(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(2))

	_, err := m.EditInstance(s.Anchor.ID, InstanceEdit{
		SharedFields: SharedFields{Title: "   "},
		StartsAt:     s.Anchor.StartsAt,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Errorf("err = %v, want ValidationError on title", err)
	}

	_, err = m.EditInstance(s.Anchor.ID, InstanceEdit{SharedFields: SharedFields{Title: "x"}})
	if !errors.As(err, &verr) || verr.Field != "starts_at" {
		t.Errorf("err = %v, want ValidationError on starts_at", err)
	}
}

func TestEditSeriesFansOut(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)

	d := weeklyDraft(3)
	d.IsReminder = true
	d.ReminderLeadHours = 24
	s := mustCreate(t, m, d)

	// One member already checked off; the flag must survive the series edit.
	if err := m.ToggleCompleted(s.Children[0].ID, true); err != nil {
		t.Fatalf("ToggleCompleted: %v", err)
	}

	originalStarts := make(map[int64]time.Time)
	for _, e := range append([]model.Event{s.Anchor}, s.Children...) {
		originalStarts[e.ID] = e.StartsAt
	}

	fields := SharedFields{
		Title:             "Heartworm prevention",
		Category:          model.Category{Kind: model.CategoryMedication},
		Location:          "Home",
		IsReminder:        true,
		ReminderLeadHours: 48,
	}
	updated, err := m.EditSeries(s.Anchor.ID, fields)
	if err != nil {
		t.Fatalf("EditSeries: %v", err)
	}

	for _, e := range updated.Members() {
		if e.Title != "Heartworm prevention" || e.Location != "Home" || e.ReminderLeadHours != 48 {
			t.Errorf("member %d missed the fan-out: %+v", e.ID, e)
		}
		if !e.StartsAt.Equal(originalStarts[e.ID]) {
			t.Errorf("member %d timestamp moved by a series edit", e.ID)
		}
	}

	checked, _ := repo.ByID(s.Children[0].ID)
	if !checked.ReminderCompleted {
		t.Error("completion flag fanned out by a series edit")
	}
	anchor, _ := repo.ByID(s.Anchor.ID)
	if anchor.ReminderCompleted {
		t.Error("completion flag fanned out to the anchor")
	}
}

func TestEditSeriesRejectsChildID(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(3))

	_, err := m.EditSeries(s.Children[0].ID, SharedFields{Title: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestEditSeriesMissing(t *testing.T) {
	m := NewManager(newFakeRepo())

	_, err := m.EditSeries(42, SharedFields{Title: "x"})
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestEditSeriesPartialFailure(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(3))

	stuck := s.Children[1].ID
	repo.failIDs[stuck] = errors.New("row locked")

	_, err := m.EditSeries(s.Anchor.ID, SharedFields{
		Title:    "Renamed",
		Category: model.Category{Kind: model.CategoryMedication},
	})
	var pfe *PartialFailureError
	if !errors.As(err, &pfe) {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if len(pfe.Failed) != 1 || pfe.Failed[0] != stuck {
		t.Errorf("failed = %v, want [%d]", pfe.Failed, stuck)
	}
	if len(pfe.Succeeded) != 2 {
		t.Errorf("succeeded = %v, want the other two members", pfe.Succeeded)
	}
	if pfe.Causes[stuck] == nil {
		t.Error("cause for the failed member missing")
	}

	// The error reports exactly what the store now holds.
	applied, _ := repo.ByID(s.Children[0].ID)
	if applied.Title != "Renamed" {
		t.Error("succeeded member should hold the new fields")
	}
	skipped, _ := repo.ByID(stuck)
	if skipped.Title != "Flea treatment" {
		t.Error("failed member should keep the old fields")
	}
}

func TestToggleCompleted(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, reminderDraft(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), "Worming tablet"))

	if err := m.ToggleCompleted(s.Anchor.ID, true); err != nil {
		t.Fatalf("ToggleCompleted: %v", err)
	}
	e, _ := repo.ByID(s.Anchor.ID)
	if !e.ReminderCompleted {
		t.Error("completion flag not set")
	}

	if err := m.ToggleCompleted(s.Anchor.ID, false); err != nil {
		t.Fatalf("ToggleCompleted: %v", err)
	}
	e, _ = repo.ByID(s.Anchor.ID)
	if e.ReminderCompleted {
		t.Error("completion flag not cleared")
	}
}

func TestToggleCompletedNonReminder(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, standaloneDraft(1, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), "Checkup"))

	err := m.ToggleCompleted(s.Anchor.ID, true)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestToggleCompletedMissing(t *testing.T) {
	m := NewManager(newFakeRepo())

	err := m.ToggleCompleted(42, true)
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}
