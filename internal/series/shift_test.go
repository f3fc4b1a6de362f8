package series

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

func TestComputeShift(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		to   time.Time
		days int
		rem  time.Duration
	}{
		{
			"whole days forward",
			time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
			2, 0,
		},
		{
			"days plus clock",
			time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC),
			2, 5*time.Hour + 30*time.Minute,
		},
		{
			"backwards",
			time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC),
			-2, -time.Hour,
		},
		{
			"clock only",
			time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 3, 11, 15, 0, 0, time.UTC),
			0, 2*time.Hour + 15*time.Minute,
		},
		{
			"back across midnight",
			time.Date(2026, 1, 10, 1, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC),
			-1, 22 * time.Hour,
		},
		{
			"no move",
			time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
			0, 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := ComputeShift(tc.from, tc.to)
			if s.Days != tc.days || s.Remainder != tc.rem {
				t.Errorf("shift = {%d %v}, want {%d %v}", s.Days, s.Remainder, tc.days, tc.rem)
			}
			if !s.Apply(tc.from).Equal(tc.to) {
				t.Errorf("Apply(from) = %v, want %v", s.Apply(tc.from), tc.to)
			}
		})
	}
}

func TestShiftIsZero(t *testing.T) {
	if !(Shift{}).IsZero() {
		t.Error("zero shift should report IsZero")
	}
	if (Shift{Days: 1}).IsZero() || (Shift{Remainder: time.Minute}).IsZero() {
		t.Error("non-zero shift should not report IsZero")
	}
}

func TestShiftFromMiddleOfSeries(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(5)) // Mar 2, 9, 16, 23, 30 at 10:00

	edited := s.Children[1] // occurrence #3, Mar 16
	newStart := edited.StartsAt.AddDate(0, 0, 1)

	members, err := m.ShiftFrom(edited.ID, newStart)
	if err != nil {
		t.Fatalf("ShiftFrom: %v", err)
	}
	if len(members) != 5 {
		t.Fatalf("members = %d, want 5", len(members))
	}

	base := s.Anchor.StartsAt
	want := []time.Time{
		base,                   // #1 before the edit, fixed
		base.AddDate(0, 0, 7),  // #2 before the edit, fixed
		base.AddDate(0, 0, 15), // #3 moved by one day
		base.AddDate(0, 0, 22), // #4 moved with it
		base.AddDate(0, 0, 29), // #5 moved with it
	}
	for i, w := range want {
		if !members[i].StartsAt.Equal(w) {
			t.Errorf("member %d starts_at = %v, want %v", i+1, members[i].StartsAt, w)
		}
	}

	// Store state matches what was returned.
	stored, _ := repo.ByID(s.Children[3].ID)
	if !stored.StartsAt.Equal(base.AddDate(0, 0, 29)) {
		t.Errorf("stored #5 = %v, want %v", stored.StartsAt, base.AddDate(0, 0, 29))
	}

	// The rule's end bound is not rewritten; shifted members may pass it.
	anchor, _ := repo.ByID(s.Anchor.ID)
	if anchor.RecurrenceEnd == nil || !anchor.RecurrenceEnd.Equal(*s.Anchor.RecurrenceEnd) {
		t.Error("recurrence_end changed by a shift")
	}
}

func TestShiftFromAnchorMovesWholeSeries(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(3))

	members, err := m.ShiftFrom(s.Anchor.ID, s.Anchor.StartsAt.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("ShiftFrom: %v", err)
	}
	for i, e := range members {
		want := s.Anchor.StartsAt.AddDate(0, 0, 7*i+2)
		if !e.StartsAt.Equal(want) {
			t.Errorf("member %d starts_at = %v, want %v", i+1, e.StartsAt, want)
		}
	}
}

func TestShiftFromChildOfSeries(t *testing.T) {
	// Shifting via a child id must widen to the whole series, not just the
	// child's own record.
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(3))

	last := s.Children[1]
	members, err := m.ShiftFrom(last.ID, last.StartsAt.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("ShiftFrom: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("members = %d, want the full series", len(members))
	}
	anchor, _ := repo.ByID(s.Anchor.ID)
	if !anchor.StartsAt.Equal(s.Anchor.StartsAt) {
		t.Error("anchor before the edited occurrence must not move")
	}
}

func TestShiftFromZeroDeltaWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(5))

	edited := s.Children[1]
	members, err := m.ShiftFrom(edited.ID, edited.StartsAt)
	if err != nil {
		t.Fatalf("ShiftFrom: %v", err)
	}
	if len(members) != 5 {
		t.Errorf("members = %d, want 5", len(members))
	}
	if repo.updateStartsCalls != 0 {
		t.Errorf("update calls = %d, want 0 for a zero delta", repo.updateStartsCalls)
	}
}

func TestShiftFromStandalone(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, standaloneDraft(1, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), "Checkup"))

	newStart := time.Date(2026, 4, 4, 11, 0, 0, 0, time.UTC)
	members, err := m.ShiftFrom(s.Anchor.ID, newStart)
	if err != nil {
		t.Fatalf("ShiftFrom: %v", err)
	}
	if len(members) != 1 || !members[0].StartsAt.Equal(newStart) {
		t.Errorf("members = %+v, want the single moved record", members)
	}
}

func TestShiftFromOrphanChildMovesAlone(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)

	gone := int64(99)
	orphan, err := repo.Insert(&model.Event{
		PetID: 1, UserID: 7, ParentEventID: &gone,
		Title: "Leftover", StartsAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: model.RecurrenceNone,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	members, err := m.ShiftFrom(orphan.ID, orphan.StartsAt.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ShiftFrom: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("members = %d, want 1", len(members))
	}
	if !members[0].StartsAt.Equal(orphan.StartsAt.AddDate(0, 0, 1)) {
		t.Errorf("orphan starts_at = %v, want moved by a day", members[0].StartsAt)
	}
}

func TestShiftFromPartialFailure(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(5))

	stuck := s.Children[3].ID // occurrence #5
	repo.failIDs[stuck] = errors.New("row locked")

	edited := s.Children[1] // occurrence #3
	_, err := m.ShiftFrom(edited.ID, edited.StartsAt.AddDate(0, 0, 1))
	var pfe *PartialFailureError
	if !errors.As(err, &pfe) {
		t.Fatalf("err = %v, want PartialFailureError", err)
	}
	if len(pfe.Failed) != 1 || pfe.Failed[0] != stuck {
		t.Errorf("failed = %v, want [%d]", pfe.Failed, stuck)
	}
	if len(pfe.Succeeded) != 2 {
		t.Errorf("succeeded = %v, want occurrences three and four", pfe.Succeeded)
	}

	moved, _ := repo.ByID(edited.ID)
	if moved.StartsAt.Equal(edited.StartsAt) {
		t.Error("succeeded member should have moved")
	}
	unmoved, _ := repo.ByID(stuck)
	if !unmoved.StartsAt.Equal(s.Children[3].StartsAt) {
		t.Error("failed member should not have moved")
	}
}

func TestShiftFromMissing(t *testing.T) {
	m := NewManager(newFakeRepo())

	_, err := m.ShiftFrom(42, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	var nferr *NotFoundError
	if !errors.As(err, &nferr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestShiftFromRequiresStart(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo)
	s := mustCreate(t, m, weeklyDraft(2))

	_, err := m.ShiftFrom(s.Anchor.ID, time.Time{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "starts_at" {
		t.Errorf("err = %v, want ValidationError on starts_at", err)
	}
}
