package series

import (
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

// SharedFields are the descriptive and reminder fields every member of a
// series has in common. Whole-series edits write exactly these; event
// timestamps and the per-record completion flag are never part of them.
type SharedFields struct {
	Title             string
	Category          model.Category
	Location          string
	Description       string
	PhotoRef          string
	IsReminder        bool
	ReminderLeadHours int
}

// InstanceEdit is a single-record edit: the shared fields plus the record's
// own timestamp. It never touches siblings.
type InstanceEdit struct {
	SharedFields
	StartsAt time.Time
}

// EventRepository is the persistence surface the series engine is written
// against. store.EventStore is the shipped sqlite implementation.
//
// Read methods return (nil, nil) for a missing record. Batch methods that
// return per-id outcomes either attempted every id (map populated) or failed
// before applying anything (map nil, error set); they never mix the two.
type EventRepository interface {
	Insert(e *model.Event) (*model.Event, error)
	// InsertMany persists the given records as one unit: either all rows
	// exist afterwards or none do.
	InsertMany(events []*model.Event) ([]model.Event, error)

	ByID(id int64) (*model.Event, error)
	ByParent(parentID int64) ([]model.Event, error)
	ByPet(petID int64) ([]model.Event, error)

	UpdateInstance(id int64, edit InstanceEdit) error
	// UpdateShared writes the same shared fields to every id.
	UpdateShared(ids []int64, fields SharedFields) (map[int64]error, error)
	// UpdateStarts moves each id to its own new timestamp.
	UpdateStarts(times map[int64]time.Time) (map[int64]error, error)
	SetCompleted(id int64, done bool) error

	// Delete removes a record; deleting an anchor removes its children.
	Delete(id int64) error
}
