package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
	"github.com/dukerupert/pawkeep/internal/series"
)

// EventStore is the sqlite implementation of series.EventRepository. Batch
// writes run inside one transaction, so from the caller's view they apply
// fully or not at all.
type EventStore struct {
	db *sql.DB
}

var _ series.EventRepository = (*EventStore)(nil)

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, pet_id, user_id, parent_event_id, starts_at, recurrence, recurrence_interval, recurrence_end,
	title, category, category_custom, location, description, photo_ref,
	is_reminder, reminder_lead_hours, reminder_completed, created_at, updated_at`

const insertEventSQL = `INSERT INTO events (pet_id, user_id, parent_event_id, starts_at, recurrence, recurrence_interval, recurrence_end,
	title, category, category_custom, location, description, photo_ref,
	is_reminder, reminder_lead_hours)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var parentID sql.NullInt64
	var end sql.NullTime
	var isReminder, completed int

	err := scanner.Scan(
		&e.ID, &e.PetID, &e.UserID, &parentID, &e.StartsAt,
		&e.Recurrence, &e.Interval, &end,
		&e.Title, &e.Category.Kind, &e.Category.Custom, &e.Location, &e.Description, &e.PhotoRef,
		&isReminder, &e.ReminderLeadHours, &completed,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		e.ParentEventID = &parentID.Int64
	}
	if end.Valid {
		t := end.Time
		e.RecurrenceEnd = &t
	}
	e.IsReminder = isReminder != 0
	e.ReminderCompleted = completed != 0
	return &e, nil
}

func insertEventArgs(e *model.Event) []any {
	var parentID sql.NullInt64
	if e.ParentEventID != nil {
		parentID = sql.NullInt64{Int64: *e.ParentEventID, Valid: true}
	}
	var end sql.NullTime
	if e.RecurrenceEnd != nil {
		end = sql.NullTime{Time: e.RecurrenceEnd.UTC(), Valid: true}
	}
	var isReminder int
	if e.IsReminder {
		isReminder = 1
	}

	return []any{
		e.PetID, e.UserID, parentID, e.StartsAt.UTC(),
		string(e.Recurrence), e.Interval, end,
		e.Title, string(e.Category.Kind), e.Category.Custom, e.Location, e.Description, e.PhotoRef,
		isReminder, e.ReminderLeadHours,
	}
}

func (s *EventStore) Insert(e *model.Event) (*model.Event, error) {
	result, err := s.db.Exec(insertEventSQL, insertEventArgs(e)...)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.ByID(id)
}

// InsertMany inserts all events in one transaction. On error nothing is
// persisted.
func (s *EventStore) InsertMany(events []*model.Event) ([]model.Event, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		result, err := stmt.Exec(insertEventArgs(e)...)
		if err != nil {
			return nil, fmt.Errorf("insert series member: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit series insert: %w", err)
	}

	out := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		e, err := s.ByID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *EventStore) ByID(id int64) (*model.Event, error) {
	e, err := scanEvent(s.db.QueryRow(
		`SELECT `+eventCols+` FROM events WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

func (s *EventStore) ByParent(parentID int64) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE parent_event_id = ? ORDER BY starts_at ASC`, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query series children: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) ByPet(petID int64) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events WHERE pet_id = ? ORDER BY starts_at ASC`, petID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pet events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ByFamily returns every event for pets shared with the family, for the
// calendar feed.
func (s *EventStore) ByFamily(familyID int64) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT e.id, e.pet_id, e.user_id, e.parent_event_id, e.starts_at, e.recurrence, e.recurrence_interval, e.recurrence_end,
			e.title, e.category, e.category_custom, e.location, e.description, e.photo_ref,
			e.is_reminder, e.reminder_lead_hours, e.reminder_completed, e.created_at, e.updated_at
		 FROM events e
		 JOIN pets p ON p.id = e.pet_id
		 WHERE p.family_id = ?
		 ORDER BY e.starts_at ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query family events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// UpcomingReminders returns uncompleted reminder events starting after now,
// the candidate set for the due-check.
func (s *EventStore) UpcomingReminders(now time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM events
		 WHERE is_reminder = 1 AND reminder_completed = 0 AND starts_at > ?
		 ORDER BY starts_at ASC`, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query upcoming reminders: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) UpdateInstance(id int64, edit series.InstanceEdit) error {
	_, err := s.db.Exec(
		`UPDATE events
		 SET starts_at = ?, title = ?, category = ?, category_custom = ?, location = ?, description = ?, photo_ref = ?,
		     is_reminder = ?, reminder_lead_hours = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		edit.StartsAt.UTC(), edit.Title, string(edit.Category.Kind), edit.Category.Custom,
		edit.Location, edit.Description, edit.PhotoRef,
		boolToInt(edit.IsReminder), edit.ReminderLeadHours, id,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// UpdateShared writes the shared fields to every id in one transaction. A
// member that fails or has vanished aborts the whole batch, so the returned
// outcomes are either all-success or replaced by the error.
func (s *EventStore) UpdateShared(ids []int64, fields series.SharedFields) (map[int64]error, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`UPDATE events
		 SET title = ?, category = ?, category_custom = ?, location = ?, description = ?, photo_ref = ?,
		     is_reminder = ?, reminder_lead_hours = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		result, err := stmt.Exec(
			fields.Title, string(fields.Category.Kind), fields.Category.Custom,
			fields.Location, fields.Description, fields.PhotoRef,
			boolToInt(fields.IsReminder), fields.ReminderLeadHours, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update event %d: %w", id, err)
		}
		if err := requireRow(result, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit series update: %w", err)
	}
	return allSucceeded(ids), nil
}

// UpdateStarts rewrites the timestamps of the given events in one
// transaction.
func (s *EventStore) UpdateStarts(times map[int64]time.Time) (map[int64]error, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`UPDATE events SET starts_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(times))
	for id, at := range times {
		result, err := stmt.Exec(at.UTC(), id)
		if err != nil {
			return nil, fmt.Errorf("update event %d: %w", id, err)
		}
		if err := requireRow(result, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit shift: %w", err)
	}
	return allSucceeded(ids), nil
}

func (s *EventStore) SetCompleted(id int64, done bool) error {
	_, err := s.db.Exec(
		`UPDATE events SET reminder_completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(done), id,
	)
	if err != nil {
		return fmt.Errorf("set reminder completed: %w", err)
	}
	return nil
}

// Delete removes an event. Children of a deleted anchor go with it through
// the foreign key cascade.
func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func requireRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %d vanished during update", id)
	}
	return nil
}

func allSucceeded(ids []int64) map[int64]error {
	outcomes := make(map[int64]error, len(ids))
	for _, id := range ids {
		outcomes[id] = nil
	}
	return outcomes
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
