package model

import "time"

type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

type CategoryKind string

const (
	CategoryVetVisit   CategoryKind = "vet_visit"
	CategoryGrooming   CategoryKind = "grooming"
	CategoryMedication CategoryKind = "medication"
	CategoryGeneral    CategoryKind = "general"
	CategoryOther      CategoryKind = "other"
)

var categoryLabels = map[CategoryKind]string{
	CategoryVetVisit:   "Vet visit",
	CategoryGrooming:   "Grooming",
	CategoryMedication: "Medication",
	CategoryGeneral:    "General",
	CategoryOther:      "Other",
}

// Category is a tagged variant: Custom is the free-text label and is
// meaningful only when Kind is CategoryOther.
type Category struct {
	Kind   CategoryKind `json:"kind"`
	Custom string       `json:"custom,omitempty"`
}

// Label returns the display name for the category. For CategoryOther the
// custom text wins when present.
func (c Category) Label() string {
	if c.Kind == CategoryOther && c.Custom != "" {
		return c.Custom
	}
	if l, ok := categoryLabels[c.Kind]; ok {
		return l
	}
	return string(c.Kind)
}

// Valid reports whether the kind is one of the known category kinds.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c.Kind]
	return ok
}

// Event is one scheduled occurrence of pet care. An event is either
// standalone, the anchor of a recurring series (recurrence fields populated,
// no parent), or a generated child pointing at its anchor.
type Event struct {
	ID            int64  `json:"id"`
	PetID         int64  `json:"pet_id"`
	UserID        int64  `json:"user_id"`
	ParentEventID *int64 `json:"parent_event_id"`

	StartsAt time.Time `json:"starts_at"`

	Recurrence    RecurrenceType `json:"recurrence"`
	Interval      int            `json:"interval"`
	RecurrenceEnd *time.Time     `json:"recurrence_end"`

	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	PhotoRef    string   `json:"photo_ref,omitempty"`

	IsReminder        bool `json:"is_reminder"`
	ReminderLeadHours int  `json:"reminder_lead_hours"`
	ReminderCompleted bool `json:"reminder_completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAnchor reports whether the event owns a recurring series: it has a
// recurrence rule and no parent. Children never carry an expandable rule.
func (e *Event) IsAnchor() bool {
	return e.ParentEventID == nil && e.Recurrence != RecurrenceNone && e.Recurrence != ""
}

// IsChild reports whether the event was generated as part of a series.
func (e *Event) IsChild() bool {
	return e.ParentEventID != nil
}
