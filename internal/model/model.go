package model

import (
	"slices"
	"time"
)

// RecurrenceType selects how a recurring event advances between occurrences.
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	// RecurrenceCustom repeats every Interval weeks.
	RecurrenceCustom RecurrenceType = "custom"
)

// Recurrence is the rule a base event was created from.
type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`
	// DaysOfWeek holds weekday indices (0 = Sunday). Only used by weekly rules.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`
	// EndDate bounds generation. When nil the expander uses its horizon.
	EndDate *time.Time `json:"endDate,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Recurrence) Clone() *Recurrence {
	if r == nil {
		return nil
	}
	out := *r
	out.DaysOfWeek = slices.Clone(r.DaysOfWeek)
	if r.EndDate != nil {
		end := *r.EndDate
		out.EndDate = &end
	}
	return &out
}

// Event is a single calendar entry. A base event has no OriginalEventID;
// every occurrence generated from it points back at the base ID.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	StartDate       time.Time   `json:"startDate"`
	EndDate         time.Time   `json:"endDate"`
	Color           string      `json:"color"`
	IsRecurring     bool        `json:"isRecurring"`
	Recurrence      *Recurrence `json:"recurrence,omitempty"`
	OriginalEventID string      `json:"originalEventId,omitempty"`
}

// Duration is EndDate - StartDate.
func (e Event) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

// IsOccurrence reports whether e was generated from a recurrence rule.
func (e Event) IsOccurrence() bool {
	return e.OriginalEventID != ""
}

// Matches reports whether e is addressed by id: either e itself or an
// occurrence of the base event with that id.
func (e Event) Matches(id string) bool {
	return e.ID == id || e.OriginalEventID == id
}

// Clone returns a deep copy of e.
func (e Event) Clone() Event {
	e.Recurrence = e.Recurrence.Clone()
	return e
}

// Conflict records that EventID overlaps the events in ConflictingEventIDs.
// Conflicts are advisory and never block a mutation.
type Conflict struct {
	EventID             string    `json:"eventId"`
	ConflictingEventIDs []string  `json:"conflictingEventIds"`
	Date                time.Time `json:"date"`
}

// Clone returns a deep copy of c.
func (c Conflict) Clone() Conflict {
	c.ConflictingEventIDs = slices.Clone(c.ConflictingEventIDs)
	return c
}

// References reports whether c mentions id on either side.
func (c Conflict) References(id string) bool {
	return c.EventID == id || slices.Contains(c.ConflictingEventIDs, id)
}

// Snapshot is the persisted form of the event list.
type Snapshot struct {
	Events []Event `json:"events"`
}
