package model

import (
	"slices"
	"strings"
	"time"
)

// Normalize returns a copy of r with defaults filled in: a zero interval
// becomes 1 and weekdays are sorted with duplicates removed.
func (r Recurrence) Normalize() Recurrence {
	out := *r.Clone()
	if out.Interval == 0 {
		out.Interval = 1
	}
	slices.Sort(out.DaysOfWeek)
	out.DaysOfWeek = slices.Compact(out.DaysOfWeek)
	return out
}

// Validate checks r as given; callers normally Normalize first.
func (r Recurrence) Validate() error {
	switch r.Type {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
	default:
		return &ConfigurationError{Setting: "recurrence.type", Value: string(r.Type)}
	}
	if r.Interval < 0 {
		return invalid("recurrence.interval", "must be positive")
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return invalid("recurrence.daysOfWeek", "weekday index must be within 0-6")
		}
	}
	if r.Type == RecurrenceWeekly && len(r.DaysOfWeek) == 0 {
		return invalid("recurrence.daysOfWeek", "weekly rule needs at least one weekday")
	}
	return nil
}

// EventInput carries the fields a caller supplies when creating an event.
// The engine assigns the id.
type EventInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	Color       string      `json:"color"`
	IsRecurring bool        `json:"isRecurring"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
}

// Validate reports the first problem with in, if any.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "required")
	}
	if err := validateSpan(in.StartDate, in.EndDate); err != nil {
		return err
	}
	if in.IsRecurring && in.Recurrence == nil {
		return invalid("recurrence", "required when isRecurring is set")
	}
	if in.Recurrence != nil {
		return in.Recurrence.Normalize().Validate()
	}
	return nil
}

// Event builds an unsaved event from in with the given id.
func (in EventInput) Event(id string) Event {
	ev := Event{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Color:       in.Color,
		IsRecurring: in.IsRecurring,
	}
	if in.Recurrence != nil {
		rule := in.Recurrence.Normalize()
		ev.Recurrence = &rule
	}
	return ev
}

// EventPatch is a partial update. Nil fields are left untouched. The id and
// series link of an event can never be patched.
type EventPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	StartDate   *time.Time  `json:"startDate,omitempty"`
	EndDate     *time.Time  `json:"endDate,omitempty"`
	Color       *string     `json:"color,omitempty"`
	IsRecurring *bool       `json:"isRecurring,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
}

// Empty reports whether p changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.StartDate == nil &&
		p.EndDate == nil && p.Color == nil && p.IsRecurring == nil && p.Recurrence == nil
}

// Validate checks the fields present in p on their own. Constraints that
// depend on the patched event, like the start/end ordering, are checked
// after Apply.
func (p EventPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "required")
	}
	if p.StartDate != nil && p.StartDate.IsZero() {
		return invalid("startDate", "required")
	}
	if p.EndDate != nil && p.EndDate.IsZero() {
		return invalid("endDate", "required")
	}
	if p.Recurrence != nil {
		return p.Recurrence.Normalize().Validate()
	}
	return nil
}

// Apply returns a copy of e with p merged in.
func (p EventPatch) Apply(e Event) Event {
	out := e.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.StartDate != nil {
		out.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		out.EndDate = *p.EndDate
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.IsRecurring != nil {
		out.IsRecurring = *p.IsRecurring
	}
	if p.Recurrence != nil {
		rule := p.Recurrence.Normalize()
		out.Recurrence = &rule
	}
	return out
}

// Validate checks the cross-field rules a stored event must satisfy: the
// same ones EventInput.Validate applies on creation.
func (e Event) Validate() error {
	return EventInput{
		Title:       e.Title,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		IsRecurring: e.IsRecurring,
		Recurrence:  e.Recurrence,
	}.Validate()
}

func validateSpan(start, end time.Time) error {
	if start.IsZero() {
		return invalid("startDate", "required")
	}
	if end.IsZero() {
		return invalid("endDate", "required")
	}
	if end.Before(start) {
		return invalid("endDate", "must not be before startDate")
	}
	return nil
}
