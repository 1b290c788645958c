// Package schedule owns the authoritative event list. It is the only
// mutator of event state: every change goes through AddEvent, UpdateEvent,
// DeleteEvent or MoveEvent, and each of them either applies completely or
// leaves the store untouched.
//
// A Store is a single-owner object and is not safe for concurrent use.
// Callers sharing one across goroutines must serialise access.
package schedule

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"monthcal/internal/conflict"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/recur"
)

const DefaultColor = "#1976d2"

// Store holds events in insertion order plus the running conflict log.
type Store struct {
	events    []model.Event
	conflicts []model.Conflict

	newID func() string
	now   func() time.Time

	horizonMonths    int
	maxOccurrences   int
	recheckConflicts bool
	checkOccurrences bool
	disallowPast     bool
	defaultColor     string
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		newID:        uuid.NewString,
		now:          time.Now,
		defaultColor: DefaultColor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddEvent creates a base event from in and, when it is recurring, all of
// its occurrences. The base event is checked for conflicts against the
// events already stored; the returned event is the stored base.
func (s *Store) AddEvent(in model.EventInput) (model.Event, error) {
	if err := in.Validate(); err != nil {
		return model.Event{}, err
	}
	if err := s.checkNotPast("startDate", in.StartDate); err != nil {
		return model.Event{}, err
	}

	base := in.Event(s.newID())
	if base.Color == "" {
		base.Color = s.defaultColor
	}

	res, err := recur.Expand(base, recur.Config{
		HorizonMonths:  s.horizonMonths,
		MaxOccurrences: s.maxOccurrences,
		NewID:          s.newID,
	})
	if err != nil {
		return model.Event{}, err
	}
	if res.Truncated {
		appLog.Error("recurrence expansion truncated",
			errors.New("max occurrences reached"),
			"event_id", base.ID,
			"occurrences", len(res.Occurrences),
		)
	}

	found := conflict.FindConflicts(base, s.events)
	if s.checkOccurrences {
		for _, occ := range res.Occurrences {
			found = append(found, conflict.FindConflicts(occ, s.events)...)
		}
	}

	s.conflicts = append(s.conflicts, found...)
	s.events = append(s.events, base)
	s.events = append(s.events, res.Occurrences...)

	appLog.Debug("event added",
		"event_id", base.ID,
		"occurrences", len(res.Occurrences),
		"conflicts", len(found),
	)
	return base.Clone(), nil
}

// UpdateEvent merges patch into every event addressed by id: the event with
// that id and every occurrence whose OriginalEventID is id. Recurrence is
// not re-expanded even if the rule changes.
func (s *Store) UpdateEvent(id string, patch model.EventPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.StartDate != nil {
		if err := s.checkNotPast("startDate", *patch.StartDate); err != nil {
			return err
		}
	}

	next := make([]model.Event, len(s.events))
	var touched []string
	for i, ev := range s.events {
		if !ev.Matches(id) {
			next[i] = ev
			continue
		}
		updated := patch.Apply(ev)
		if err := updated.Validate(); err != nil {
			return err
		}
		next[i] = updated
		touched = append(touched, ev.ID)
	}
	if len(touched) == 0 {
		return &model.NotFoundError{ID: id}
	}

	s.events = next
	if s.recheckConflicts {
		s.recheck(touched)
	}

	appLog.Debug("event updated", "event_id", id, "affected", len(touched))
	return nil
}

// DeleteEvent removes the event with id and all of its occurrences, along
// with every conflict record that mentions a removed event.
func (s *Store) DeleteEvent(id string) error {
	kept := make([]model.Event, 0, len(s.events))
	var removed []string
	for _, ev := range s.events {
		if ev.Matches(id) {
			removed = append(removed, ev.ID)
			continue
		}
		kept = append(kept, ev)
	}
	if len(removed) == 0 {
		return &model.NotFoundError{ID: id}
	}

	s.events = kept
	s.conflicts = dropConflicts(s.conflicts, removed)

	appLog.Debug("event deleted", "event_id", id, "removed", len(removed))
	return nil
}

// MoveEvent sets the start of every event addressed by id to newStart and
// shifts its end so the event keeps its own duration.
func (s *Store) MoveEvent(id string, newStart time.Time) error {
	if newStart.IsZero() {
		return &model.ValidationError{Field: "startDate", Reason: "required"}
	}
	if err := s.checkNotPast("startDate", newStart); err != nil {
		return err
	}

	next := slices.Clone(s.events)
	var touched []string
	for i, ev := range next {
		if !ev.Matches(id) {
			continue
		}
		dur := ev.Duration()
		ev.StartDate = newStart
		ev.EndDate = newStart.Add(dur)
		next[i] = ev
		touched = append(touched, ev.ID)
	}
	if len(touched) == 0 {
		return &model.NotFoundError{ID: id}
	}

	s.events = next
	if s.recheckConflicts {
		s.recheck(touched)
	}

	appLog.Debug("event moved", "event_id", id, "start", newStart.Format(time.RFC3339), "affected", len(touched))
	return nil
}

// recheck replaces the conflict records of the given events with freshly
// computed ones.
func (s *Store) recheck(ids []string) {
	s.conflicts = dropConflicts(s.conflicts, ids)
	for _, ev := range s.events {
		if slices.Contains(ids, ev.ID) {
			s.conflicts = append(s.conflicts, conflict.FindConflicts(ev, s.events)...)
		}
	}
}

func dropConflicts(in []model.Conflict, ids []string) []model.Conflict {
	return slices.DeleteFunc(slices.Clone(in), func(c model.Conflict) bool {
		for _, id := range ids {
			if c.References(id) {
				return true
			}
		}
		return false
	})
}

func (s *Store) checkNotPast(field string, t time.Time) error {
	if !s.disallowPast {
		return nil
	}
	y, m, d := s.now().In(t.Location()).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if t.Before(today) {
		return &model.ValidationError{Field: field, Reason: "must not be in the past"}
	}
	return nil
}
