package schedule

import (
	"time"

	"monthcal/internal/model"
)

// Events returns a copy of every stored event in insertion order.
func (s *Store) Events() []model.Event {
	out := make([]model.Event, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Clone()
	}
	return out
}

// Conflicts returns a copy of the conflict log in the order it was recorded.
func (s *Store) Conflicts() []model.Conflict {
	out := make([]model.Conflict, len(s.conflicts))
	for i, c := range s.conflicts {
		out[i] = c.Clone()
	}
	return out
}

// Event looks up a single event by its own id.
func (s *Store) Event(id string) (model.Event, bool) {
	for _, ev := range s.events {
		if ev.ID == id {
			return ev.Clone(), true
		}
	}
	return model.Event{}, false
}

// Series returns the events addressed by id: the event itself and, for a
// base event, its occurrences.
func (s *Store) Series(id string) []model.Event {
	var out []model.Event
	for _, ev := range s.events {
		if ev.Matches(id) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// EventsOn returns the events starting on day's calendar date, evaluated in
// day's location.
func (s *Store) EventsOn(day time.Time) []model.Event {
	y, m, d := day.Date()
	var out []model.Event
	for _, ev := range s.events {
		ey, em, ed := ev.StartDate.In(day.Location()).Date()
		if ey == y && em == m && ed == d {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	return len(s.events)
}

// Snapshot returns the serialisable state of the store. Conflicts are
// derived data and are not part of it.
func (s *Store) Snapshot() model.Snapshot {
	return model.Snapshot{Events: s.Events()}
}

// Restore replaces the event list with snap and clears the conflict log.
// Every event needs a unique, non-empty id.
func (s *Store) Restore(snap model.Snapshot) error {
	seen := make(map[string]struct{}, len(snap.Events))
	events := make([]model.Event, 0, len(snap.Events))
	for _, ev := range snap.Events {
		if ev.ID == "" {
			return &model.ValidationError{Field: "id", Reason: "required"}
		}
		if _, dup := seen[ev.ID]; dup {
			return &model.ValidationError{Field: "id", Reason: "duplicate id " + ev.ID}
		}
		seen[ev.ID] = struct{}{}
		events = append(events, ev.Clone())
	}

	s.events = events
	s.conflicts = nil
	return nil
}

// Checkpoint is a copy of a store's events and conflict log, taken with
// Store.Checkpoint and put back with Store.Rollback.
type Checkpoint struct {
	events    []model.Event
	conflicts []model.Conflict
}

// Checkpoint captures the current state so a caller can undo a mutation
// whose side effects (such as saving) failed afterwards.
func (s *Store) Checkpoint() Checkpoint {
	return Checkpoint{events: s.Events(), conflicts: s.Conflicts()}
}

// Rollback restores the state captured by cp.
func (s *Store) Rollback(cp Checkpoint) {
	s.events = cp.events
	s.conflicts = cp.conflicts
}
