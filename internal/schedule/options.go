package schedule

import "time"

// Option configures a Store.
type Option func(*Store)

// WithIDFunc sets the id generator for base events and occurrences.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock sets the source of the current time, used by WithDisallowPast.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHorizon sets how many months a rule without an end date expands.
func WithHorizon(months int) Option {
	return func(s *Store) { s.horizonMonths = months }
}

// WithMaxOccurrences caps the occurrences generated for one base event.
func WithMaxOccurrences(n int) Option {
	return func(s *Store) { s.maxOccurrences = n }
}

// WithRecheckConflicts makes UpdateEvent and MoveEvent rebuild the conflict
// records of every event they touch. Without it, conflicts are only
// computed when an event is added and may go stale.
func WithRecheckConflicts(on bool) Option {
	return func(s *Store) { s.recheckConflicts = on }
}

// WithOccurrenceConflicts makes AddEvent check generated occurrences for
// conflicts too, not only the base event.
func WithOccurrenceConflicts(on bool) Option {
	return func(s *Store) { s.checkOccurrences = on }
}

// WithDisallowPast rejects adds, updates and moves whose start lies before
// the current day.
func WithDisallowPast(on bool) Option {
	return func(s *Store) { s.disallowPast = on }
}

// WithDefaultColor sets the color given to events created without one.
func WithDefaultColor(color string) Option {
	return func(s *Store) { s.defaultColor = color }
}
