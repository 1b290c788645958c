package recur

import (
	"time"

	"github.com/google/uuid"

	"monthcal/internal/model"
)

const (
	defaultHorizonMonths  = 3
	defaultMaxOccurrences = 5000
)

// Config controls how recurrence expansion is performed.
type Config struct {
	// HorizonMonths bounds generation for rules without an end date,
	// counted from the base event's start. Zero means 3.
	HorizonMonths int

	// MaxOccurrences is a safety cap on the number of generated
	// occurrences. Zero means defaultMaxOccurrences.
	MaxOccurrences int

	// NewID assigns ids to occurrences. Defaults to random UUIDs.
	NewID func() string
}

// Result wraps the generated occurrences.
type Result struct {
	Occurrences []model.Event
	// Truncated is set when MaxOccurrences stopped the expansion early.
	Truncated bool
}

// Expand generates the occurrences of base, excluding base itself, in
// chronological order. Each occurrence copies base, gets a fresh id, keeps
// base's duration and points back at base through OriginalEventID.
//
// Non-recurring events and rules of type none produce no occurrences.
// A rule's end date is inclusive by calendar day.
func Expand(base model.Event, cfg Config) (Result, error) {
	var result Result

	if !base.IsRecurring || base.Recurrence == nil || base.Recurrence.Type == model.RecurrenceNone {
		return result, nil
	}

	rule := base.Recurrence.Normalize()
	if err := rule.Validate(); err != nil {
		return result, err
	}

	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = defaultHorizonMonths
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	bound := addMonths(base.StartDate, cfg.HorizonMonths)
	if rule.EndDate != nil {
		bound = endOfDay(*rule.EndDate)
	}

	dur := base.Duration()
	cursor := base.StartDate
	for {
		cursor = advance(cursor, rule)
		if cursor.After(bound) {
			break
		}
		if len(result.Occurrences) == cfg.MaxOccurrences {
			result.Truncated = true
			break
		}

		occ := base.Clone()
		occ.ID = cfg.NewID()
		occ.StartDate = cursor
		occ.EndDate = cursor.Add(dur)
		occ.OriginalEventID = base.ID
		result.Occurrences = append(result.Occurrences, occ)
	}

	return result, nil
}

// advance moves cursor to the next occurrence start. Every branch moves
// strictly forward, so expansion always terminates at the bound.
func advance(cursor time.Time, rule model.Recurrence) time.Time {
	switch rule.Type {
	case model.RecurrenceDaily:
		return cursor.AddDate(0, 0, rule.Interval)
	case model.RecurrenceWeekly:
		return nextWeekday(cursor, rule.DaysOfWeek)
	case model.RecurrenceMonthly:
		return addMonths(cursor, rule.Interval)
	case model.RecurrenceCustom:
		return cursor.AddDate(0, 0, 7*rule.Interval)
	}
	// Validate rejects every other type.
	panic("recur: unexpected recurrence type " + string(rule.Type))
}

// nextWeekday returns the first listed weekday strictly after cursor's,
// wrapping to the earliest listed day of the next week. days must be
// sorted and non-empty. A delta of zero means a full week.
func nextWeekday(cursor time.Time, days []int) time.Time {
	cur := int(cursor.Weekday())
	next := days[0]
	for _, d := range days {
		if d > cur {
			next = d
			break
		}
	}
	delta := (next - cur + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return cursor.AddDate(0, 0, delta)
}

// addMonths adds n calendar months, clamping the day to the length of the
// target month (Jan 31 + 1 month = Feb 29 in a leap year).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}
