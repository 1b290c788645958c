package conflict

import (
	"time"

	"monthcal/internal/model"
)

// FindConflicts returns one record per event in all whose closed interval
// [start, end] contains the candidate's start or end. The candidate itself
// (matched by id) is skipped. Records are not merged: three overlapping
// events yield three conflicts, in the order they appear in all.
func FindConflicts(candidate model.Event, all []model.Event) []model.Conflict {
	var out []model.Conflict
	for _, e := range all {
		if e.ID == candidate.ID {
			continue
		}
		if within(candidate.StartDate, e.StartDate, e.EndDate) ||
			within(candidate.EndDate, e.StartDate, e.EndDate) {
			out = append(out, model.Conflict{
				EventID:             candidate.ID,
				ConflictingEventIDs: []string{e.ID},
				Date:                candidate.StartDate,
			})
		}
	}
	return out
}

// within reports whether t lies in [start, end], both ends inclusive.
func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
