package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/model"
)

func at(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
}

func span(id string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Title: id, StartDate: at(sh, sm), EndDate: at(eh, em)}
}

func TestFindConflicts_Overlap(t *testing.T) {
	a := span("A", 10, 0, 11, 0)
	b := span("B", 10, 30, 11, 30)

	got := FindConflicts(b, []model.Event{a})

	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].EventID)
	assert.Equal(t, []string{"A"}, got[0].ConflictingEventIDs)
	assert.Equal(t, b.StartDate, got[0].Date)
}

func TestFindConflicts_NoOverlap(t *testing.T) {
	a := span("A", 10, 0, 11, 0)
	c := span("C", 12, 0, 13, 0)

	assert.Empty(t, FindConflicts(c, []model.Event{a}))
}

func TestFindConflicts_BoundariesInclusive(t *testing.T) {
	a := span("A", 10, 0, 11, 0)

	touchingEnd := span("B", 11, 0, 12, 0)
	touchingStart := span("C", 9, 0, 10, 0)

	assert.Len(t, FindConflicts(touchingEnd, []model.Event{a}), 1)
	assert.Len(t, FindConflicts(touchingStart, []model.Event{a}), 1)
}

func TestFindConflicts_SeparateRecordsAndSkipsSelf(t *testing.T) {
	a := span("A", 10, 0, 11, 0)
	b := span("B", 10, 15, 10, 45)
	cand := span("X", 10, 30, 12, 0)

	got := FindConflicts(cand, []model.Event{a, cand, b})

	require.Len(t, got, 2)
	assert.Equal(t, []string{"A"}, got[0].ConflictingEventIDs)
	assert.Equal(t, []string{"B"}, got[1].ConflictingEventIDs)
}

func TestFindConflicts_ContainingIntervalNotFlagged(t *testing.T) {
	// Only the candidate's endpoints are tested against the other event.
	inner := span("A", 10, 15, 10, 45)
	outer := span("B", 10, 0, 11, 0)

	assert.Empty(t, FindConflicts(outer, []model.Event{inner}))
	assert.Len(t, FindConflicts(inner, []model.Event{outer}), 1)
}
