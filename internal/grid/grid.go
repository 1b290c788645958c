// Package grid computes the day layout of a Sunday-first month view.
// All functions are pure and operate on wall-clock dates in the location
// of their argument.
package grid

import "time"

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}

// DaysForMonthView returns every day of t's month, preceded by the days of
// the previous month needed to start the first row on Sunday and followed
// by the days of the next month needed to finish the last row on Saturday.
// Each value is midnight of that day.
func DaysForMonthView(t time.Time) []time.Time {
	first := startOfMonth(t)
	last := endOfMonth(t)

	lead := int(first.Weekday())
	trail := 6 - int(last.Weekday())

	days := make([]time.Time, 0, lead+last.Day()+trail)
	for i := lead; i > 0; i-- {
		days = append(days, first.AddDate(0, 0, -i))
	}
	for d := 0; d < last.Day(); d++ {
		days = append(days, first.AddDate(0, 0, d))
	}
	for i := 1; i <= trail; i++ {
		days = append(days, last.AddDate(0, 0, i))
	}
	return days
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

// SameDay reports whether a and b fall on the same calendar day,
// ignoring the time of day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsToday reports whether t is on the current local day.
func IsToday(t time.Time) bool {
	return SameDay(t, time.Now().In(t.Location()))
}

// WeekdayLabels returns the column headers of the view, Sunday first.
func WeekdayLabels() []string {
	out := make([]string, len(weekdayLabels))
	copy(out, weekdayLabels)
	return out
}

// MonthLabel formats t as "<Month> <Year>", e.g. "January 2024".
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}

// FormatDate formats t as "Jan 2, 2006".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// NextMonth returns the first day of the month after t.
func NextMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, 0)
}

// PrevMonth returns the first day of the month before t.
func PrevMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, -1, 0)
}
