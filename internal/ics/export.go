package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"monthcal/internal/model"
)

const productID = "-//monthcal//monthcal 1.0//EN"

var (
	propColor     = ical.ComponentProperty("COLOR")
	propRelatedTo = ical.ComponentProperty("RELATED-TO")
)

// Export writes events as a VCALENDAR with one VEVENT per stored event.
// Occurrences are written as concrete events linked to their base event
// through RELATED-TO, so the output matches the store exactly.
func Export(w io.Writer, events []model.Event, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(ev.StartDate.UTC())
		ve.SetEndAt(ev.EndDate.UTC())
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Color != "" {
			ve.SetProperty(propColor, ev.Color)
		}
		if ev.OriginalEventID != "" {
			ve.SetProperty(propRelatedTo, ev.OriginalEventID)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
