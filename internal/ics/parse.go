package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const untitled = "Untitled"

// Parse reads the VEVENTs of an iCalendar payload as event inputs ready
// for the scheduling engine.
//
//   - A VEVENT that cannot be converted is logged and skipped; the rest of
//     the payload is still returned.
//   - RECURRENCE-ID overrides are skipped since single-occurrence
//     exceptions are not modelled. EXDATEs are ignored.
//   - All-day events (DTSTART without a time part) without DTEND last one day.
func Parse(body []byte) ([]model.EventInput, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]model.EventInput, 0)
	for _, ve := range cal.Events() {
		uid := ""
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			uid = p.Value
		}
		// Raw property name; the constant differs between library versions.
		if ve.GetProperty("RECURRENCE-ID") != nil {
			appLog.Debug("ics override skipped", "uid", uid)
			continue
		}

		in, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "uid", uid)
			continue
		}
		out = append(out, in)
	}

	appLog.Info("ics parse completed", "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (model.EventInput, error) {
	var in model.EventInput

	in.Title = untitled
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && strings.TrimSpace(p.Value) != "" {
		in.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		in.Description = p.Value
	}
	if p := ve.GetProperty(propColor); p != nil {
		in.Color = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return in, err
	}
	in.StartDate = start

	allDay := false
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil && !strings.Contains(p.Value, "T") {
		allDay = true
	}

	end, err := ve.GetEndAt()
	switch {
	case err == nil && !end.Before(start):
		in.EndDate = end
	case allDay:
		in.EndDate = start.AddDate(0, 0, 1)
	default:
		in.EndDate = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rule, err := recurrenceFromRRule(p.Value, start)
		if err != nil {
			return in, err
		}
		in.IsRecurring = true
		in.Recurrence = rule
	}

	if ve.GetProperty(ical.ComponentPropertyExdate) != nil {
		appLog.Warn("ics EXDATE ignored", "title", in.Title)
	}

	return in, in.Validate()
}

// recurrenceFromRRule maps an RRULE onto the rule types the engine can
// expand. COUNT is turned into an end date by evaluating the rule.
func recurrenceFromRRule(value string, start time.Time) (*model.Recurrence, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, err
	}

	unsupported := &model.ConfigurationError{Setting: "RRULE", Value: value}
	rule := &model.Recurrence{Interval: opt.Interval}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		rule.Type = model.RecurrenceDaily
	case rrule.WEEKLY:
		if len(opt.Byweekday) == 0 {
			rule.Type = model.RecurrenceCustom
			break
		}
		// Weekday rules always repeat every week.
		if rule.Interval != 1 {
			return nil, unsupported
		}
		rule.Type = model.RecurrenceWeekly
		for i := range opt.Byweekday {
			// rrule counts from Monday = 0, the engine from Sunday = 0.
			rule.DaysOfWeek = append(rule.DaysOfWeek, (opt.Byweekday[i].Day()+1)%7)
		}
	case rrule.MONTHLY:
		if len(opt.Bymonthday) > 0 || len(opt.Byweekday) > 0 {
			return nil, unsupported
		}
		rule.Type = model.RecurrenceMonthly
	default:
		return nil, unsupported
	}

	switch {
	case !opt.Until.IsZero():
		until := opt.Until
		rule.EndDate = &until
	case opt.Count > 0:
		opt.Dtstart = start
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, err
		}
		if all := r.All(); len(all) > 0 {
			last := all[len(all)-1]
			rule.EndDate = &last
		}
	}

	return rule, nil
}
