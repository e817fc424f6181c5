package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "roomcal/internal/log"
	"roomcal/internal/model"
)

// ParsedEvent is a VEVENT reduced to what a room calendar can hold.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string
	Color       string

	Start  time.Time
	End    time.Time
	AllDay bool

	// RawRRule, ExDates and RecurrenceID carry recurrence for Expand.
	// Without expansion a recurring event imports as its first occurrence.
	RawRRule     string
	ExDates      []time.Time
	RecurrenceID *time.Time
}

// ParseICS parses an ICS payload. VEVENTs that cannot be read are logged
// and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "location", redactURL(src.Location))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	if out.Summary == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyColor); p != nil && model.ValidColor(p.Value) {
		out.Color = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := parseDateValue(dtStart.Value)
		if err != nil {
			return out, err
		}
		out.Start = start
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			out.End, _ = parseDateValue(dtEnd.Value)
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.Start = start
		if end, err := ve.GetEndAt(); err == nil {
			out.End = end
		}
	}

	for _, p := range ve.Properties {
		switch ical.ComponentProperty(p.IANAToken) {
		case ical.ComponentPropertyExdate:
			for _, v := range strings.Split(p.Value, ",") {
				t, err := parsePropertyTime(&p, v, out.Start.Location())
				if err != nil {
					appLog.Debug("ics skip bad EXDATE", "uid", out.UID, "value", v)
					continue
				}
				out.ExDates = append(out.ExDates, t)
			}
		case ical.ComponentPropertyRecurrenceId:
			t, err := parsePropertyTime(&p, p.Value, out.Start.Location())
			if err != nil {
				return out, err
			}
			out.RecurrenceID = &t
		}
	}
	return out, nil
}

// parsePropertyTime reads one DATE or DATE-TIME value of p. TZID is
// honoured; floating times are taken in fallback.
func parsePropertyTime(p *ical.IANAProperty, v string, fallback *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if isDateValue(p) || len(v) == 8 {
		return parseDateValue(v)
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	loc := fallback
	if tz, ok := p.ICalParameters["TZID"]; ok && len(tz) > 0 {
		l, err := time.LoadLocation(tz[0])
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	return time.ParseInLocation("20060102T150405", v, loc)
}

// isDateValue reports VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func parseDateValue(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return time.Time{}, errors.New("invalid date value " + v)
	}
	return time.Parse("20060102", v[:8])
}

// ToInputs converts parsed events into event inputs. Timed events take
// their date and HH:MM times from loc; all-day events keep their civil
// date and have no times. The room is left for the caller.
func ToInputs(events []ParsedEvent, loc *time.Location) []model.EventInput {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]model.EventInput, 0, len(events))
	for _, ev := range events {
		in := model.EventInput{Title: model.Ptr(ev.Summary)}
		if ev.Description != "" {
			in.Description = model.Ptr(ev.Description)
		}
		if ev.Color != "" {
			in.Color = model.Ptr(ev.Color)
		}

		if ev.AllDay {
			in.Date = model.Ptr(model.DateOf(ev.Start))
		} else {
			start := ev.Start.In(loc)
			in.Date = model.Ptr(model.DateOf(start))
			in.StartTime = model.Ptr(start.Format(clockLayout))
			if !ev.End.IsZero() {
				in.EndTime = model.Ptr(ev.End.In(loc).Format(clockLayout))
			}
		}

		if ev.RawRRule != "" {
			appLog.Info("ics recurring event imported as single occurrence", "uid", ev.UID, "rrule", ev.RawRRule)
		}
		out = append(out, in)
	}
	return out
}
