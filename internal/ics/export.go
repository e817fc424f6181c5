package ics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"roomcal/internal/model"
)

const (
	clockLayout = "15:04"
	productID   = "-//roomcal//room calendar//EN"

	// propertyRoom records the owning room on exported events.
	propertyRoom ical.ComponentProperty = "X-ROOMCAL-ROOM"
)

// Export writes room's events as a VCALENDAR. Events with a start time
// become timed events in loc; the rest are all-day.
func Export(w io.Writer, room model.Room, events []model.Event, loc *time.Location, now time.Time) error {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(room.Name)
	cal.SetXWRTimezone(loc.String())

	for _, ev := range events {
		vev := cal.AddEvent(ev.ID + "@roomcal")
		vev.SetDtStampTime(now)
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.Color != "" {
			vev.SetProperty(ical.ComponentPropertyColor, ev.Color)
		}
		vev.SetProperty(propertyRoom, strconv.Itoa(ev.RoomID))

		start, ok := clockOn(ev.Date, ev.StartTime, loc)
		if !ok {
			vev.SetAllDayStartAt(ev.Date.In(time.UTC))
			vev.SetAllDayEndAt(ev.Date.AddDays(1).In(time.UTC))
			continue
		}
		vev.SetStartAt(start)

		end, ok := clockOn(ev.Date, ev.EndTime, loc)
		if !ok || end.Before(start) {
			end = start.Add(time.Hour)
		}
		vev.SetEndAt(end)
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("serialize calendar: %w", err)
	}
	return nil
}

// clockOn combines a civil date and an "HH:MM" string in loc.
func clockOn(d model.Date, hhmm string, loc *time.Location) (time.Time, bool) {
	if !model.ValidClock(hhmm) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(clockLayout, hhmm, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc), true
}
