package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "roomcal/internal/log"
)

const defaultMaxOccurrences = 500

// ExpandWindow bounds recurrence expansion. Occurrences starting in
// [From, To] are produced, at most Max per recurring event.
type ExpandWindow struct {
	From time.Time
	To   time.Time
	Max  int
}

// Expand turns every recurring event into one event per occurrence inside
// w. RECURRENCE-ID overrides replace the occurrence they name and EXDATEs
// remove theirs. Non-recurring events pass through unchanged whatever
// their date, so a plain import is not narrowed by the window.
func Expand(events []ParsedEvent, w ExpandWindow) ([]ParsedEvent, error) {
	if w.To.Before(w.From) {
		return nil, errors.New("expand: window ends before it starts")
	}
	if w.Max <= 0 {
		w.Max = defaultMaxOccurrences
	}

	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		}
	}

	out := make([]ParsedEvent, 0, len(events))
	for _, ev := range events {
		switch {
		case ev.RecurrenceID != nil:
			// Emitted through its base event.
			if !hasBase(events, ev.UID) {
				out = append(out, ev)
			}
		case ev.RawRRule == "":
			out = append(out, ev)
		default:
			out = append(out, expandRecurring(ev, overrides[ev.UID], w)...)
		}
	}
	return out, nil
}

func hasBase(events []ParsedEvent, uid string) bool {
	for _, ev := range events {
		if ev.UID == uid && ev.RecurrenceID == nil {
			return true
		}
	}
	return false
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, w ExpandWindow) []ParsedEvent {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics bad RRULE, importing first occurrence only", err, "uid", ev.UID, "rrule", ev.RawRRule)
		single := ev
		single.RawRRule = ""
		return []ParsedEvent{single}
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(w.From.In(ev.Start.Location()), w.To.In(ev.Start.Location()), true)
	if len(starts) > w.Max {
		appLog.Error("ics occurrences truncated", fmt.Errorf("more than %d occurrences", w.Max), "uid", ev.UID)
		starts = starts[:w.Max]
	}

	dur := ev.End.Sub(ev.Start)
	if ev.End.IsZero() || dur < 0 {
		dur = 0
	}

	out := make([]ParsedEvent, 0, len(starts))
	for _, start := range starts {
		occ := ev
		occ.RawRRule = ""
		occ.ExDates = nil
		occ.Start = start
		occ.End = time.Time{}
		if dur > 0 {
			occ.End = start.Add(dur)
		}
		if o, ok := overrideFor(overrides, start); ok {
			occ = o
			occ.RecurrenceID = nil
		}
		out = append(out, occ)
	}
	appLog.Debug("ics expanded recurring event", "uid", ev.UID, "occurrences", len(out))
	return out
}

func overrideFor(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}
