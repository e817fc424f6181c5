package ics

import (
	"strings"
	"testing"
	"time"
)

const recurringICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20240301T000000Z
DTSTART:20240304T090000Z
DTEND:20240304T093000Z
RRULE:FREQ=WEEKLY;COUNT=6
EXDATE:20240318T090000Z
SUMMARY:Planning
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20240301T000000Z
RECURRENCE-ID:20240325T090000Z
DTSTART:20240325T130000Z
DTEND:20240325T133000Z
SUMMARY:Planning (moved)
END:VEVENT
BEGIN:VEVENT
UID:once@test
DTSTAMP:20240301T000000Z
DTSTART:20230101T100000Z
SUMMARY:Long ago
END:VEVENT
END:VCALENDAR
`

func TestExpand(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "test"}, []byte(strings.ReplaceAll(recurringICS, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("parsed %d events, want 3", len(parsed))
	}
	if len(parsed[0].ExDates) != 1 || parsed[1].RecurrenceID == nil {
		t.Fatalf("recurrence fields not parsed: %+v / %+v", parsed[0], parsed[1])
	}

	got, err := Expand(parsed, ExpandWindow{
		From: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	// Mar 4, 11, (18 excluded), 25 moved to 13:00; Apr 1 and 8 fall
	// outside the window. The one-off event passes through.
	want := []struct {
		summary string
		start   time.Time
	}{
		{"Planning", time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)},
		{"Planning", time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)},
		{"Planning (moved)", time.Date(2024, time.March, 25, 13, 0, 0, 0, time.UTC)},
		{"Long ago", time.Date(2023, time.January, 1, 10, 0, 0, 0, time.UTC)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Summary != w.summary || !got[i].Start.Equal(w.start) {
			t.Errorf("event %d = %s at %v, want %s at %v", i, got[i].Summary, got[i].Start, w.summary, w.start)
		}
		if got[i].RawRRule != "" || got[i].RecurrenceID != nil {
			t.Errorf("event %d still carries recurrence: %+v", i, got[i])
		}
	}
	if d := got[1].End.Sub(got[1].Start); d != 30*time.Minute {
		t.Errorf("occurrence duration = %v, want 30m", d)
	}
}

func TestExpandCapAndBadRule(t *testing.T) {
	events := []ParsedEvent{
		{UID: "daily", Summary: "Daily", Start: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC), RawRRule: "FREQ=DAILY"},
		{UID: "bad", Summary: "Bad", Start: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC), RawRRule: "FREQ=SOMETIMES"},
	}
	got, err := Expand(events, ExpandWindow{
		From: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		Max:  10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 11 {
		t.Fatalf("got %d events, want 10 capped + 1 fallback", len(got))
	}
	if got[10].Summary != "Bad" || got[10].RawRRule != "" {
		t.Errorf("bad rule fallback = %+v", got[10])
	}

	if _, err := Expand(events, ExpandWindow{From: time.Now(), To: time.Now().Add(-time.Hour)}); err == nil {
		t.Error("expected error for inverted window")
	}
}
