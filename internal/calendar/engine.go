// Package calendar turns a reference date, a view mode and a list of
// events into renderable structure: visible ranges, day buckets, month
// grids, hour slots and header labels. Nothing here performs I/O.
package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"roomcal/internal/model"
)

// ViewMode selects the window a view covers.
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
)

// ParseViewMode accepts "month", "week" or "day" (any case).
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ViewMonth, ViewWeek, ViewDay:
		return m, nil
	case "":
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown view mode %q (want month, week or day)", s)
	}
}

// Range is an inclusive span of calendar days.
type Range struct {
	Start model.Date `json:"start"`
	End   model.Date `json:"end"`
}

// Days lists every date in the range in order.
func (r Range) Days() []model.Date {
	var out []model.Date
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) Contains(d model.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Engine holds the few knobs date arithmetic depends on. The zero value
// is usable: weeks start on Sunday, "today" is evaluated in UTC.
type Engine struct {
	WeekStart time.Weekday
	Location  *time.Location
	Now       func() time.Time
}

// Today returns the current date in the engine's location.
func (e Engine) Today() model.Date {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(now().In(loc))
}

// IsToday compares d's day/month/year with the current date.
func (e Engine) IsToday(d model.Date) bool {
	return d == e.Today()
}

// weekOffset is how many days d lies after the start of its week.
func (e Engine) weekOffset(d model.Date) int {
	return (int(d.Weekday()) - int(e.WeekStart) + 7) % 7
}

// VisibleRange computes the dates a view of mode around ref shows.
func (e Engine) VisibleRange(ref model.Date, mode ViewMode) Range {
	switch mode {
	case ViewWeek:
		start := ref.AddDays(-e.weekOffset(ref))
		return Range{Start: start, End: start.AddDays(6)}
	case ViewDay:
		return Range{Start: ref, End: ref}
	default:
		first := ref.FirstOfMonth()
		return Range{Start: first, End: first.AddDays(first.DaysInMonth() - 1)}
	}
}

// LeadingBlanks is the number of empty cells before day 1 in a month grid.
func (e Engine) LeadingBlanks(ref model.Date) int {
	return e.weekOffset(ref.FirstOfMonth())
}

// BucketEvents groups events by their date, keeping only dates inside rng.
// Each day's events are ordered by startTime; events without a startTime
// come last and ties keep their input order.
func (e Engine) BucketEvents(events []model.Event, rng Range) map[model.Date][]model.Event {
	buckets := make(map[model.Date][]model.Event)
	for _, ev := range events {
		if !rng.Contains(ev.Date) {
			continue
		}
		buckets[ev.Date] = append(buckets[ev.Date], ev)
	}
	for _, day := range buckets {
		sort.SliceStable(day, func(i, j int) bool {
			return startsBefore(day[i], day[j])
		})
	}
	return buckets
}

func startsBefore(a, b model.Event) bool {
	switch {
	case a.StartTime == "":
		return false
	case b.StartTime == "":
		return true
	default:
		return a.StartTime < b.StartTime
	}
}

// Cell is one square of a month grid. Blank cells pad the first week.
type Cell struct {
	Blank  bool          `json:"blank"`
	Date   model.Date    `json:"date"`
	Today  bool          `json:"today"`
	Events []model.Event `json:"events"`
}

// MonthGrid returns the leading blanks followed by one cell per day of
// ref's month. Days of adjacent months are never shown.
func (e Engine) MonthGrid(ref model.Date, events []model.Event) []Cell {
	return e.BuildView(ref, ViewMonth, events).Cells()
}

// Schedule is the day view: events by starting hour plus those with no
// start time.
type Schedule struct {
	Date        model.Date        `json:"date"`
	Hours       [24][]model.Event `json:"hours"`
	Unscheduled []model.Event     `json:"unscheduled"`
}

// HourBucket parses the leading digits of the event's startTime.
func HourBucket(ev model.Event) (int, bool) {
	if ev.StartTime == "" {
		return 0, false
	}
	digits := ev.StartTime
	if i := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits = digits[:i]
	}
	hour, err := strconv.Atoi(digits)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// DaySchedule buckets ref's events into hour slots.
func (e Engine) DaySchedule(ref model.Date, events []model.Event) Schedule {
	s := Schedule{Date: ref}
	day := e.BucketEvents(events, Range{Start: ref, End: ref})[ref]
	for _, ev := range day {
		if hour, ok := HourBucket(ev); ok {
			s.Hours[hour] = append(s.Hours[hour], ev)
			continue
		}
		s.Unscheduled = append(s.Unscheduled, ev)
	}
	return s
}

// ShiftReference moves ref one view forward (dir > 0) or back (dir < 0).
// Month navigation lands on the first of the adjacent month.
func (e Engine) ShiftReference(ref model.Date, mode ViewMode, dir int) model.Date {
	step := 1
	if dir < 0 {
		step = -1
	}
	switch mode {
	case ViewWeek:
		return ref.AddDays(7 * step)
	case ViewDay:
		return ref.AddDays(step)
	default:
		return model.NewDate(ref.Year, ref.Month+time.Month(step), 1)
	}
}

// FormatHeader renders the title shown above a view.
func (e Engine) FormatHeader(ref model.Date, mode ViewMode) string {
	switch mode {
	case ViewWeek:
		rng := e.VisibleRange(ref, ViewWeek)
		startMonth := shortMonth(rng.Start.Month)
		endMonth := shortMonth(rng.End.Month)
		if startMonth == endMonth {
			return fmt.Sprintf("%s %d - %d, %d", startMonth, rng.Start.Day, rng.End.Day, rng.Start.Year)
		}
		return fmt.Sprintf("%s %d - %s %d, %d", startMonth, rng.Start.Day, endMonth, rng.End.Day, rng.Start.Year)
	case ViewDay:
		return fmt.Sprintf("%s, %s %d, %d", ref.Weekday(), ref.Month, ref.Day, ref.Year)
	default:
		return fmt.Sprintf("%s %d", ref.Month, ref.Year)
	}
}

func shortMonth(m time.Month) string {
	return m.String()[:3]
}

// FormatClock turns "13:05" into "1:05 PM". Unparsable input is returned
// unchanged; empty input yields "".
func FormatClock(hhmm string) string {
	if hhmm == "" {
		return ""
	}
	h, m, ok := strings.Cut(hhmm, ":")
	hour, err := strconv.Atoi(h)
	if !ok || err != nil {
		return hhmm
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%s %s", hour, m, suffix)
}

// HourLabel renders an hour slot label: 0 → "12 AM", 13 → "1 PM".
func HourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}
