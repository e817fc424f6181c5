package calendar

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"roomcal/internal/model"
)

// Render writes a plain-text view of events for terminals.
func (e Engine) Render(w io.Writer, ref model.Date, mode ViewMode, events []model.Event) error {
	return RenderView(w, e.BuildView(ref, mode, events))
}

// RenderView writes v as plain text. It needs nothing but v, so clients
// can print pages computed by the server.
func RenderView(w io.Writer, v View) error {
	switch v.Mode {
	case ViewWeek:
		return renderWeek(w, v)
	case ViewDay:
		return renderDay(w, v)
	default:
		return renderMonth(w, v)
	}
}

// weekdayNames lists abbreviated day names starting at the weekday of the
// first grid column.
func weekdayNames(first time.Weekday) []string {
	names := make([]string, 7)
	for i := range names {
		names[i] = time.Weekday((int(first) + i) % 7).String()[:3]
	}
	return names
}

func renderMonth(w io.Writer, v View) error {
	var b strings.Builder
	fmt.Fprintln(&b, v.Header)
	first := time.Sunday
	if len(v.Days) > 0 {
		first = time.Weekday((int(v.Days[0].Date.Weekday()) - v.LeadingBlanks + 7) % 7)
	}
	fmt.Fprintln(&b, strings.Join(weekdayNames(first), "  "))

	cells := v.Cells()
	var agenda []Cell
	for i, c := range cells {
		if c.Blank {
			b.WriteString("   ")
		} else {
			mark := " "
			if c.Today {
				mark = "*"
			} else if len(c.Events) > 0 {
				mark = "+"
			}
			fmt.Fprintf(&b, "%2d%s", c.Date.Day, mark)
			if len(c.Events) > 0 {
				agenda = append(agenda, c)
			}
		}
		if i%7 == 6 || i == len(cells)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString("  ")
		}
	}

	for _, c := range agenda {
		fmt.Fprintf(&b, "\n%s\n", c.Date)
		for _, ev := range c.Events {
			b.WriteString(eventLine(ev))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderWeek(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, v.Header)
	for _, d := range v.Days {
		label := fmt.Sprintf("%s %d", d.Date.Weekday().String()[:3], d.Date.Day)
		if d.Today {
			label += " *"
		}
		if len(d.Events) == 0 {
			fmt.Fprintf(tw, "%s\t-\n", label)
			continue
		}
		for i, ev := range d.Events {
			if i > 0 {
				label = ""
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, timeSpan(ev), ev.Title, ev.ID)
		}
	}
	return tw.Flush()
}

func renderDay(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, v.Header)
	for _, slot := range v.Hours {
		for _, ev := range slot.Events {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", slot.Label, timeSpan(ev), ev.Title, ev.ID)
		}
	}
	if len(v.Unscheduled) > 0 {
		fmt.Fprintln(tw, "Unscheduled")
		for _, ev := range v.Unscheduled {
			fmt.Fprintf(tw, "\t\t%s\t%s\n", ev.Title, ev.ID)
		}
	}
	return tw.Flush()
}

func timeSpan(ev model.Event) string {
	if ev.StartTime == "" && ev.EndTime == "" {
		return ""
	}
	return FormatClock(ev.StartTime) + " - " + FormatClock(ev.EndTime)
}

func eventLine(ev model.Event) string {
	if span := timeSpan(ev); span != "" {
		return fmt.Sprintf("  %s  %s  (%s)\n", span, ev.Title, ev.ID)
	}
	return fmt.Sprintf("  %s  (%s)\n", ev.Title, ev.ID)
}
