package calendar

import "roomcal/internal/model"

// Day is one visible date with its ordered events.
type Day struct {
	Date   model.Date    `json:"date"`
	Today  bool          `json:"today"`
	Events []model.Event `json:"events"`
}

// HourSlot is one row of the day view.
type HourSlot struct {
	Hour   int           `json:"hour"`
	Label  string        `json:"label"`
	Events []model.Event `json:"events"`
}

// View is a fully computed calendar page: what GET /api/calendar returns
// and what clients render.
type View struct {
	Header        string        `json:"header"`
	Mode          ViewMode      `json:"view"`
	RoomID        int           `json:"roomId,omitempty"`
	Date          model.Date    `json:"date"`
	Start         model.Date    `json:"start"`
	End           model.Date    `json:"end"`
	Prev          model.Date    `json:"prev"`
	Next          model.Date    `json:"next"`
	LeadingBlanks int           `json:"leadingBlanks"`
	Days          []Day         `json:"days"`
	Hours         []HourSlot    `json:"hours,omitempty"`
	Unscheduled   []model.Event `json:"unscheduled,omitempty"`
}

// BuildView computes the page for ref in mode. Event slices are never
// nil so they encode as [].
func (e Engine) BuildView(ref model.Date, mode ViewMode, events []model.Event) View {
	rng := e.VisibleRange(ref, mode)
	buckets := e.BucketEvents(events, rng)

	v := View{
		Header: e.FormatHeader(ref, mode),
		Mode:   mode,
		Date:   ref,
		Start:  rng.Start,
		End:    rng.End,
		Prev:   e.ShiftReference(ref, mode, -1),
		Next:   e.ShiftReference(ref, mode, 1),
	}
	if mode == ViewMonth {
		v.LeadingBlanks = e.LeadingBlanks(ref)
	}
	for _, d := range rng.Days() {
		v.Days = append(v.Days, Day{Date: d, Today: e.IsToday(d), Events: nonNil(buckets[d])})
	}

	if mode == ViewDay {
		sched := e.DaySchedule(ref, events)
		for hour, slot := range sched.Hours {
			v.Hours = append(v.Hours, HourSlot{Hour: hour, Label: HourLabel(hour), Events: nonNil(slot)})
		}
		v.Unscheduled = sched.Unscheduled
	}
	return v
}

// Cells lays v's days out as a grid: LeadingBlanks blank cells, then one
// cell per day.
func (v View) Cells() []Cell {
	cells := make([]Cell, 0, v.LeadingBlanks+len(v.Days))
	for i := 0; i < v.LeadingBlanks; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for _, d := range v.Days {
		cells = append(cells, Cell{Date: d.Date, Today: d.Today, Events: d.Events})
	}
	return cells
}

func nonNil(evs []model.Event) []model.Event {
	if evs == nil {
		return []model.Event{}
	}
	return evs
}
