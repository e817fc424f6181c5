package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date with no time-of-day or zone. Events are
// bucketed by exact Date equality, so Date is comparable and usable as a
// map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes out-of-range values the same way time.Date does,
// e.g. NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

var timestampLoc atomic.Pointer[time.Location]

// SetTimestampLocation sets the zone ParseDate reads RFC 3339 timestamps
// in. Browsers send a picked day as local midnight written in UTC, so
// this should be the deployment's timezone. A nil loc restores UTC.
func SetTimestampLocation(loc *time.Location) {
	timestampLoc.Store(loc)
}

// TimestampLocation returns the zone set by SetTimestampLocation.
func TimestampLocation() *time.Location {
	if loc := timestampLoc.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp. Timestamps are
// read in TimestampLocation.
func ParseDate(s string) (Date, error) {
	return ParseDateIn(s, TimestampLocation())
}

// ParseDateIn is ParseDate with an explicit zone for timestamps.
func ParseDateIn(s string, loc *time.Location) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		if loc == nil {
			loc = time.UTC
		}
		return DateOf(t.In(loc)), nil
	}
	return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

// In returns midnight of d in loc. A nil loc means UTC.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// DaysInMonth returns the number of days in d's month.
func (d Date) DaysInMonth() int {
	return NewDate(d.Year, d.Month+1, 0).Day
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.In(time.UTC).Compare(o.In(time.UTC))
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}
