package schedule

import (
	"cmp"
	"fmt"
	"time"
)

// PlannedCase is one row of a room-day plan, either synthesized or taken from history.
type PlannedCase struct {
	// CaseNumber is the 1-based ordinal of the case within its room-day.
	CaseNumber     int         `json:"caseNumber"`
	ScheduledStart time.Time   `json:"scheduledStart"`
	ScheduledEnd   time.Time   `json:"scheduledEnd"`
	Room           string      `json:"room"`
	ServiceLine    ServiceLine `json:"serviceLine"`
	Cancelled      bool        `json:"cancelled"`
}

// ScheduledMinutes returns the planned case length in minutes.
func (p PlannedCase) ScheduledMinutes() float64 {
	return p.ScheduledEnd.Sub(p.ScheduledStart).Minutes()
}

// SimulatedCase is a planned case together with its realized timeline.
// Cancelled cases carry nil actual times and an empty ActualRoom.
type SimulatedCase struct {
	PlannedCase
	InRoom     *time.Time `json:"inRoom"`
	OutRoom    *time.Time `json:"outRoom"`
	ActualRoom string     `json:"actualRoom"`
}

// ActualMinutes returns the realized case length, or 0 for cancelled cases.
func (s SimulatedCase) ActualMinutes() float64 {
	if s.InRoom == nil || s.OutRoom == nil {
		return 0
	}
	return s.OutRoom.Sub(*s.InRoom).Minutes()
}

// Selection identifies the representative day being planned or simulated.
type Selection struct {
	Month   time.Month
	Weekday time.Weekday
	// Cutoff is how long before midnight of the case date the plan is frozen.
	Cutoff time.Duration
}

// CutoffFromDays converts a day fraction (0.2916666 = 7h = 17:00 the prior day)
// into a duration.
func CutoffFromDays(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour)).Round(time.Second)
}

// AnchorDate returns the first date in the given year and month that falls on weekday.
// Synthetic room-days are laid out on this date.
func AnchorDate(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TimeOfDay returns the offset of t from its own midnight.
func TimeOfDay(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// Day is a calendar date without a location. Unlike a time.Time it compares by
// value, so it is safe as a map key for timestamps parsed with differing offsets.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t in its own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Compare orders days chronologically.
func (d Day) Compare(o Day) int {
	return cmp.Or(cmp.Compare(d.Year, o.Year), cmp.Compare(d.Month, o.Month), cmp.Compare(d.Day, o.Day))
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
