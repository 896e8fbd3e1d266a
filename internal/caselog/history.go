package caselog

import (
	"slices"
	"strings"
	"time"

	"orsim/internal/schedule"
)

// History is a read-only view over loaded case events used to fit distributions.
type History struct {
	events []CaseEvent
}

// NewHistory wraps events; the slice must not be modified afterwards.
func NewHistory(events []CaseEvent) *History {
	return &History{events: events}
}

// Len returns the number of events.
func (h *History) Len() int { return len(h.events) }

// Events returns the underlying events.
func (h *History) Events() []CaseEvent { return h.events }

// Rooms returns the sorted distinct scheduled rooms, minus the ignored ones.
func (h *History) Rooms(ignore []string) []string {
	skip := make(map[string]bool, len(ignore))
	for _, r := range ignore {
		skip[strings.TrimSpace(r)] = true
	}
	seen := make(map[string]bool)
	var rooms []string
	for _, e := range h.events {
		r := strings.TrimSpace(e.ScheduledRoom)
		if r == "" || skip[r] || seen[r] {
			continue
		}
		seen[r] = true
		rooms = append(rooms, r)
	}
	slices.Sort(rooms)
	return rooms
}

// PlanningSlice returns the cases booked into room on the selected month and
// weekday that would have been on the plan at the cutoff.
func (h *History) PlanningSlice(room string, sel schedule.Selection) []CaseEvent {
	var out []CaseEvent
	for _, e := range h.events {
		if e.ScheduledRoom != room || e.ScheduledMonth() != sel.Month || e.ScheduledWeekday() != sel.Weekday {
			continue
		}
		if !e.PlannedByCutoff(sel.Cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// OutcomeSlice returns the completed cases that actually ran in room, with the
// month and weekday taken from the in-room time.
func (h *History) OutcomeSlice(room string, month time.Month, weekday time.Weekday) []CaseEvent {
	var out []CaseEvent
	for _, e := range h.events {
		if !e.Completed() || e.UsedRoom != room {
			continue
		}
		if e.InRoom.Month() != month || e.InRoom.Weekday() != weekday {
			continue
		}
		out = append(out, e)
	}
	return out
}

// DateSlice returns the cases of one calendar date, restricted to rooms and to
// the cutoff inclusion rule.
func (h *History) DateSlice(date time.Time, cutoff time.Duration, rooms []string) []CaseEvent {
	allowed := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		allowed[r] = true
	}
	day := schedule.DayOf(date)
	var out []CaseEvent
	for _, e := range h.events {
		if e.Day() != day || !allowed[e.ScheduledRoom] {
			continue
		}
		if !e.PlannedByCutoff(cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// RankedCase is a case with its dense ordinal within its calendar date.
type RankedCase struct {
	CaseEvent
	Order int
}

// RankByScheduledStart assigns each case its dense rank by scheduled start within
// its date. Cases sharing a start time share a rank.
func RankByScheduledStart(events []CaseEvent) []RankedCase {
	return denseRank(events, func(e CaseEvent) (time.Time, bool) {
		return e.ScheduledStart, true
	})
}

// RankByInRoom ranks completed cases by actual in-room time within their date.
// Cases without an in-room time are dropped.
func RankByInRoom(events []CaseEvent) []RankedCase {
	return denseRank(events, func(e CaseEvent) (time.Time, bool) {
		if e.InRoom == nil {
			return time.Time{}, false
		}
		return *e.InRoom, true
	})
}

func denseRank(events []CaseEvent, key func(CaseEvent) (time.Time, bool)) []RankedCase {
	byDate := make(map[schedule.Day][]int64)
	for _, e := range events {
		if k, ok := key(e); ok {
			d := e.Day()
			byDate[d] = append(byDate[d], k.UnixNano())
		}
	}
	for d, keys := range byDate {
		slices.Sort(keys)
		byDate[d] = slices.Compact(keys)
	}

	out := make([]RankedCase, 0, len(events))
	for _, e := range events {
		k, ok := key(e)
		if !ok {
			continue
		}
		keys := byDate[e.Day()]
		idx, _ := slices.BinarySearch(keys, k.UnixNano())
		out = append(out, RankedCase{CaseEvent: e, Order: idx + 1})
	}
	return out
}

// GroupByDate buckets ranked cases by calendar date.
func GroupByDate(cases []RankedCase) map[schedule.Day][]RankedCase {
	out := make(map[schedule.Day][]RankedCase)
	for _, c := range cases {
		d := c.Day()
		out[d] = append(out[d], c)
	}
	return out
}
