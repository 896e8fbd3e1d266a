package simulation

import (
	"slices"
	"strings"
	"time"

	"orsim/internal/caselog"
	"orsim/internal/schedule"
)

// SelectRealSchedule extracts the plan of one historical date as it stood at the
// cutoff, restricted to rooms. Cancellation outcomes are not carried over: every
// case is returned as not cancelled. Case numbers count cases in scheduled start
// order within each room; cases booked at the same time are ordered by case ID so
// numbers stay strictly increasing.
func SelectRealSchedule(h *caselog.History, date time.Time, cutoff time.Duration, rooms []string) []schedule.PlannedCase {
	events := h.DateSlice(date, cutoff, rooms)
	slices.SortStableFunc(events, func(a, b caselog.CaseEvent) int {
		if c := strings.Compare(a.ScheduledRoom, b.ScheduledRoom); c != 0 {
			return c
		}
		if c := a.ScheduledStart.Compare(b.ScheduledStart); c != 0 {
			return c
		}
		return strings.Compare(a.CaseID, b.CaseID)
	})

	out := make([]schedule.PlannedCase, 0, len(events))
	n := 0
	for i, e := range events {
		if i == 0 || e.ScheduledRoom != events[i-1].ScheduledRoom {
			n = 0
		}
		n++
		out = append(out, schedule.PlannedCase{
			CaseNumber:     n,
			ScheduledStart: e.ScheduledStart,
			ScheduledEnd:   e.ScheduledEnd,
			Room:           e.ScheduledRoom,
			ServiceLine:    e.ServiceLine,
		})
	}
	return out
}
