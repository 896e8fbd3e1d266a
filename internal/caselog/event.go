package caselog

import (
	"errors"
	"fmt"
	"time"

	"orsim/internal/schedule"
)

// ErrInvalidEvent marks a case event that violates the dataset invariants.
var ErrInvalidEvent = errors.New("invalid case event")

// CaseEvent is one historical case, completed or cancelled, as delivered by the
// data-loading step. Events are immutable once loaded.
type CaseEvent struct {
	// CaseID is the hospital case identifier.
	CaseID string `json:"caseId"`
	// ScheduledRoom is the room the case was booked into.
	ScheduledRoom string `json:"scheduledRoom"`
	// UsedRoom is the room the case actually ran in (empty when cancelled).
	UsedRoom    string               `json:"usedRoom,omitempty"`
	ServiceLine schedule.ServiceLine `json:"serviceLine"`

	ScheduledStart time.Time `json:"scheduledStart"`
	ScheduledEnd   time.Time `json:"scheduledEnd"`
	// InRoom and OutRoom are the actual wheel-in and wheel-out times.
	InRoom  *time.Time `json:"inRoom,omitempty"`
	OutRoom *time.Time `json:"outRoom,omitempty"`

	// OriginalScheduled is when the case was first put on the schedule.
	OriginalScheduled *time.Time `json:"originalScheduled,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
	Cancelled         bool       `json:"cancelled"`

	// Weekday, Month and CaseDate are derived from ScheduledStart when absent.
	Weekday  string    `json:"weekday,omitempty"`
	Month    string    `json:"month,omitempty"`
	CaseDate time.Time `json:"caseDate,omitzero"`
}

// Validate checks the per-event invariants.
func (e CaseEvent) Validate() error {
	if e.ScheduledStart.IsZero() || e.ScheduledEnd.IsZero() {
		return fmt.Errorf("%w: case %s: missing scheduled times", ErrInvalidEvent, e.CaseID)
	}
	if e.ScheduledEnd.Before(e.ScheduledStart) {
		return fmt.Errorf("%w: case %s: scheduled end before start", ErrInvalidEvent, e.CaseID)
	}
	if !e.Cancelled && e.InRoom != nil && e.OutRoom != nil && e.OutRoom.Before(*e.InRoom) {
		return fmt.Errorf("%w: case %s: out-room before in-room", ErrInvalidEvent, e.CaseID)
	}
	if e.Weekday != "" {
		if _, err := schedule.ParseWeekday(e.Weekday); err != nil {
			return fmt.Errorf("%w: case %s: %v", ErrInvalidEvent, e.CaseID, err)
		}
	}
	if e.Month != "" {
		if _, err := schedule.ParseMonth(e.Month); err != nil {
			return fmt.Errorf("%w: case %s: %v", ErrInvalidEvent, e.CaseID, err)
		}
	}
	return nil
}

// Date is the calendar date the case belongs to.
func (e CaseEvent) Date() time.Time {
	if !e.CaseDate.IsZero() {
		return schedule.DateOf(e.CaseDate)
	}
	return schedule.DateOf(e.ScheduledStart)
}

// Day is the calendar date of the case as a comparable key.
func (e CaseEvent) Day() schedule.Day {
	if !e.CaseDate.IsZero() {
		return schedule.DayOf(e.CaseDate)
	}
	return schedule.DayOf(e.ScheduledStart)
}

// ScheduledWeekday is the weekday label, falling back to the scheduled start.
func (e CaseEvent) ScheduledWeekday() time.Weekday {
	if d, err := schedule.ParseWeekday(e.Weekday); err == nil {
		return d
	}
	return e.ScheduledStart.Weekday()
}

// ScheduledMonth is the month label, falling back to the scheduled start.
func (e CaseEvent) ScheduledMonth() time.Month {
	if m, err := schedule.ParseMonth(e.Month); err == nil {
		return m
	}
	return e.ScheduledStart.Month()
}

// Completed reports whether the case ran and has both actual times.
func (e CaseEvent) Completed() bool {
	return !e.Cancelled && e.InRoom != nil && e.OutRoom != nil
}

// ScheduledMinutes is the booked case length.
func (e CaseEvent) ScheduledMinutes() float64 {
	return e.ScheduledEnd.Sub(e.ScheduledStart).Minutes()
}

// ActualMinutes is the realized case length; zero unless Completed.
func (e CaseEvent) ActualMinutes() float64 {
	if !e.Completed() {
		return 0
	}
	return e.OutRoom.Sub(*e.InRoom).Minutes()
}

// StartOffsetMinutes is actual minus scheduled start; zero unless Completed.
func (e CaseEvent) StartOffsetMinutes() float64 {
	if !e.Completed() {
		return 0
	}
	return e.InRoom.Sub(e.ScheduledStart).Minutes()
}

// PlannedByCutoff reports whether the case would have appeared on the plan frozen
// `cutoff` before midnight of its case date: it was booked before the freeze (or
// its booking time is unknown), and it was not already cancelled at the freeze.
func (e CaseEvent) PlannedByCutoff(cutoff time.Duration) bool {
	freeze := e.Date().Add(-cutoff)
	booked := e.OriginalScheduled == nil || e.OriginalScheduled.Before(freeze)
	live := !e.Cancelled || (e.CancelledAt != nil && e.CancelledAt.After(freeze))
	return booked && live
}
