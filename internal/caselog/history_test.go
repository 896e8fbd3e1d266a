package caselog

import (
	"testing"
	"time"

	"orsim/internal/schedule"
)

const sevenHours = 7 * time.Hour

func TestPlannedByCutoff(t *testing.T) {
	base := CaseEvent{
		CaseID: "x", ScheduledRoom: "MOR 01",
		ScheduledStart: at("2019-04-02 08:00"), ScheduledEnd: at("2019-04-02 09:00"),
	}
	// Freeze for 2019-04-02 with a 7h cutoff is 2019-04-01 17:00.
	tests := []struct {
		name   string
		mutate func(e *CaseEvent)
		want   bool
	}{
		{"UnknownBooking", func(e *CaseEvent) {}, true},
		{"BookedEarly", func(e *CaseEvent) { e.OriginalScheduled = ptr(at("2019-03-20 12:00")) }, true},
		{"AddOn", func(e *CaseEvent) { e.OriginalScheduled = ptr(at("2019-04-01 18:00")) }, false},
		{"CancelledAfterFreeze", func(e *CaseEvent) {
			e.Cancelled = true
			e.CancelledAt = ptr(at("2019-04-02 06:30"))
		}, true},
		{"CancelledBeforeFreeze", func(e *CaseEvent) {
			e.Cancelled = true
			e.CancelledAt = ptr(at("2019-04-01 09:00"))
		}, false},
		{"CancelledUnknownTime", func(e *CaseEvent) { e.Cancelled = true }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			if got := e.PlannedByCutoff(sevenHours); got != tt.want {
				t.Errorf("PlannedByCutoff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistory_Rooms(t *testing.T) {
	h := NewHistory([]CaseEvent{
		{ScheduledRoom: "MOR 02"},
		{ScheduledRoom: "MOR 01"},
		{ScheduledRoom: "MOR Standby 1"},
		{ScheduledRoom: ""},
		{ScheduledRoom: "MOR 01"},
	})
	rooms := h.Rooms([]string{"MOR Standby 1"})
	if len(rooms) != 2 || rooms[0] != "MOR 01" || rooms[1] != "MOR 02" {
		t.Errorf("Unexpected rooms %v", rooms)
	}
}

func TestHistory_Slices(t *testing.T) {
	// 2019-04-02 and 2019-04-09 are Tuesdays; 2019-04-03 is a Wednesday.
	events := []CaseEvent{
		{CaseID: "tue1", ScheduledRoom: "MOR 01", UsedRoom: "MOR 01", ServiceLine: schedule.Ortho,
			ScheduledStart: at("2019-04-02 07:30"), ScheduledEnd: at("2019-04-02 09:30"),
			InRoom: ptr(at("2019-04-02 07:40")), OutRoom: ptr(at("2019-04-02 09:50"))},
		{CaseID: "tue2-moved", ScheduledRoom: "MOR 01", UsedRoom: "MOR 02", ServiceLine: schedule.Ortho,
			ScheduledStart: at("2019-04-09 07:30"), ScheduledEnd: at("2019-04-09 09:30"),
			InRoom: ptr(at("2019-04-09 07:35")), OutRoom: ptr(at("2019-04-09 09:00"))},
		{CaseID: "wed", ScheduledRoom: "MOR 01", UsedRoom: "MOR 01", ServiceLine: schedule.Ortho,
			ScheduledStart: at("2019-04-03 07:30"), ScheduledEnd: at("2019-04-03 09:30"),
			InRoom: ptr(at("2019-04-03 07:30")), OutRoom: ptr(at("2019-04-03 09:30"))},
		{CaseID: "tue-cancelled", ScheduledRoom: "MOR 01", ServiceLine: schedule.Urology,
			ScheduledStart: at("2019-04-02 10:00"), ScheduledEnd: at("2019-04-02 11:00"),
			Cancelled: true, CancelledAt: ptr(at("2019-04-02 08:00"))},
		{CaseID: "may", ScheduledRoom: "MOR 01", UsedRoom: "MOR 01", ServiceLine: schedule.Ortho,
			ScheduledStart: at("2019-05-07 07:30"), ScheduledEnd: at("2019-05-07 09:30"),
			InRoom: ptr(at("2019-05-07 07:30")), OutRoom: ptr(at("2019-05-07 09:30"))},
	}
	h := NewHistory(events)
	sel := schedule.Selection{Month: time.April, Weekday: time.Tuesday, Cutoff: sevenHours}

	plan := h.PlanningSlice("MOR 01", sel)
	if len(plan) != 3 {
		t.Errorf("Expected 3 planning cases (2 Tuesdays + late cancellation), got %d", len(plan))
	}

	out := h.OutcomeSlice("MOR 01", time.April, time.Tuesday)
	if len(out) != 1 || out[0].CaseID != "tue1" {
		t.Errorf("Expected only tue1 in outcome slice, got %+v", out)
	}
	if moved := h.OutcomeSlice("MOR 02", time.April, time.Tuesday); len(moved) != 1 {
		t.Errorf("Outcome slice must key on the used room, got %d", len(moved))
	}

	day := h.DateSlice(at("2019-04-02 00:00"), sevenHours, []string{"MOR 01"})
	if len(day) != 2 {
		t.Errorf("Expected 2 cases on 2019-04-02, got %d", len(day))
	}
	if none := h.DateSlice(at("2019-04-02 00:00"), sevenHours, []string{"MOR 09"}); len(none) != 0 {
		t.Errorf("Expected no cases for an out-of-scope room, got %d", len(none))
	}
}

func TestDenseRank(t *testing.T) {
	events := []CaseEvent{
		{CaseID: "b", ScheduledStart: at("2019-04-02 10:00")},
		{CaseID: "a", ScheduledStart: at("2019-04-02 07:30")},
		{CaseID: "a2", ScheduledStart: at("2019-04-02 07:30")},
		{CaseID: "c", ScheduledStart: at("2019-04-02 13:00")},
		{CaseID: "next-day", ScheduledStart: at("2019-04-09 09:00")},
	}
	ranked := RankByScheduledStart(events)
	want := map[string]int{"a": 1, "a2": 1, "b": 2, "c": 3, "next-day": 1}
	for _, r := range ranked {
		if r.Order != want[r.CaseID] {
			t.Errorf("Case %s: expected rank %d, got %d", r.CaseID, want[r.CaseID], r.Order)
		}
	}

	byRoom := RankByInRoom(events)
	if len(byRoom) != 0 {
		t.Errorf("Cases without in-room times must be dropped, got %d", len(byRoom))
	}

	if groups := GroupByDate(ranked); len(groups) != 2 {
		t.Errorf("Expected 2 dates, got %d", len(groups))
	}
}
