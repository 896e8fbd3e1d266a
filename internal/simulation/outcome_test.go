package simulation

import (
	"testing"
	"time"

	"orsim/internal/caselog"
	"orsim/internal/schedule"
	"orsim/internal/stats"
)

func planned(n int, line schedule.ServiceLine, start, end string, cancelled bool) schedule.PlannedCase {
	return schedule.PlannedCase{
		CaseNumber: n, Room: "MOR 01", ServiceLine: line,
		ScheduledStart: at(start), ScheduledEnd: at(end), Cancelled: cancelled,
	}
}

func TestOutcomeSimulator_DegenerateHistory(t *testing.T) {
	h := caselog.NewHistory([]caselog.CaseEvent{
		completed("a", "MOR 01", schedule.Urology,
			"2019-04-02 08:00", "2019-04-02 09:00", "2019-04-02 08:10", "2019-04-02 09:20"),
	})
	sim := NewOutcomeSimulator(h, time.April, time.Tuesday, nil)
	plan := []schedule.PlannedCase{planned(1, schedule.Urology, "2020-04-07 08:00", "2020-04-07 09:00", false)}

	for i, src := range []*stats.ScriptedSource{{Uniforms: []float64{0.1}}, {Uniforms: []float64{0.8, 0.4}}} {
		got := sim.SimulateRoom("MOR 01", plan, src)
		if len(got) != 1 {
			t.Fatalf("Source %d: expected 1 row, got %d", i, len(got))
		}
		c := got[0]
		if !c.InRoom.Equal(at("2020-04-07 08:10")) || !c.OutRoom.Equal(at("2020-04-07 09:20")) {
			t.Errorf("Source %d: got %s..%s, want 08:10..09:20", i, c.InRoom, c.OutRoom)
		}
		if c.ActualRoom != "MOR 01" {
			t.Errorf("Source %d: actual room %q", i, c.ActualRoom)
		}
	}
}

func TestOutcomeSimulator_Branches(t *testing.T) {
	empty := caselog.NewHistory(nil)

	// Consecutive Urology cases whose real turnover ran 200 minutes over plan.
	late := caselog.NewHistory([]caselog.CaseEvent{
		completed("a", "MOR 01", schedule.Urology,
			"2019-04-02 08:00", "2019-04-02 09:00", "2019-04-02 08:00", "2019-04-02 09:00"),
		completed("b", "MOR 01", schedule.Urology,
			"2019-04-02 09:30", "2019-04-02 10:30", "2019-04-02 12:50", "2019-04-02 13:50"),
	})

	// A 15-minute case type that always finished 30 minutes early.
	short := caselog.NewHistory([]caselog.CaseEvent{
		completed("a", "MOR 01", schedule.Pain,
			"2019-04-02 08:00", "2019-04-02 09:00", "2019-04-02 08:00", "2019-04-02 08:30"),
	})

	tests := []struct {
		name    string
		history *caselog.History
		plan    []schedule.PlannedCase
		wantIn  []string
		wantOut []string
	}{
		{
			name:    "FallbackAfterCancelled",
			history: empty,
			plan: []schedule.PlannedCase{
				planned(1, schedule.Ortho, "2020-04-07 08:00", "2020-04-07 09:00", true),
				planned(2, schedule.Ortho, "2020-04-07 09:30", "2020-04-07 10:30", false),
			},
			// Deviation fallback is always 10 minutes after a cancelled case.
			wantIn:  []string{"", "2020-04-07 09:40"},
			wantOut: []string{"", "2020-04-07 10:40"},
		},
		{
			name:    "TurnoverFloor",
			history: empty,
			plan: []schedule.PlannedCase{
				planned(1, schedule.Ortho, "2020-04-07 08:00", "2020-04-07 09:00", false),
				planned(2, schedule.Ortho, "2020-04-07 09:00", "2020-04-07 10:00", false),
			},
			// Zero planned gap plus a zero deviation is forced up to 30 minutes.
			wantIn:  []string{"2020-04-07 08:00", "2020-04-07 09:30"},
			wantOut: []string{"2020-04-07 09:00", "2020-04-07 10:30"},
		},
		{
			name:    "TurnoverCeilingExhausted",
			history: late,
			plan: []schedule.PlannedCase{
				planned(1, schedule.Urology, "2020-04-07 08:00", "2020-04-07 09:00", false),
				planned(2, schedule.Urology, "2020-04-07 09:30", "2020-04-07 10:30", false),
			},
			// 30 planned minutes plus the 25-minute fallback.
			wantIn:  []string{"2020-04-07 08:00", "2020-04-07 09:55"},
			wantOut: []string{"2020-04-07 09:00", "2020-04-07 10:55"},
		},
		{
			name:    "MinimumDurationFallback",
			history: short,
			plan: []schedule.PlannedCase{
				planned(1, schedule.Pain, "2020-04-07 08:00", "2020-04-07 08:15", false),
			},
			wantIn:  []string{"2020-04-07 08:00"},
			wantOut: []string{"2020-04-07 08:15"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewOutcomeSimulator(tt.history, time.April, time.Tuesday, nil)
			got := sim.SimulateRoom("MOR 01", tt.plan, &stats.ScriptedSource{Uniforms: []float64{0}})
			if len(got) != len(tt.plan) {
				t.Fatalf("Got %d rows for %d planned cases", len(got), len(tt.plan))
			}
			for i, c := range got {
				if tt.wantIn[i] == "" {
					if c.InRoom != nil || c.OutRoom != nil || c.ActualRoom != "" {
						t.Errorf("Case %d: cancelled case must have no actuals, got %+v", c.CaseNumber, c)
					}
					continue
				}
				if c.InRoom == nil || !c.InRoom.Equal(at(tt.wantIn[i])) {
					t.Errorf("Case %d: in-room %v, want %s", c.CaseNumber, c.InRoom, tt.wantIn[i])
				}
				if c.OutRoom == nil || !c.OutRoom.Equal(at(tt.wantOut[i])) {
					t.Errorf("Case %d: out-room %v, want %s", c.CaseNumber, c.OutRoom, tt.wantOut[i])
				}
			}
		})
	}
}

func TestOutcomeSimulator_Properties(t *testing.T) {
	h := caselog.NewHistory(aprilHistory())
	sim := NewOutcomeSimulator(h, time.April, time.Tuesday, nil)
	plan := []schedule.PlannedCase{
		planned(3, schedule.Ortho, "2020-04-07 12:00", "2020-04-07 12:30", false),
		planned(1, schedule.Ortho, "2020-04-07 07:30", "2020-04-07 09:30", false),
		planned(2, schedule.Urology, "2020-04-07 10:00", "2020-04-07 11:00", true),
		planned(4, schedule.Ortho, "2020-04-07 13:00", "2020-04-07 13:05", false),
		planned(5, schedule.Ortho, "2020-04-07 13:05", "2020-04-07 15:00", false),
	}

	for seed := int64(1); seed <= 200; seed++ {
		got := sim.SimulateRoom("MOR 01", plan, stats.NewSource(seed))
		if len(got) != len(plan) {
			t.Fatalf("Seed %d: %d rows for %d planned cases", seed, len(got), len(plan))
		}
		for i, c := range got {
			if c.CaseNumber != i+1 {
				t.Fatalf("Seed %d: rows out of case-number order", seed)
			}
			if c.Cancelled {
				if c.InRoom != nil || c.OutRoom != nil || c.ActualRoom != "" {
					t.Errorf("Seed %d: cancelled case %d has actuals", seed, c.CaseNumber)
				}
				continue
			}
			if c.ActualMinutes() < minActualMinutes {
				t.Errorf("Seed %d: case %d ran %v minutes", seed, c.CaseNumber, c.ActualMinutes())
			}
			if i > 0 && !got[i-1].Cancelled {
				if gap := c.InRoom.Sub(*got[i-1].OutRoom); gap < minTurnover*time.Minute {
					t.Errorf("Seed %d: case %d turnover %s below floor", seed, c.CaseNumber, gap)
				}
			}
		}
		if got[0].InRoom.Sub(got[0].ScheduledStart).Abs() > maxStartOffset*time.Minute {
			t.Errorf("Seed %d: first-case offset outside the window", seed)
		}
	}
}

func TestFitRoomOutcome(t *testing.T) {
	o := fitRoomOutcome(aprilHistory())
	if len(o.firstOffsets) != 4 {
		t.Errorf("Expected one first-case offset per date, got %v", o.firstOffsets)
	}
	// Only Ortho→Ortho pairs on the same date count.
	if n := len(o.turnoverDevs[schedule.Ortho]); n != 4 {
		t.Errorf("Expected 4 Ortho turnover deviations, got %d", n)
	}
	if n := len(o.turnoverDevs[schedule.Urology]); n != 0 {
		t.Errorf("Expected no Urology turnover deviations, got %d", n)
	}
	if d := o.deltas[schedule.Urology]; len(d) != 2 || d[0] != 15 {
		t.Errorf("Unexpected Urology deltas %v", d)
	}
}

// aprilHistory is four Tuesdays in one room: two Ortho cases, and on two of the
// days a trailing Urology case.
func aprilHistory() []caselog.CaseEvent {
	var out []caselog.CaseEvent
	days := []string{"2019-04-02", "2019-04-09", "2019-04-16", "2019-04-23"}
	secondLen := []string{"11:00", "12:00", "13:00", "11:30"}
	for i, d := range days {
		out = append(out,
			completed(d+"-1", "MOR 01", schedule.Ortho,
				d+" 07:30", d+" 09:30", d+" 07:35", d+" 09:50"),
			completed(d+"-2", "MOR 01", schedule.Ortho,
				d+" 10:00", d+" "+secondLen[i], d+" 10:20", d+" "+secondLen[i]),
		)
		if i%2 == 0 {
			out = append(out, completed(d+"-3", "MOR 01", schedule.Urology,
				d+" 14:00", d+" 15:00", d+" 14:05", d+" 15:20"))
		}
	}
	return out
}
