package simulation

import (
	"context"
	"reflect"
	"testing"
	"time"

	"orsim/internal/caselog"
	"orsim/internal/metrics"
	"orsim/internal/schedule"
)

func checkPlanned(t *testing.T, rows []schedule.PlannedCase) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.Room != cur.Room {
			continue
		}
		if cur.CaseNumber <= prev.CaseNumber {
			t.Errorf("Room %s: case number %d follows %d", cur.Room, cur.CaseNumber, prev.CaseNumber)
		}
		if cur.ScheduledStart.Before(prev.ScheduledStart) {
			t.Errorf("Room %s: case %d starts before case %d", cur.Room, cur.CaseNumber, prev.CaseNumber)
		}
	}
	for _, r := range rows {
		if !r.ScheduledEnd.After(r.ScheduledStart) {
			t.Errorf("Room %s case %d has non-positive length", r.Room, r.CaseNumber)
		}
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	h := caselog.NewHistory(aprilHistory())
	ctx := context.Background()

	for seed := int64(1); seed <= 25; seed++ {
		rec := metrics.New()
		e := NewEngine(h, Options{Seed: seed, Workers: 2, Recorder: rec})

		plan, err := e.Plan(ctx, aprilTuesday)
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		checkPlanned(t, plan)

		sim, err := e.Simulate(ctx, aprilTuesday.Month, aprilTuesday.Weekday, plan)
		if err != nil {
			t.Fatalf("Simulate failed: %v", err)
		}
		if len(sim) != len(plan) {
			t.Fatalf("Seed %d: %d simulated rows for %d planned", seed, len(sim), len(plan))
		}
		for i := range sim {
			if sim[i].Room != plan[i].Room || sim[i].CaseNumber != plan[i].CaseNumber {
				t.Errorf("Seed %d row %d: simulated %s/%d, planned %s/%d", seed, i,
					sim[i].Room, sim[i].CaseNumber, plan[i].Room, plan[i].CaseNumber)
			}
			if sim[i].Cancelled {
				if sim[i].InRoom != nil || sim[i].ActualRoom != "" {
					t.Errorf("Seed %d: cancelled row carries actuals", seed)
				}
			} else if sim[i].ActualMinutes() < minActualMinutes {
				t.Errorf("Seed %d: row %d ran %v minutes", seed, i, sim[i].ActualMinutes())
			}
		}
		if got := counterValue(t, rec, "orsim_cases_simulated_total"); got != float64(len(sim)) {
			t.Errorf("Seed %d: simulated counter %v, rows %d", seed, got, len(sim))
		}
	}
}

func TestEngine_SeedReproducible(t *testing.T) {
	h := caselog.NewHistory(aprilHistory())
	ctx := context.Background()

	a := NewEngine(h, Options{Seed: 99, Workers: 1})
	b := NewEngine(h, Options{Seed: 99, Workers: 8})

	planA, _ := a.Plan(ctx, aprilTuesday)
	planB, _ := b.Plan(ctx, aprilTuesday)
	if !reflect.DeepEqual(planA, planB) {
		t.Fatal("Same seed produced different plans across worker counts")
	}
	simA, _ := a.Simulate(ctx, time.April, time.Tuesday, planA)
	simB, _ := b.Simulate(ctx, time.April, time.Tuesday, planB)
	if !reflect.DeepEqual(simA, simB) {
		t.Fatal("Same seed produced different simulations")
	}

	reps, err := a.Replicate(ctx, aprilTuesday, 3)
	if err != nil {
		t.Fatalf("Replicate failed: %v", err)
	}
	if len(reps) != 3 {
		t.Fatalf("Expected 3 replicates, got %d", len(reps))
	}
	for i, r := range reps {
		if r.Index != i || r.Seed != 99+int64(i) || r.RunID == "" {
			t.Errorf("Replicate %d has index %d seed %d id %q", i, r.Index, r.Seed, r.RunID)
		}
		if len(r.Simulated) != len(r.Planned) {
			t.Errorf("Replicate %d: %d simulated for %d planned", i, len(r.Simulated), len(r.Planned))
		}
	}
	if !reflect.DeepEqual(reps[0].Planned, planA) {
		t.Error("Replicate 0 should reproduce the run seed's plan")
	}
}

func TestEngine_Cancelled(t *testing.T) {
	e := NewEngine(caselog.NewHistory(aprilHistory()), Options{Seed: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Plan(ctx, aprilTuesday); err == nil {
		t.Error("Expected a cancelled context to abort planning")
	}
}

func TestSelectRealSchedule(t *testing.T) {
	addOn := scheduled("addon", "MOR 01", schedule.Ortho, "2019-04-02 15:00", "2019-04-02 16:00")
	addOn.OriginalScheduled = ptr(at("2019-04-02 06:00"))
	lateCxl := scheduled("late-cxl", "MOR 01", schedule.Urology, "2019-04-02 08:00", "2019-04-02 09:00")
	lateCxl.Cancelled = true
	lateCxl.CancelledAt = ptr(at("2019-04-02 07:00"))
	earlyCxl := scheduled("early-cxl", "MOR 02", schedule.Urology, "2019-04-02 08:00", "2019-04-02 09:00")
	earlyCxl.Cancelled = true
	earlyCxl.CancelledAt = ptr(at("2019-03-30 07:00"))

	h := caselog.NewHistory([]caselog.CaseEvent{
		scheduled("b2", "MOR 02", schedule.Ortho, "2019-04-02 11:00", "2019-04-02 12:00"),
		scheduled("a2", "MOR 01", schedule.Ortho, "2019-04-02 10:00", "2019-04-02 11:00"),
		scheduled("b1", "MOR 02", schedule.Ortho, "2019-04-02 07:30", "2019-04-02 10:00"),
		addOn, lateCxl, earlyCxl,
		scheduled("standby", "MOR Standby 1", schedule.Ortho, "2019-04-02 07:30", "2019-04-02 09:00"),
		scheduled("other-day", "MOR 01", schedule.Ortho, "2019-04-03 07:30", "2019-04-03 09:00"),
	})
	e := NewEngine(h, Options{Seed: 1, IgnoreRooms: []string{"MOR Standby 1"}})

	got := e.SelectReal(at("2019-04-02 00:00"), 7*time.Hour)
	want := []struct {
		room string
		n    int
		line schedule.ServiceLine
	}{
		{"MOR 01", 1, schedule.Urology},
		{"MOR 01", 2, schedule.Ortho},
		{"MOR 02", 1, schedule.Ortho},
		{"MOR 02", 2, schedule.Ortho},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d cases, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Room != w.room || got[i].CaseNumber != w.n || got[i].ServiceLine != w.line {
			t.Errorf("Row %d = %s/%d/%s, want %s/%d/%s", i,
				got[i].Room, got[i].CaseNumber, got[i].ServiceLine, w.room, w.n, w.line)
		}
		if got[i].Cancelled {
			t.Errorf("Row %d: historical cases must be planned as not cancelled", i)
		}
	}

	planned, simulated, err := e.Replay(context.Background(), at("2019-04-02 00:00"), 7*time.Hour)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(planned) != 4 || len(simulated) != 4 {
		t.Errorf("Replay returned %d planned and %d simulated rows", len(planned), len(simulated))
	}
}

func TestSelectRealSchedule_TiedStarts(t *testing.T) {
	h := caselog.NewHistory([]caselog.CaseEvent{
		scheduled("t-b", "MOR 01", schedule.Ortho, "2019-04-02 07:30", "2019-04-02 09:00"),
		scheduled("t-a", "MOR 01", schedule.Urology, "2019-04-02 07:30", "2019-04-02 08:30"),
		scheduled("t-c", "MOR 01", schedule.Ortho, "2019-04-02 10:00", "2019-04-02 11:00"),
	})
	e := NewEngine(h, Options{Seed: 3})

	got := e.SelectReal(at("2019-04-02 00:00"), 7*time.Hour)
	if len(got) != 3 {
		t.Fatalf("Expected 3 cases, got %d", len(got))
	}
	wantLines := []schedule.ServiceLine{schedule.Urology, schedule.Ortho, schedule.Ortho}
	for i, pc := range got {
		if pc.CaseNumber != i+1 {
			t.Errorf("Row %d: expected case number %d, got %d", i, i+1, pc.CaseNumber)
		}
		if pc.ServiceLine != wantLines[i] {
			t.Errorf("Row %d: expected %s, got %s", i, wantLines[i], pc.ServiceLine)
		}
	}

	_, simulated, err := e.Replay(context.Background(), at("2019-04-02 00:00"), 7*time.Hour)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	for i := 1; i < len(simulated); i++ {
		if simulated[i].CaseNumber <= simulated[i-1].CaseNumber {
			t.Errorf("Case numbers must be strictly increasing, got %d after %d",
				simulated[i].CaseNumber, simulated[i-1].CaseNumber)
		}
	}
}

func TestSummarize(t *testing.T) {
	c1 := planned(1, schedule.Ortho, "2020-04-07 08:00", "2020-04-07 09:00", false)
	c2 := planned(2, schedule.Ortho, "2020-04-07 09:30", "2020-04-07 10:30", false)
	b1 := planned(1, schedule.Pain, "2020-04-07 08:00", "2020-04-07 09:00", true)
	b1.Room = "MOR 02"

	run := func(lastOut string) []schedule.SimulatedCase {
		return []schedule.SimulatedCase{
			{PlannedCase: c1, InRoom: ptr(at("2020-04-07 08:10")), OutRoom: ptr(at("2020-04-07 09:15")), ActualRoom: "MOR 01"},
			{PlannedCase: c2, InRoom: ptr(at("2020-04-07 09:45")), OutRoom: ptr(at(lastOut)), ActualRoom: "MOR 01"},
			{PlannedCase: b1},
		}
	}

	sum := Summarize(run("2020-04-07 10:50"))
	if len(sum) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(sum))
	}
	a, b := sum[0], sum[1]
	if a.Room != "MOR 01" || a.Cases != 2 || a.Cancelled != 0 {
		t.Errorf("Unexpected MOR 01 summary %+v", a)
	}
	if a.FirstStartDelay != 10 || a.Overrun != 20 {
		t.Errorf("MOR 01 delay %v overrun %v, want 10 and 20", a.FirstStartDelay, a.Overrun)
	}
	if b.Cancelled != 1 || !b.ActualEnd.IsZero() || b.Overrun != 0 {
		t.Errorf("Unexpected MOR 02 summary %+v", b)
	}

	reps := []Replicate{
		{Planned: []schedule.PlannedCase{c1, c2, b1}, Simulated: run("2020-04-07 10:50")},
		{Planned: []schedule.PlannedCase{c1, c2}, Simulated: run("2020-04-07 11:10")},
	}
	rs := SummarizeReplicates(reps)
	if rs.Replicates != 2 || rs.MeanCases != 2.5 {
		t.Errorf("Unexpected replicate summary %+v", rs)
	}
	if rs.Overrun.P50 != 40 || rs.PerRoom["MOR 01"].P50 != 40 {
		t.Errorf("Overrun percentiles %+v", rs.Overrun)
	}
	if _, ok := rs.PerRoom["MOR 02"]; ok {
		t.Error("A fully cancelled room has no overrun")
	}
}
