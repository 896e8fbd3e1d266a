package simulation

import (
	"slices"
	"strings"
	"time"

	"orsim/internal/schedule"
	"orsim/internal/stats"
)

// RoomSummary describes how one simulated room-day went against its plan.
type RoomSummary struct {
	Room      string `json:"room"`
	Cases     int    `json:"cases"`
	Cancelled int    `json:"cancelled"`
	// FirstStartDelay is the first realized in-room time minus the first planned start, in minutes.
	FirstStartDelay float64   `json:"firstStartDelay"`
	PlannedEnd      time.Time `json:"plannedEnd"`
	ActualEnd       time.Time `json:"actualEnd,omitzero"`
	// Overrun is the last realized out-room time minus the last planned end, in minutes.
	Overrun float64 `json:"overrun"`
}

// Summarize reports per-room metrics of a simulated table, sorted by room.
func Summarize(rows []schedule.SimulatedCase) []RoomSummary {
	index := make(map[string]int)
	var out []RoomSummary

	for _, r := range rows {
		i, ok := index[r.Room]
		if !ok {
			i = len(out)
			index[r.Room] = i
			out = append(out, RoomSummary{Room: r.Room})
		}
		s := &out[i]
		s.Cases++
		if r.ScheduledEnd.After(s.PlannedEnd) {
			s.PlannedEnd = r.ScheduledEnd
		}
		if r.Cancelled || r.OutRoom == nil {
			s.Cancelled++
			continue
		}
		if r.OutRoom.After(s.ActualEnd) {
			s.ActualEnd = *r.OutRoom
		}
	}

	firstStarts := make(map[string]time.Time)
	firstIn := make(map[string]time.Time)
	for _, r := range rows {
		if t, ok := firstStarts[r.Room]; !ok || r.ScheduledStart.Before(t) {
			firstStarts[r.Room] = r.ScheduledStart
		}
		if r.InRoom == nil {
			continue
		}
		if t, ok := firstIn[r.Room]; !ok || r.InRoom.Before(t) {
			firstIn[r.Room] = *r.InRoom
		}
	}

	for i := range out {
		s := &out[i]
		if in, ok := firstIn[s.Room]; ok {
			s.FirstStartDelay = in.Sub(firstStarts[s.Room]).Minutes()
		}
		if !s.ActualEnd.IsZero() {
			s.Overrun = s.ActualEnd.Sub(s.PlannedEnd).Minutes()
		}
	}

	slices.SortFunc(out, func(a, b RoomSummary) int { return strings.Compare(a.Room, b.Room) })
	return out
}

// ReplicateSummary aggregates day overrun across replicates.
type ReplicateSummary struct {
	Replicates int `json:"replicates"`
	// Overrun is the distribution of the worst room overrun per replicate.
	Overrun stats.Percentiles            `json:"overrun"`
	PerRoom map[string]stats.Percentiles `json:"perRoom"`
	// MeanCases is the average number of planned cases per replicate.
	MeanCases float64 `json:"meanCases"`
}

// SummarizeReplicates reports P50/P85/P95 of overrun across replicates.
func SummarizeReplicates(reps []Replicate) ReplicateSummary {
	res := ReplicateSummary{
		Replicates: len(reps),
		PerRoom:    make(map[string]stats.Percentiles),
	}
	if len(reps) == 0 {
		return res
	}

	var worst []float64
	perRoom := make(map[string][]float64)
	total := 0
	for _, rep := range reps {
		total += len(rep.Planned)
		var w float64
		seen := false
		for _, rs := range Summarize(rep.Simulated) {
			if rs.ActualEnd.IsZero() {
				continue
			}
			perRoom[rs.Room] = append(perRoom[rs.Room], rs.Overrun)
			if !seen || rs.Overrun > w {
				w, seen = rs.Overrun, true
			}
		}
		if seen {
			worst = append(worst, w)
		}
	}

	res.Overrun = stats.CalculatePercentiles(worst)
	for room, vals := range perRoom {
		res.PerRoom[room] = stats.CalculatePercentiles(vals)
	}
	res.MeanCases = float64(total) / float64(len(reps))
	return res
}
