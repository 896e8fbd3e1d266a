package simulation

import (
	"slices"
	"time"

	"orsim/internal/caselog"
	"orsim/internal/metrics"
	"orsim/internal/schedule"
	"orsim/internal/stats"
)

const (
	outcomeBandwidth = 0.3

	// First-case start offsets outside this window are redrawn.
	maxStartOffset = 90
	// A simulated case never runs shorter than this many minutes.
	minActualMinutes = 10

	turnoverCeilingAfterCancelled = 60
	turnoverCeilingAfterCompleted = 120
	// turnoverFallback replaces a turnover draw that kept exceeding its ceiling.
	turnoverFallback = 25

	minTurnover    = 5
	forcedTurnover = 30
)

var (
	startOffsetFallback            = []float64{0, 0, -5, 5, 10, -10}
	durationDeltaFallback          = []float64{0, 0, 0, 0}
	turnoverAfterCancelledFallback = []float64{10, 10, 10, 10}
	turnoverAfterCompletedFallback = []float64{0, 5, 10, 15, 20, 25}
)

// roomOutcome holds the outcome history of one room fitted for one selection.
type roomOutcome struct {
	firstOffsets []float64
	deltas       map[schedule.ServiceLine][]float64
	turnoverDevs map[schedule.ServiceLine][]float64
}

func fitRoomOutcome(slice []caselog.CaseEvent) *roomOutcome {
	o := &roomOutcome{
		deltas:       make(map[schedule.ServiceLine][]float64),
		turnoverDevs: make(map[schedule.ServiceLine][]float64),
	}
	ranked := caselog.RankByInRoom(slice)
	for _, c := range ranked {
		o.deltas[c.ServiceLine] = append(o.deltas[c.ServiceLine], c.ActualMinutes()-c.ScheduledMinutes())
		if c.Order == 1 {
			o.firstOffsets = append(o.firstOffsets, c.StartOffsetMinutes())
		}
	}

	for _, day := range caselog.GroupByDate(ranked) {
		byOrder := make(map[int][]caselog.RankedCase)
		for _, c := range day {
			byOrder[c.Order] = append(byOrder[c.Order], c)
		}
		for _, c := range day {
			for _, next := range byOrder[c.Order+1] {
				if next.ServiceLine != c.ServiceLine || next.UsedRoom != c.UsedRoom {
					continue
				}
				actual := next.InRoom.Sub(*c.OutRoom).Minutes()
				planned := next.ScheduledStart.Sub(c.ScheduledEnd).Minutes()
				o.turnoverDevs[c.ServiceLine] = append(o.turnoverDevs[c.ServiceLine], actual-planned)
			}
		}
	}
	slices.Sort(o.firstOffsets)
	for _, v := range o.turnoverDevs {
		slices.Sort(v)
	}
	return o
}

// OutcomeSimulator turns a planned room-day into a realized timeline.
type OutcomeSimulator struct {
	history *caselog.History
	month   time.Month
	weekday time.Weekday
	rec     *metrics.Recorder
}

// NewOutcomeSimulator fits outcome history for rooms on the given month and weekday.
func NewOutcomeSimulator(h *caselog.History, month time.Month, weekday time.Weekday, rec *metrics.Recorder) *OutcomeSimulator {
	return &OutcomeSimulator{history: h, month: month, weekday: weekday, rec: rec}
}

// SimulateRoom simulates one room's planned cases in case-number order. Every
// planned case yields exactly one simulated case.
func (s *OutcomeSimulator) SimulateRoom(room string, planned []schedule.PlannedCase, src stats.Source) []schedule.SimulatedCase {
	if len(planned) == 0 {
		return nil
	}
	cases := slices.Clone(planned)
	slices.SortStableFunc(cases, func(a, b schedule.PlannedCase) int { return a.CaseNumber - b.CaseNumber })

	hist := fitRoomOutcome(s.history.OutcomeSlice(room, s.month, s.weekday))
	out := make([]schedule.SimulatedCase, 0, len(cases))
	var prev *schedule.SimulatedCase

	for _, pc := range cases {
		sc := schedule.SimulatedCase{PlannedCase: pc}
		switch {
		case pc.Cancelled:
			// No actual times and no room.
		case prev == nil || pc.CaseNumber == 1:
			s.simulateFirst(&sc, hist, src)
		case prev.Cancelled:
			s.simulateAfterCancelled(&sc, hist, src)
		default:
			s.simulateAfterCompleted(&sc, prev, hist, src)
		}
		out = append(out, sc)
		prev = &out[len(out)-1]
	}
	return out
}

func (s *OutcomeSimulator) simulateFirst(sc *schedule.SimulatedCase, hist *roomOutcome, src stats.Source) {
	k, fb := stats.FitKDEOr(hist.firstOffsets, startOffsetFallback, outcomeBandwidth)
	if fb {
		s.rec.Fallback(metrics.SiteStartOffset)
	}
	offset := 0
	ok := false
	for attempt := 0; attempt <= maxRedraws; attempt++ {
		s.rec.Draw(metrics.SiteStartOffset)
		if d := k.SampleRounded(src); d >= -maxStartOffset && d <= maxStartOffset {
			offset, ok = d, true
			break
		}
	}
	if !ok {
		s.rec.RetriesExhausted(metrics.SiteStartOffset)
	}

	start := sc.ScheduledStart.Add(minutes(offset))
	s.finish(sc, start, s.drawActualMinutes(sc.PlannedCase, hist, src))
}

func (s *OutcomeSimulator) simulateAfterCancelled(sc *schedule.SimulatedCase, hist *roomOutcome, src stats.Source) {
	dev := s.drawTurnover(hist.turnoverDevs[sc.ServiceLine], turnoverAfterCancelledFallback,
		turnoverCeilingAfterCancelled, metrics.SiteTurnoverAfterCxl, src)
	start := sc.ScheduledStart.Add(minutes(dev))
	s.finish(sc, start, s.drawActualMinutes(sc.PlannedCase, hist, src))
}

func (s *OutcomeSimulator) simulateAfterCompleted(sc *schedule.SimulatedCase, prev *schedule.SimulatedCase, hist *roomOutcome, src stats.Source) {
	dev := s.drawTurnover(hist.turnoverDevs[sc.ServiceLine], turnoverAfterCompletedFallback,
		turnoverCeilingAfterCompleted, metrics.SiteTurnoverAfterCase, src)

	turnover := sc.ScheduledStart.Sub(prev.ScheduledEnd).Minutes() + float64(dev)
	if turnover < minTurnover {
		turnover = forcedTurnover
	}
	start := prev.OutRoom.Add(fractionalMinutes(turnover))
	s.finish(sc, start, s.drawActualMinutes(sc.PlannedCase, hist, src))
}

func (s *OutcomeSimulator) finish(sc *schedule.SimulatedCase, start time.Time, length float64) {
	end := start.Add(fractionalMinutes(length))
	sc.InRoom = &start
	sc.OutRoom = &end
	sc.ActualRoom = sc.Room
}

// drawTurnover draws a turnover deviation no larger than ceiling, falling back to
// turnoverFallback once the redraws are spent.
func (s *OutcomeSimulator) drawTurnover(samples, fallback []float64, ceiling int, site string, src stats.Source) int {
	k, fb := stats.FitKDEOr(samples, fallback, outcomeBandwidth)
	if fb {
		s.rec.Fallback(site)
	}
	for attempt := 0; attempt <= maxRedraws; attempt++ {
		s.rec.Draw(site)
		if d := k.SampleRounded(src); d <= ceiling {
			return d
		}
	}
	s.rec.RetriesExhausted(site)
	return turnoverFallback
}

// drawActualMinutes draws the realized case length, scheduled length plus a
// sampled delta, never below minActualMinutes.
func (s *OutcomeSimulator) drawActualMinutes(pc schedule.PlannedCase, hist *roomOutcome, src stats.Source) float64 {
	scheduled := pc.ScheduledMinutes()
	k, fb := stats.FitKDEOr(hist.deltas[pc.ServiceLine], durationDeltaFallback, outcomeBandwidth)
	if fb {
		s.rec.Fallback(metrics.SiteDurationDelta)
	}
	for attempt := 0; attempt <= maxRedraws; attempt++ {
		s.rec.Draw(metrics.SiteDurationDelta)
		if d := scheduled + float64(k.SampleRounded(src)); d >= minActualMinutes {
			return d
		}
	}
	s.rec.RetriesExhausted(metrics.SiteDurationDelta)
	return max(scheduled, minActualMinutes)
}

func fractionalMinutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute)).Round(time.Second)
}
