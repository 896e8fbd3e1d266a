package simulation

import (
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"orsim/internal/caselog"
	"orsim/internal/metrics"
	"orsim/internal/schedule"
	"orsim/internal/stats"
)

const (
	scheduledDurationBandwidth = 0.3
	scheduledTurnoverBandwidth = 0.02
	// dayEndQuantile picks the end-of-day bound from historical scheduled ends.
	dayEndQuantile = 0.9
	// maxRedraws bounds every rejection loop in planning and simulation.
	maxRedraws = 5
	// startRounding is the grid scheduled starts after the first are snapped to.
	startRounding = 5 * time.Minute
)

var (
	scheduledTurnoverFallback = []float64{10, 10, 10, 10}
	scheduledDurationFallback = []float64{60, 60, 60, 60}
)

// roomPlan holds everything fitted once per room for one selection.
type roomPlan struct {
	room        string
	sequence    *CaseSequenceGenerator
	firstStarts *stats.Categorical[time.Duration]
	durations   map[schedule.ServiceLine][]float64
	turnover    *stats.KDE
	turnoverFB  bool
	dayEnd      time.Duration
}

// fitRoomPlan fits the room's planning distributions. It returns nil when the
// room has no applicable history.
func fitRoomPlan(room string, slice []caselog.CaseEvent, rec *metrics.Recorder) *roomPlan {
	if len(slice) == 0 {
		return nil
	}
	ranked := caselog.RankByScheduledStart(slice)

	p := &roomPlan{
		room:      room,
		sequence:  NewCaseSequenceGenerator(ranked, rec),
		durations: make(map[schedule.ServiceLine][]float64),
	}

	var ends []time.Duration
	var firsts []time.Duration
	for _, c := range ranked {
		ends = append(ends, schedule.TimeOfDay(c.ScheduledEnd))
		p.durations[c.ServiceLine] = append(p.durations[c.ServiceLine], c.ScheduledMinutes())
		if c.Order == 1 {
			firsts = append(firsts, schedule.TimeOfDay(c.ScheduledStart).Truncate(time.Minute))
		}
	}
	p.dayEnd = stats.DurationQuantile(ends, dayEndQuantile)
	p.firstStarts, _ = stats.FitCategorical(firsts)
	p.turnover, p.turnoverFB = stats.FitKDEOr(scheduledGaps(ranked), scheduledTurnoverFallback, scheduledTurnoverBandwidth)
	return p
}

// scheduledGaps returns start(k+1) - end(k) in minutes for every pair of
// consecutive ranks on the same date.
func scheduledGaps(ranked []caselog.RankedCase) []float64 {
	var gaps []float64
	for _, day := range caselog.GroupByDate(ranked) {
		byOrder := make(map[int][]caselog.RankedCase)
		for _, c := range day {
			byOrder[c.Order] = append(byOrder[c.Order], c)
		}
		for _, c := range day {
			for _, next := range byOrder[c.Order+1] {
				gaps = append(gaps, next.ScheduledStart.Sub(c.ScheduledEnd).Minutes())
			}
		}
	}
	slices.Sort(gaps)
	return gaps
}

// ScheduleBuilder synthesizes one representative day per room for a selection.
type ScheduleBuilder struct {
	history *caselog.History
	sel     schedule.Selection
	anchor  time.Time
	rec     *metrics.Recorder
}

// NewScheduleBuilder lays synthetic days out on the first matching weekday of the
// selected month in anchorYear.
func NewScheduleBuilder(h *caselog.History, sel schedule.Selection, anchorYear int, rec *metrics.Recorder) *ScheduleBuilder {
	return &ScheduleBuilder{
		history: h,
		sel:     sel,
		anchor:  schedule.AnchorDate(anchorYear, sel.Month, sel.Weekday),
		rec:     rec,
	}
}

// Anchor is the date synthetic cases are placed on.
func (b *ScheduleBuilder) Anchor() time.Time { return b.anchor }

// BuildRoom draws one room-day. An empty result means the room is skipped.
func (b *ScheduleBuilder) BuildRoom(room string, src stats.Source) []schedule.PlannedCase {
	plan := fitRoomPlan(room, b.history.PlanningSlice(room, b.sel), b.rec)
	if plan == nil {
		b.rec.RoomSkipped("no_history")
		log.Debug().Str("room", room).Msg("No planning history for selection, skipping room")
		return nil
	}
	if plan.turnoverFB {
		b.rec.Fallback(metrics.SiteScheduledTurnover)
	}

	slots := plan.sequence.Generate(src)
	if len(slots) == 0 {
		b.rec.RoomSkipped("zero_cases")
		log.Debug().Str("room", room).Msg("Drew zero cases for room")
		return nil
	}
	return b.layOut(plan, slots, src)
}

// dayState is the running accumulator of one room-day being built.
type dayState struct {
	cases   []schedule.PlannedCase
	lastEnd time.Time
}

func (b *ScheduleBuilder) layOut(p *roomPlan, slots []Slot, src stats.Source) []schedule.PlannedCase {
	bound := b.anchor.Add(p.dayEnd)
	st := dayState{cases: make([]schedule.PlannedCase, 0, len(slots))}

	for i, slot := range slots {
		pc := schedule.PlannedCase{
			CaseNumber:  i + 1,
			Room:        p.room,
			ServiceLine: slot.ServiceLine,
			Cancelled:   slot.Cancelled,
		}

		if i == 0 {
			b.rec.Draw(metrics.SiteFirstStart)
			pc.ScheduledStart = b.anchor.Add(p.firstStarts.Sample(src))
			pc.ScheduledEnd = pc.ScheduledStart.Add(minutes(b.drawDuration(p, slot.ServiceLine, src)))
		} else {
			b.rec.Draw(metrics.SiteScheduledTurnover)
			// Overlapping historical bookings give negative gaps; cases never overlap.
			gap := max(p.turnover.SampleRounded(src), 0)
			start := st.lastEnd.Add(minutes(gap)).Round(startRounding)
			if prev := st.cases[i-1]; start.Before(prev.ScheduledStart) {
				start = prev.ScheduledStart
			}

			fitted := false
			for attempt := 0; attempt <= maxRedraws; attempt++ {
				end := start.Add(minutes(b.drawDuration(p, slot.ServiceLine, src)))
				if end.Before(bound) {
					pc.ScheduledStart, pc.ScheduledEnd = start, end
					fitted = true
					break
				}
			}
			if !fitted {
				b.rec.RetriesExhausted(metrics.SiteScheduledDuration)
				b.rec.DayTruncated()
				log.Debug().
					Str("room", p.room).
					Int("kept", len(st.cases)).
					Int("drawn", len(slots)).
					Msg("Case overflows end-of-day bound, truncating room-day")
				break
			}
		}

		st.cases = append(st.cases, pc)
		st.lastEnd = pc.ScheduledEnd
	}
	return st.cases
}

// drawDuration draws a positive scheduled length in whole minutes for line.
func (b *ScheduleBuilder) drawDuration(p *roomPlan, line schedule.ServiceLine, src stats.Source) int {
	samples := p.durations[line]
	k, fb := stats.FitKDEOr(samples, scheduledDurationFallback, scheduledDurationBandwidth)
	if fb {
		b.rec.Fallback(metrics.SiteScheduledDuration)
	}
	for attempt := 0; attempt <= maxRedraws; attempt++ {
		b.rec.Draw(metrics.SiteScheduledDuration)
		if d := k.SampleRounded(src); d >= 1 {
			return d
		}
	}
	b.rec.RetriesExhausted(metrics.SiteScheduledDuration)
	if len(samples) == 0 {
		samples = scheduledDurationFallback
	}
	return max(roundHalfEven(stats.Median(samples)), 1)
}

func minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}
