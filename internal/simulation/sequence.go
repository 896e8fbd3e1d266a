package simulation

import (
	"math"
	"slices"

	"orsim/internal/caselog"
	"orsim/internal/metrics"
	"orsim/internal/schedule"
	"orsim/internal/stats"
)

const (
	// caseCountBandwidth smooths the daily case-count density.
	caseCountBandwidth = 0.3
	// sameLineStickiness is the chance that a case following a different drawn
	// service line is switched back to the previous case's line.
	sameLineStickiness = 0.94
)

// Slot is one drawn position of a room-day: which service line runs there and
// whether the case ends up cancelled.
type Slot struct {
	ServiceLine schedule.ServiceLine
	Cancelled   bool
}

// CaseSequenceGenerator draws how many cases a room-day holds and which service
// line fills each ordinal position, from one room/month/weekday planning slice.
type CaseSequenceGenerator struct {
	dailyCounts []float64
	positions   map[int][]Slot
	roomWide    map[schedule.ServiceLine][]bool
	rec         *metrics.Recorder
}

// NewCaseSequenceGenerator fits the generator on cases ranked by scheduled start
// within their date.
func NewCaseSequenceGenerator(ranked []caselog.RankedCase, rec *metrics.Recorder) *CaseSequenceGenerator {
	g := &CaseSequenceGenerator{
		positions: make(map[int][]Slot),
		roomWide:  make(map[schedule.ServiceLine][]bool),
		rec:       rec,
	}

	perDate := make(map[schedule.Day]int)
	var dates []schedule.Day
	for _, c := range ranked {
		d := c.Day()
		if _, ok := perDate[d]; !ok {
			dates = append(dates, d)
		}
		perDate[d]++

		s := Slot{ServiceLine: c.ServiceLine, Cancelled: c.Cancelled}
		g.positions[c.Order] = append(g.positions[c.Order], s)
		g.roomWide[c.ServiceLine] = append(g.roomWide[c.ServiceLine], c.Cancelled)
	}
	slices.SortFunc(dates, schedule.Day.Compare)
	for _, d := range dates {
		g.dailyCounts = append(g.dailyCounts, float64(perDate[d]))
	}
	return g
}

// DrawCount draws the number of cases for the day, floored at zero.
func (g *CaseSequenceGenerator) DrawCount(src stats.Source) int {
	k, err := stats.FitKDE(g.dailyCounts, caseCountBandwidth)
	if err != nil {
		return 0
	}
	g.rec.Draw(metrics.SiteCaseCount)
	return max(k.SampleRounded(src), 0)
}

// DrawSequence draws up to n slots. Generation stops early at the first position
// with no history.
func (g *CaseSequenceGenerator) DrawSequence(n int, src stats.Source) []Slot {
	out := make([]Slot, 0, n)
	for i := 1; i <= n; i++ {
		observed := g.positions[i]
		dist, err := stats.FitCategorical(observed)
		if err != nil {
			break
		}
		g.rec.Draw(metrics.SiteCaseSequence)
		slot := dist.Sample(src)

		if i > 1 {
			prev := out[i-2].ServiceLine
			if slot.ServiceLine != prev && src.Float64() >= 1-sameLineStickiness {
				slot = Slot{
					ServiceLine: prev,
					Cancelled:   g.cancelledFor(prev, observed, slot.Cancelled, src),
				}
			}
		}
		out = append(out, slot)
	}
	return out
}

// Generate draws the count and then the sequence.
func (g *CaseSequenceGenerator) Generate(src stats.Source) []Slot {
	n := g.DrawCount(src)
	if n == 0 {
		return nil
	}
	return g.DrawSequence(n, src)
}

// cancelledFor draws the cancelled flag for a line kept from the previous
// position: from that line's cases at this position, else from the line's
// room-wide history, else the flag drawn with the discarded line.
func (g *CaseSequenceGenerator) cancelledFor(line schedule.ServiceLine, observed []Slot, drawn bool, src stats.Source) bool {
	var flags []bool
	for _, s := range observed {
		if s.ServiceLine == line {
			flags = append(flags, s.Cancelled)
		}
	}
	if len(flags) == 0 {
		flags = g.roomWide[line]
	}
	dist, err := stats.FitCategorical(flags)
	if err != nil {
		return drawn
	}
	return dist.Sample(src)
}

// roundHalfEven rounds minutes the way the sampled draws are rounded.
func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}
