package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"orsim/internal/caselog"
	"orsim/internal/schedule"
)

type GeneratorConfig struct {
	Scenario string // "mild", "chaos" or "drift"
	Year     int
	Rooms    int
	Seed     int64
}

const (
	dayStart      = 7*time.Hour + 30*time.Minute
	dayEnd        = 17 * time.Hour
	cancelRate    = 0.05
	addOnRate     = 0.08
	roomSwapRate  = 0.03
	addOnRoomName = "MOR Add On 1"
)

// lineMinutes is the typical booked length per service line.
var lineMinutes = map[schedule.ServiceLine]float64{
	schedule.Urology:         75,
	schedule.Ortho:           150,
	schedule.Otolaryngology:  90,
	schedule.Neurosurgery:    240,
	schedule.PlasticSurgery:  120,
	schedule.VascularSurgery: 180,
	schedule.OBGyn:           90,
	schedule.CTSurgery:       300,
}

type generator struct {
	cfg   GeneratorConfig
	rng   *rand.Rand
	lines []schedule.ServiceLine
}

// Generate builds a year of weekday case events across cfg.Rooms rooms. The same
// config always produces the same events.
func Generate(cfg GeneratorConfig) []caselog.CaseEvent {
	if cfg.Year == 0 {
		cfg.Year = 2019
	}
	if cfg.Rooms <= 0 {
		cfg.Rooms = 8
	}
	g := &generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		lines: []schedule.ServiceLine{
			schedule.Urology, schedule.Ortho, schedule.Otolaryngology, schedule.Neurosurgery,
			schedule.PlasticSurgery, schedule.VascularSurgery, schedule.OBGyn, schedule.CTSurgery,
		},
	}

	var events []caselog.CaseEvent
	start := time.Date(cfg.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	for date := start; date.Before(end); date = date.AddDate(0, 0, 1) {
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		progress := date.Sub(start).Hours() / end.Sub(start).Hours()
		for r := range cfg.Rooms {
			events = append(events, g.roomDay(date, fmt.Sprintf("MOR %02d", r+1), r, progress)...)
		}
		if g.rng.Float64() < 0.3 {
			events = append(events, g.addOnCase(date))
		}
	}
	return events
}

func (g *generator) roomDay(date time.Time, room string, index int, progress float64) []caselog.CaseEvent {
	primary := g.lines[index%len(g.lines)]
	secondary := g.lines[(index+1+int(date.Weekday()))%len(g.lines)]

	var events []caselog.CaseEvent
	cursor := date.Add(dayStart + time.Duration(g.rng.Intn(3))*15*time.Minute)
	var prevOut *time.Time

	for n := 0; ; n++ {
		line := primary
		if g.rng.Float64() < 0.25 {
			line = secondary
		}
		minutes := roundTo5(lineMinutes[line] + g.rng.NormFloat64()*20)
		minutes = math.Max(minutes, 20)
		schedStart := cursor
		schedEnd := schedStart.Add(minutesDuration(minutes))
		if n > 0 && schedEnd.Sub(date) > dayEnd {
			break
		}

		e := caselog.CaseEvent{
			CaseID:         g.caseID(),
			ScheduledRoom:  room,
			ServiceLine:    line,
			ScheduledStart: schedStart,
			ScheduledEnd:   schedEnd,
		}
		booked := date.AddDate(0, 0, -(1 + g.rng.Intn(30))).Add(time.Duration(8+g.rng.Intn(9)) * time.Hour)
		if g.rng.Float64() < addOnRate {
			// Booked the morning of the case, after the plan was frozen.
			booked = date.Add(time.Duration(5+g.rng.Intn(2)) * time.Hour)
		}
		e.OriginalScheduled = &booked

		if g.rng.Float64() < cancelRate {
			cancelledAt := date.Add(-time.Duration(g.rng.Intn(72)) * time.Hour)
			if cancelledAt.Before(booked) {
				cancelledAt = booked.Add(time.Hour)
			}
			e.Cancelled = true
			e.CancelledAt = &cancelledAt
		} else {
			g.realize(&e, room, prevOut, progress)
			prevOut = e.OutRoom
		}
		events = append(events, e)

		gap := time.Duration(20+5*g.rng.Intn(5)) * time.Minute
		cursor = schedEnd.Add(gap)
	}
	return events
}

// realize draws actual times for a completed case.
func (g *generator) realize(e *caselog.CaseEvent, room string, prevOut *time.Time, progress float64) {
	var in time.Time
	if prevOut == nil {
		offset := 5 + g.rng.NormFloat64()*10
		in = e.ScheduledStart.Add(minutesDuration(offset))
	} else {
		turnover := math.Max(5, 25+g.rng.NormFloat64()*8)
		in = prevOut.Add(minutesDuration(turnover))
		if in.Before(e.ScheduledStart.Add(-30 * time.Minute)) {
			in = e.ScheduledStart.Add(-30 * time.Minute)
		}
	}

	delta := g.rng.NormFloat64() * 15
	switch g.cfg.Scenario {
	case "chaos":
		if g.rng.Float64() < 0.2 {
			delta += 30 + g.rng.Float64()*90
		}
	case "drift":
		delta += 40 * progress
	}
	actual := math.Max(10, e.ScheduledMinutes()+delta)
	out := in.Add(minutesDuration(actual))

	used := room
	if g.rng.Float64() < roomSwapRate {
		used = fmt.Sprintf("MOR %02d", 1+g.rng.Intn(g.cfg.Rooms))
	}
	e.UsedRoom = used
	e.InRoom = &in
	e.OutRoom = &out
}

// addOnCase books an emergency case into the add-on room.
func (g *generator) addOnCase(date time.Time) caselog.CaseEvent {
	start := date.Add(time.Duration(9+g.rng.Intn(8)) * time.Hour)
	end := start.Add(time.Duration(60+15*g.rng.Intn(8)) * time.Minute)
	booked := start.Add(-2 * time.Hour)
	in := start.Add(minutesDuration(g.rng.NormFloat64() * 10))
	out := in.Add(end.Sub(start))
	return caselog.CaseEvent{
		CaseID:            g.caseID(),
		ScheduledRoom:     addOnRoomName,
		UsedRoom:          addOnRoomName,
		ServiceLine:       schedule.TraumaSurgery,
		ScheduledStart:    start,
		ScheduledEnd:      end,
		InRoom:            &in,
		OutRoom:           &out,
		OriginalScheduled: &booked,
	}
}

func (g *generator) caseID() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Save writes the events as a case log at path.
func Save(path string, events []caselog.CaseEvent) error {
	store := caselog.NewStore()
	store.Append(events)
	return store.Save(path)
}

func roundTo5(minutes float64) float64 {
	return math.Round(minutes/5) * 5
}

func minutesDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute)).Round(time.Minute)
}
