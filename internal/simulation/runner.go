package simulation

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"orsim/internal/caselog"
	"orsim/internal/metrics"
	"orsim/internal/schedule"
	"orsim/internal/stats"
)

// Options configures an Engine.
type Options struct {
	// Seed fixes every random stream of the run. Zero derives one from the clock.
	Seed int64
	// Workers bounds the rooms (or replicates) processed concurrently.
	Workers int
	// AnchorYear is the year synthetic days are laid out in.
	AnchorYear  int
	IgnoreRooms []string
	Recorder    *metrics.Recorder
}

// Engine runs planning and simulation over a loaded case history. Rooms are
// independent: each gets its own random stream derived from the run seed, so
// results do not depend on worker scheduling.
type Engine struct {
	history *caselog.History
	rooms   []string
	seed    int64
	workers int
	year    int
	rec     *metrics.Recorder
}

// NewEngine prepares an engine over h.
func NewEngine(h *caselog.History, opts Options) *Engine {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Info().Int64("seed", seed).Msg("No seed configured, derived one from the clock")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	year := opts.AnchorYear
	if year == 0 {
		year = 2020
	}
	return &Engine{
		history: h,
		rooms:   h.Rooms(opts.IgnoreRooms),
		seed:    seed,
		workers: workers,
		year:    year,
		rec:     opts.Recorder,
	}
}

// Seed returns the effective run seed.
func (e *Engine) Seed() int64 { return e.seed }

// Rooms returns the in-scope rooms.
func (e *Engine) Rooms() []string { return append([]string(nil), e.rooms...) }

// Plan synthesizes one day for every in-scope room.
func (e *Engine) Plan(ctx context.Context, sel schedule.Selection) ([]schedule.PlannedCase, error) {
	return e.plan(ctx, sel, e.seed, e.workers)
}

// Simulate realizes a planned table. month and weekday select the outcome history.
func (e *Engine) Simulate(ctx context.Context, month time.Month, weekday time.Weekday, planned []schedule.PlannedCase) ([]schedule.SimulatedCase, error) {
	return e.simulate(ctx, month, weekday, planned, e.seed, e.workers)
}

// SelectReal extracts a historical date's plan for the in-scope rooms.
func (e *Engine) SelectReal(date time.Time, cutoff time.Duration) []schedule.PlannedCase {
	return SelectRealSchedule(e.history, date, cutoff, e.rooms)
}

// Replay selects a historical date's plan and simulates it against the outcome
// history of that date's month and weekday.
func (e *Engine) Replay(ctx context.Context, date time.Time, cutoff time.Duration) ([]schedule.PlannedCase, []schedule.SimulatedCase, error) {
	planned := e.SelectReal(date, cutoff)
	if len(planned) == 0 {
		log.Warn().Str("date", date.Format(time.DateOnly)).Msg("No planned cases on historical date")
	}
	simulated, err := e.Simulate(ctx, date.Month(), date.Weekday(), planned)
	if err != nil {
		return nil, nil, err
	}
	return planned, simulated, nil
}

// Replicate is one independent plan and simulate pass.
type Replicate struct {
	Index     int                      `json:"index"`
	RunID     string                   `json:"runId"`
	Seed      int64                    `json:"seed"`
	Planned   []schedule.PlannedCase   `json:"planned"`
	Simulated []schedule.SimulatedCase `json:"simulated"`
}

// Replicate runs n independent replicates, seeded seed+i, across the worker pool.
// Results are returned in replicate order.
func (e *Engine) Replicate(ctx context.Context, sel schedule.Selection, n int) ([]Replicate, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]Replicate, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range n {
		g.Go(func() error {
			seed := e.seed + int64(i)
			planned, err := e.plan(gctx, sel, seed, 1)
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			simulated, err := e.simulate(gctx, sel.Month, sel.Weekday, planned, seed, 1)
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			out[i] = Replicate{
				Index:     i,
				RunID:     uuid.NewString(),
				Seed:      seed,
				Planned:   planned,
				Simulated: simulated,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info().Int("replicates", n).Int64("seed", e.seed).Msg("Replicates complete")
	return out, nil
}

func (e *Engine) plan(ctx context.Context, sel schedule.Selection, seed int64, workers int) ([]schedule.PlannedCase, error) {
	builder := NewScheduleBuilder(e.history, sel, e.year, e.rec)
	perRoom := make([][]schedule.PlannedCase, len(e.rooms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, room := range e.rooms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := stats.NewSource(stats.DeriveSeed(seed, "plan", room))
			perRoom[i] = builder.BuildRoom(room, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []schedule.PlannedCase
	for _, rows := range perRoom {
		out = append(out, rows...)
	}
	schedule.SortPlanned(out)
	e.rec.CasesPlanned(len(out))
	log.Debug().
		Str("month", schedule.MonthLabel(sel.Month)).
		Str("weekday", schedule.WeekdayLabel(sel.Weekday)).
		Int("cases", len(out)).
		Msg("Planned schedule")
	return out, nil
}

func (e *Engine) simulate(ctx context.Context, month time.Month, weekday time.Weekday, planned []schedule.PlannedCase, seed int64, workers int) ([]schedule.SimulatedCase, error) {
	sim := NewOutcomeSimulator(e.history, month, weekday, e.rec)
	rooms, byRoom := schedule.GroupByRoom(planned)
	perRoom := make([][]schedule.SimulatedCase, len(rooms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, room := range rooms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := stats.NewSource(stats.DeriveSeed(seed, "simulate", room))
			perRoom[i] = sim.SimulateRoom(room, byRoom[room], src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]schedule.SimulatedCase, 0, len(planned))
	for _, rows := range perRoom {
		out = append(out, rows...)
	}
	schedule.SortSimulated(out)
	e.rec.CasesSimulated(len(out))
	return out, nil
}
