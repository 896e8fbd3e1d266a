package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"orsim/internal/caselog"
	"orsim/internal/config"
	"orsim/internal/logging"
	"orsim/internal/metrics"
	"orsim/internal/simulation"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose     bool
	showMetrics bool
	datasetPath string

	// Scenario overrides; applied only when the flag is set.
	flagMonth      string
	flagWeekday    string
	flagCutoffDays float64
	flagSeed       int64
	flagWorkers    int
	flagAnchorYear int
	flagIgnore     []string

	cfg      *config.AppConfig
	scenario *config.Scenario
	recorder *metrics.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "orsim",
	Short: "orsim synthesizes operating-room schedules and simulates how they play out",
	Long: `orsim learns from a historical case log how surgical days are planned and how
they actually run. It synthesizes plausible daily OR schedules for a month and
weekday, replays real historical days, and simulates realized case timelines.

Without a subcommand it serves the tools over MCP on stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if datasetPath != "" {
			cfg.DatasetPath = datasetPath
		}

		scenario, err = config.LoadScenario()
		if err != nil {
			return err
		}
		if err := applyScenarioFlags(cmd, scenario); err != nil {
			return err
		}

		recorder = metrics.New()

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataset", cfg.DatasetPath).
			Msg("orsim starting")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if !showMetrics {
			return
		}
		samples, err := recorder.Snapshot()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to gather metrics")
			return
		}
		for _, s := range samples {
			ev := log.Info().Str("metric", s.Name).Float64("value", s.Value)
			for k, v := range s.Labels {
				ev = ev.Str(k, v)
			}
			ev.Msg("Sampler counter")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	pf.BoolVar(&showMetrics, "metrics", false, "log sampler counters when the command finishes")
	pf.StringVar(&datasetPath, "dataset", "", "case-event JSONL file (default $DATASET_PATH or <data>/cases.jsonl)")
	pf.StringVar(&flagMonth, "month", "", "month of the representative day (Jan..Dec)")
	pf.StringVar(&flagWeekday, "weekday", "", "weekday of the representative day (Mon..Sun)")
	pf.Float64Var(&flagCutoffDays, "cutoff-days", config.DefaultCutoffDays, "days before midnight of the case date at which the plan is frozen")
	pf.Int64Var(&flagSeed, "seed", 0, "run seed (0 derives one from the clock)")
	pf.IntVar(&flagWorkers, "workers", 0, "rooms or replicates processed concurrently (default NumCPU)")
	pf.IntVar(&flagAnchorYear, "anchor-year", 0, "year synthetic days are laid out in")
	pf.StringSliceVar(&flagIgnore, "ignore-room", nil, "rooms to leave out (replaces the default list)")
}

// applyScenarioFlags layers explicitly set flags over the loaded scenario.
func applyScenarioFlags(cmd *cobra.Command, s *config.Scenario) error {
	flags := cmd.Flags()
	if flags.Changed("month") {
		s.Month = flagMonth
	}
	if flags.Changed("weekday") {
		s.Weekday = flagWeekday
	}
	if flags.Changed("cutoff-days") {
		s.CutoffDays = flagCutoffDays
	}
	if flags.Changed("seed") {
		s.Seed = flagSeed
	}
	if flags.Changed("workers") {
		s.Workers = flagWorkers
	}
	if flags.Changed("anchor-year") {
		s.AnchorYear = flagAnchorYear
	}
	if flags.Changed("ignore-room") {
		s.IgnoreRooms = flagIgnore
	}
	return s.Validate()
}

// loadHistory reads the configured case log.
func loadHistory() (*caselog.History, error) {
	store := caselog.NewStore()
	if err := store.Load(cfg.DatasetPath); err != nil {
		return nil, err
	}
	first, last := store.Span()
	log.Info().
		Int("cases", store.Count()).
		Str("from", first.Format("2006-01-02")).
		Str("to", last.Format("2006-01-02")).
		Msg("Case history ready")
	return store.History(), nil
}

func newEngine(h *caselog.History) *simulation.Engine {
	return simulation.NewEngine(h, simulation.Options{
		Seed:        scenario.Seed,
		Workers:     scenario.Workers,
		AnchorYear:  scenario.AnchorYear,
		IgnoreRooms: scenario.IgnoreRooms,
		Recorder:    recorder,
	})
}
