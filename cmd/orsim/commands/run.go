package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"orsim/internal/schedule"
	"orsim/internal/simulation"
)

var (
	planOut      output
	simulateOut  output
	replayOut    output
	replicateOut output

	plannedInput   string
	replayDate     string
	replayPlanOut  string
	replicateCount int
	replicateFull  bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Synthesize a planned schedule for the selected month and weekday",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := planOut.validate(); err != nil {
			return err
		}
		sel, err := scenario.Selection()
		if err != nil {
			return err
		}
		h, err := loadHistory()
		if err != nil {
			return err
		}
		eng := newEngine(h)
		planned, err := eng.Plan(cmd.Context(), sel)
		if err != nil {
			return err
		}
		log.Info().Int64("seed", eng.Seed()).Int("cases", len(planned)).Msg("Schedule planned")
		return planOut.planned(planned)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate realized timelines for a planned schedule",
	Long: `Simulate realized case timelines against the outcome history of the selected
month and weekday. The plan is synthesized first unless --planned names a
planned table written by "orsim plan".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := simulateOut.validate(); err != nil {
			return err
		}
		sel, err := scenario.Selection()
		if err != nil {
			return err
		}
		h, err := loadHistory()
		if err != nil {
			return err
		}
		eng := newEngine(h)

		var planned []schedule.PlannedCase
		if plannedInput != "" {
			planned, err = schedule.ReadPlannedFile(plannedInput)
		} else {
			planned, err = eng.Plan(cmd.Context(), sel)
		}
		if err != nil {
			return err
		}

		simulated, err := eng.Simulate(cmd.Context(), sel.Month, sel.Weekday, planned)
		if err != nil {
			return err
		}
		logSummary(simulated)
		return simulateOut.simulated(simulated)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Simulate the schedule that was actually planned for a historical date",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := replayOut.validate(); err != nil {
			return err
		}
		date, err := time.Parse(time.DateOnly, replayDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", replayDate)
		}
		h, err := loadHistory()
		if err != nil {
			return err
		}
		eng := newEngine(h)
		planned, simulated, err := eng.Replay(cmd.Context(), date, schedule.CutoffFromDays(scenario.CutoffDays))
		if err != nil {
			return err
		}
		if replayPlanOut != "" {
			if err := (output{format: formatJSON, path: replayPlanOut}).planned(planned); err != nil {
				return err
			}
		}
		logSummary(simulated)
		return replayOut.simulated(simulated)
	},
}

// replicateReport is the document written by the replicate command.
type replicateReport struct {
	Seed       int64                       `json:"seed"`
	Month      string                      `json:"month"`
	Weekday    string                      `json:"weekday"`
	Summary    simulation.ReplicateSummary `json:"summary"`
	Replicates []simulation.Replicate      `json:"replicates,omitempty"`
}

var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run independent plan and simulate replicates and summarize day overrun",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := scenario.Selection()
		if err != nil {
			return err
		}
		n := scenario.Replicates
		if cmd.Flags().Changed("count") {
			n = replicateCount
		}
		if n <= 0 {
			return fmt.Errorf("replicate count must be positive, got %d", n)
		}
		h, err := loadHistory()
		if err != nil {
			return err
		}
		eng := newEngine(h)
		reps, err := eng.Replicate(cmd.Context(), sel, n)
		if err != nil {
			return err
		}

		report := replicateReport{
			Seed:    eng.Seed(),
			Month:   schedule.MonthLabel(sel.Month),
			Weekday: schedule.WeekdayLabel(sel.Weekday),
			Summary: simulation.SummarizeReplicates(reps),
		}
		if replicateFull {
			report.Replicates = reps
		}
		log.Info().
			Int("replicates", n).
			Float64("p50", report.Summary.Overrun.P50).
			Float64("p85", report.Summary.Overrun.P85).
			Float64("p95", report.Summary.Overrun.P95).
			Msg("Worst-room overrun across replicates (minutes)")
		return replicateOut.document(report)
	},
}

func logSummary(rows []schedule.SimulatedCase) {
	for _, s := range simulation.Summarize(rows) {
		log.Info().
			Str("room", s.Room).
			Int("cases", s.Cases).
			Int("cancelled", s.Cancelled).
			Float64("firstStartDelay", s.FirstStartDelay).
			Float64("overrun", s.Overrun).
			Msg("Room day")
	}
}

func addOutputFlags(cmd *cobra.Command, o *output, tables bool) {
	cmd.Flags().StringVarP(&o.path, "out", "o", "", "output file (default stdout)")
	if tables {
		cmd.Flags().StringVar(&o.format, "format", formatJSON, "table format: json or csv")
	} else {
		o.format = formatJSON
	}
}

func init() {
	addOutputFlags(planCmd, &planOut, true)
	addOutputFlags(simulateCmd, &simulateOut, true)
	addOutputFlags(replayCmd, &replayOut, true)
	addOutputFlags(replicateCmd, &replicateOut, false)

	simulateCmd.Flags().StringVar(&plannedInput, "planned", "", "planned table (JSON) to simulate instead of synthesizing one")

	replayCmd.Flags().StringVar(&replayDate, "date", "", "historical case date (YYYY-MM-DD)")
	replayCmd.Flags().StringVar(&replayPlanOut, "planned-out", "", "also write the historical plan as JSON to this file")
	_ = replayCmd.MarkFlagRequired("date")

	replicateCmd.Flags().IntVarP(&replicateCount, "count", "n", 0, "number of replicates (default from scenario)")
	replicateCmd.Flags().BoolVar(&replicateFull, "full", false, "include every replicate's tables in the output")

	rootCmd.AddCommand(planCmd, simulateCmd, replayCmd, replicateCmd)
}
