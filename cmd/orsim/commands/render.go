package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"orsim/internal/schedule"
	"orsim/internal/visuals"
)

var (
	renderPlanned   string
	renderSimulated string
	renderOut       string
	renderTitle     string
	renderRooms     []string
	renderOpen      bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render planned and simulated tables as an HTML gantt report",
	Long: `Render planned and/or simulated tables (JSON, as written by plan, simulate or
replay) into a standalone HTML page with Mermaid gantt charts, a per-room
summary and a service-line colour legend. Every service line must belong to
the known vocabulary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderPlanned == "" && renderSimulated == "" {
			return fmt.Errorf("nothing to render: pass --planned and/or --simulated")
		}

		report := visuals.Report{Title: renderTitle, Rooms: renderRooms}
		var err error
		if renderPlanned != "" {
			if report.Planned, err = schedule.ReadPlannedFile(renderPlanned); err != nil {
				return err
			}
		}
		if renderSimulated != "" {
			if report.Simulated, err = schedule.ReadSimulatedFile(renderSimulated); err != nil {
				return err
			}
		}

		path := renderOut
		if path == "" {
			path = filepath.Join(cfg.ReportDir, fmt.Sprintf("orsim-%s.html", time.Now().Format("20060102-150405")))
		}
		if err := visuals.WriteReport(path, report); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)

		if renderOpen || cfg.OpenReports {
			if err := visuals.OpenReport(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to open report")
			}
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderPlanned, "planned", "", "planned table (JSON)")
	renderCmd.Flags().StringVar(&renderSimulated, "simulated", "", "simulated table (JSON)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "report file (default a timestamped file in REPORTS_FOLDER)")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "report title")
	renderCmd.Flags().StringSliceVar(&renderRooms, "rooms", nil, "only draw these rooms")
	renderCmd.Flags().BoolVar(&renderOpen, "open", false, "open the report in the default browser")

	rootCmd.AddCommand(renderCmd)
}
