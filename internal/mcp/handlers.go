package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"orsim/internal/schedule"
	"orsim/internal/simulation"
	"orsim/internal/visuals"
)

const maxReplicates = 1000

// PlanOutput is the result of plan_schedule.
type PlanOutput struct {
	Seed     int64                  `json:"seed"`
	Month    string                 `json:"month"`
	Weekday  string                 `json:"weekday"`
	Cutoff   string                 `json:"cutoff"`
	Planned  []schedule.PlannedCase `json:"planned"`
	Gantt    string                 `json:"gantt,omitempty"`
	Report   string                 `json:"report,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// SimulateOutput is the result of simulate_schedule. Replicate runs carry only
// the aggregate.
type SimulateOutput struct {
	Seed       int64                        `json:"seed"`
	Month      string                       `json:"month"`
	Weekday    string                       `json:"weekday"`
	Planned    []schedule.PlannedCase       `json:"planned,omitempty"`
	Simulated  []schedule.SimulatedCase     `json:"simulated,omitempty"`
	Summary    []simulation.RoomSummary     `json:"summary,omitempty"`
	Replicates *simulation.ReplicateSummary `json:"replicates,omitempty"`
	Gantt      string                       `json:"gantt,omitempty"`
	Report     string                       `json:"report,omitempty"`
	Warnings   []string                     `json:"warnings,omitempty"`
}

// ReplayOutput is the result of replay_historical_day.
type ReplayOutput struct {
	Seed      int64                    `json:"seed"`
	Date      string                   `json:"date"`
	Planned   []schedule.PlannedCase   `json:"planned"`
	Simulated []schedule.SimulatedCase `json:"simulated"`
	Summary   []simulation.RoomSummary `json:"summary"`
	Gantt     string                   `json:"gantt,omitempty"`
	Report    string                   `json:"report,omitempty"`
	Warnings  []string                 `json:"warnings,omitempty"`
}

func (s *Server) handlePlanSchedule(ctx context.Context, _ *sdk.CallToolRequest, in PlanInput) (*sdk.CallToolResult, any, error) {
	out, err := s.planSchedule(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out)
}

func (s *Server) planSchedule(ctx context.Context, in PlanInput) (*PlanOutput, error) {
	sel, err := s.selection(in.Month, in.Weekday, in.CutoffDays)
	if err != nil {
		return nil, err
	}
	eng := s.engine(in.Seed)
	planned, err := eng.Plan(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}

	out := &PlanOutput{
		Seed:    eng.Seed(),
		Month:   schedule.MonthLabel(sel.Month),
		Weekday: schedule.WeekdayLabel(sel.Weekday),
		Cutoff:  sel.Cutoff.String(),
		Planned: planned,
	}
	if g, err := visuals.GeneratePlannedGantt(planned, in.Rooms); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	} else {
		out.Gantt = visuals.Fence(g)
	}
	if in.Report {
		name := fmt.Sprintf("plan-%s-%s-%d.html", out.Month, out.Weekday, out.Seed)
		out.Report, err = s.writeReport(name, visuals.Report{
			Title:   fmt.Sprintf("Planned %s %s", out.Month, out.Weekday),
			Planned: planned,
			Rooms:   in.Rooms,
		})
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
		}
	}
	return out, nil
}

func (s *Server) handleSimulateSchedule(ctx context.Context, _ *sdk.CallToolRequest, in SimulateInput) (*sdk.CallToolResult, any, error) {
	out, err := s.simulateSchedule(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out)
}

func (s *Server) simulateSchedule(ctx context.Context, in SimulateInput) (*SimulateOutput, error) {
	if in.Replicates < 0 || in.Replicates > maxReplicates {
		return nil, fmt.Errorf("replicates must be between 0 and %d", maxReplicates)
	}
	sel, err := s.selection(in.Month, in.Weekday, in.CutoffDays)
	if err != nil {
		return nil, err
	}
	eng := s.engine(in.Seed)
	out := &SimulateOutput{
		Seed:    eng.Seed(),
		Month:   schedule.MonthLabel(sel.Month),
		Weekday: schedule.WeekdayLabel(sel.Weekday),
	}

	if in.Replicates > 1 {
		reps, err := eng.Replicate(ctx, sel, in.Replicates)
		if err != nil {
			return nil, fmt.Errorf("replicates failed: %w", err)
		}
		summary := simulation.SummarizeReplicates(reps)
		out.Replicates = &summary
		return out, nil
	}

	planned, err := eng.Plan(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	simulated, err := eng.Simulate(ctx, sel.Month, sel.Weekday, planned)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	out.Planned = planned
	out.Simulated = simulated
	out.Summary = simulation.Summarize(simulated)

	if g, err := visuals.GenerateSimulatedGantt(simulated, in.Rooms); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	} else {
		out.Gantt = visuals.Fence(g)
	}
	if in.Report {
		name := fmt.Sprintf("simulate-%s-%s-%d.html", out.Month, out.Weekday, out.Seed)
		out.Report, err = s.writeReport(name, visuals.Report{
			Title:     fmt.Sprintf("Simulated %s %s", out.Month, out.Weekday),
			Planned:   planned,
			Simulated: simulated,
			Rooms:     in.Rooms,
		})
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
		}
	}
	return out, nil
}

func (s *Server) handleReplayHistoricalDay(ctx context.Context, _ *sdk.CallToolRequest, in ReplayInput) (*sdk.CallToolResult, any, error) {
	out, err := s.replayHistoricalDay(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out)
}

func (s *Server) replayHistoricalDay(ctx context.Context, in ReplayInput) (*ReplayOutput, error) {
	date, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", in.Date)
	}
	cutoff, err := s.cutoff(in.CutoffDays)
	if err != nil {
		return nil, err
	}

	eng := s.engine(in.Seed)
	planned, simulated, err := eng.Replay(ctx, date, cutoff)
	if err != nil {
		return nil, fmt.Errorf("replay failed: %w", err)
	}

	out := &ReplayOutput{
		Seed:      eng.Seed(),
		Date:      in.Date,
		Planned:   planned,
		Simulated: simulated,
		Summary:   simulation.Summarize(simulated),
	}
	if len(planned) == 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("no cases were planned for %s by the cutoff", in.Date))
	}
	if g, err := visuals.GenerateSimulatedGantt(simulated, in.Rooms); err != nil {
		out.Warnings = append(out.Warnings, err.Error())
	} else {
		out.Gantt = visuals.Fence(g)
	}
	if in.Report {
		out.Report, err = s.writeReport(fmt.Sprintf("replay-%s-%d.html", in.Date, out.Seed), visuals.Report{
			Title:     "Replay " + in.Date,
			Planned:   planned,
			Simulated: simulated,
			Rooms:     in.Rooms,
		})
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
		}
	}
	return out, nil
}

// selection resolves tool arguments into a schedule selection.
func (s *Server) selection(month, weekday string, cutoffDays *float64) (schedule.Selection, error) {
	m, err := schedule.ParseMonth(month)
	if err != nil {
		return schedule.Selection{}, err
	}
	d, err := schedule.ParseWeekday(weekday)
	if err != nil {
		return schedule.Selection{}, err
	}
	cutoff, err := s.cutoff(cutoffDays)
	if err != nil {
		return schedule.Selection{}, err
	}
	return schedule.Selection{Month: m, Weekday: d, Cutoff: cutoff}, nil
}

func (s *Server) cutoff(days *float64) (time.Duration, error) {
	if days == nil {
		return schedule.CutoffFromDays(s.scenario.CutoffDays), nil
	}
	if *days < 0 || *days > 30 {
		return 0, fmt.Errorf("cutoff_days %v out of range [0, 30]", *days)
	}
	return schedule.CutoffFromDays(*days), nil
}

func (s *Server) writeReport(name string, r visuals.Report) (string, error) {
	if s.cfg == nil || s.cfg.ReportDir == "" {
		return "", fmt.Errorf("no reports folder configured")
	}
	path := filepath.Join(s.cfg.ReportDir, name)
	if err := visuals.WriteReport(path, r); err != nil {
		return "", err
	}
	if s.cfg.OpenReports {
		if err := visuals.OpenReport(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to open report")
		}
	}
	return path, nil
}

// textResult returns the output both as structured content and as indented JSON text.
func textResult(out any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &sdk.CallToolResult{
		Content:           []sdk.Content{&sdk.TextContent{Text: string(data)}},
		StructuredContent: out,
	}, nil, nil
}
