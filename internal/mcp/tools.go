package mcp

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"orsim/internal/schedule"
)

// PlanInput selects the representative day to synthesize.
type PlanInput struct {
	Month      string   `json:"month" jsonschema:"Month of the representative day (Jan..Dec)"`
	Weekday    string   `json:"weekday" jsonschema:"Weekday of the representative day (Mon..Sun)"`
	CutoffDays *float64 `json:"cutoff_days,omitempty" jsonschema:"Days before midnight of the case date at which the plan is frozen. Default: 0.2916666 (17:00 the day before)."`
	Seed       int64    `json:"seed,omitempty" jsonschema:"Optional run seed. Same seed and history give the same schedule."`
	Rooms      []string `json:"rooms,omitempty" jsonschema:"Optional rooms to draw in the gantt chart. All rooms are still planned."`
	Report     bool     `json:"write_report,omitempty" jsonschema:"If true, writes an HTML report to the reports folder."`
}

// SimulateInput plans a representative day and realizes it.
type SimulateInput struct {
	Month      string   `json:"month" jsonschema:"Month of the representative day (Jan..Dec)"`
	Weekday    string   `json:"weekday" jsonschema:"Weekday of the representative day (Mon..Sun)"`
	CutoffDays *float64 `json:"cutoff_days,omitempty" jsonschema:"Days before midnight of the case date at which the plan is frozen. Default: 0.2916666."`
	Seed       int64    `json:"seed,omitempty" jsonschema:"Optional run seed."`
	Rooms      []string `json:"rooms,omitempty" jsonschema:"Optional rooms to draw in the gantt chart."`
	Report     bool     `json:"write_report,omitempty" jsonschema:"If true, writes an HTML report to the reports folder."`
	Replicates int      `json:"replicates,omitempty" jsonschema:"Optional number of independent plan and simulate replicates to summarize. Default: a single run."`
}

// ReplayInput selects a historical date to replay.
type ReplayInput struct {
	Date       string   `json:"date" jsonschema:"Historical case date (YYYY-MM-DD)"`
	CutoffDays *float64 `json:"cutoff_days,omitempty" jsonschema:"Days before midnight of the case date at which the plan is frozen. Default: 0.2916666."`
	Seed       int64    `json:"seed,omitempty" jsonschema:"Optional run seed."`
	Rooms      []string `json:"rooms,omitempty" jsonschema:"Optional rooms to draw in the gantt chart."`
	Report     bool     `json:"write_report,omitempty" jsonschema:"If true, writes an HTML report to the reports folder."`
}

func planTool() *sdk.Tool {
	return &sdk.Tool{
		Name: "plan_schedule",
		Description: "Synthesize a plausible operating-room schedule for a representative day (month + weekday) from the historical case log. " +
			"Returns one row per planned case (room, case number, service line, scheduled start/end, cancelled flag) and a Mermaid gantt chart.\n\n" +
			"The schedule is a statistical draw, not a forecast of a real day. Use 'simulate_schedule' to see how it would play out.",
		InputSchema: mustSchema[PlanInput](),
	}
}

func simulateTool() *sdk.Tool {
	return &sdk.Tool{
		Name: "simulate_schedule",
		Description: "Synthesize a schedule for a representative day and simulate its realized timeline (actual in-room/out-room times) from historical start offsets, duration deltas and turnovers.\n\n" +
			"With 'replicates' > 1, runs independent replicates and reports P50/P85/P95 of end-of-day overrun instead of a single day's tables.",
		InputSchema: mustSchema[SimulateInput](),
	}
}

func replayTool() *sdk.Tool {
	return &sdk.Tool{
		Name: "replay_historical_day",
		Description: "Take the schedule that was actually planned for a historical date (cases booked by the cutoff) and simulate how it could have played out, " +
			"using the outcome history of that date's month and weekday.",
		InputSchema: mustSchema[ReplayInput](),
	}
}

// mustSchema infers the input schema of T and pins month and weekday to their labels.
func mustSchema[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("input schema: %v", err))
	}
	if p, ok := schema.Properties["month"]; ok {
		p.Enum = enumOf(schedule.MonthLabels())
	}
	if p, ok := schema.Properties["weekday"]; ok {
		p.Enum = enumOf(schedule.WeekdayLabels())
	}
	if p, ok := schema.Properties["cutoff_days"]; ok {
		p.Minimum = ptr(0.0)
		p.Maximum = ptr(30.0)
	}
	return schema
}

func enumOf(labels []string) []any {
	out := make([]any, len(labels))
	for i, l := range labels {
		out[i] = l
	}
	return out
}

func ptr[T any](v T) *T { return &v }
