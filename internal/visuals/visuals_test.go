package visuals

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"orsim/internal/schedule"
	"orsim/internal/simulation"
)

func at(h, m int) time.Time {
	return time.Date(2020, time.April, 7, h, m, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func samplePlanned() []schedule.PlannedCase {
	return []schedule.PlannedCase{
		{CaseNumber: 1, Room: "MOR 02", ServiceLine: schedule.Ortho, ScheduledStart: at(7, 30), ScheduledEnd: at(9, 0)},
		{CaseNumber: 1, Room: "MOR 01", ServiceLine: schedule.Urology, ScheduledStart: at(7, 30), ScheduledEnd: at(8, 30)},
		{CaseNumber: 2, Room: "MOR 01", ServiceLine: schedule.OBGyn, ScheduledStart: at(9, 0), ScheduledEnd: at(10, 0), Cancelled: true},
	}
}

func sampleSimulated() []schedule.SimulatedCase {
	p := samplePlanned()
	return []schedule.SimulatedCase{
		{PlannedCase: p[0], InRoom: ptr(at(7, 40)), OutRoom: ptr(at(9, 20)), ActualRoom: "MOR 02"},
		{PlannedCase: p[1], InRoom: ptr(at(7, 35)), OutRoom: ptr(at(8, 50)), ActualRoom: "MOR 01"},
		{PlannedCase: p[2]},
	}
}

func TestGeneratePlannedGantt(t *testing.T) {
	g, err := GeneratePlannedGantt(samplePlanned(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := strings.Index(g, "section MOR 01")
	second := strings.Index(g, "section MOR 02")
	if first < 0 || second < 0 || first > second {
		t.Errorf("expected sorted room sections, got:\n%s", g)
	}
	if !strings.Contains(g, ":crit, "+TaskID(schedule.OBGyn, "MOR 01", 2)) {
		t.Errorf("cancelled case should be tagged crit:\n%s", g)
	}
	if !strings.Contains(g, "2020-04-07 07:30, 2020-04-07 08:30") {
		t.Errorf("missing scheduled times:\n%s", g)
	}
}

func TestGeneratePlannedGantt_RoomFilter(t *testing.T) {
	g, err := GeneratePlannedGantt(samplePlanned(), []string{"MOR 02"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(g, "MOR 01") {
		t.Errorf("filtered room still drawn:\n%s", g)
	}

	g, err = GeneratePlannedGantt(samplePlanned(), []string{"MOR 99"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != "" {
		t.Errorf("expected empty diagram, got:\n%s", g)
	}
}

func TestGenerateSimulatedGantt_SkipsCancelled(t *testing.T) {
	g, err := GenerateSimulatedGantt(sampleSimulated(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(g, TaskID(schedule.OBGyn, "MOR 01", 2)) {
		t.Errorf("cancelled case drawn in simulated chart:\n%s", g)
	}
	if !strings.Contains(g, "2020-04-07 07:40, 2020-04-07 09:20") {
		t.Errorf("missing realized times:\n%s", g)
	}
}

func TestValidateServiceLines(t *testing.T) {
	rows := samplePlanned()
	rows[0].ServiceLine = "Podiatry"
	rows[1].ServiceLine = "Podiatry"

	_, err := GeneratePlannedGantt(rows, nil)
	if !errors.Is(err, schedule.ErrUnknownServiceLine) {
		t.Fatalf("expected ErrUnknownServiceLine, got %v", err)
	}
	if strings.Count(err.Error(), "Podiatry") != 1 {
		t.Errorf("unknown labels should be listed once: %v", err)
	}
	if err := ValidateServiceLines(schedule.KnownServiceLines); err != nil {
		t.Errorf("known vocabulary rejected: %v", err)
	}
}

func TestLineColorsCoverVocabulary(t *testing.T) {
	for _, l := range schedule.KnownServiceLines {
		if _, ok := Color(l); !ok {
			t.Errorf("no colour for %q", l)
		}
	}
	if got := ClassName(schedule.OBGyn); got != "sl_ob_gyn" {
		t.Errorf("ClassName = %q", got)
	}
}

func TestGenerateOverrunChart(t *testing.T) {
	if GenerateOverrunChart(nil) != "" {
		t.Error("expected empty chart for no rooms")
	}
	chart := GenerateOverrunChart([]simulation.RoomSummary{
		{Room: "MOR 01", Overrun: 20},
		{Room: "MOR 02", Overrun: -10},
	})
	if !strings.Contains(chart, `x-axis ["MOR 01", "MOR 02"]`) {
		t.Errorf("unexpected x-axis:\n%s", chart)
	}
	if !strings.Contains(chart, "bar [20, -10]") {
		t.Errorf("unexpected bars:\n%s", chart)
	}
	if !strings.Contains(chart, "y-axis \"Minutes\" -") {
		t.Errorf("negative overrun should extend the y range:\n%s", chart)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "day.html")
	err := WriteReport(path, Report{
		Title:     "April Tuesday",
		Planned:   samplePlanned(),
		Simulated: sampleSimulated(),
	})
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	html := string(data)
	for _, want := range []string{
		"<title>April Tuesday</title>",
		`<pre class="mermaid">gantt`,
		"Planned OR schedule",
		"Simulated OR schedule",
		"xychart-beta",
		"sl_urology_",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteReport_UnknownLine(t *testing.T) {
	rows := samplePlanned()
	rows[0].ServiceLine = "Podiatry"
	path := filepath.Join(t.TempDir(), "bad.html")

	if err := WriteReport(path, Report{Planned: rows}); !errors.Is(err, schedule.ErrUnknownServiceLine) {
		t.Fatalf("expected ErrUnknownServiceLine, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("report should not be written for unknown lines")
	}
}
