package visuals

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"orsim/internal/schedule"
	"orsim/internal/simulation"
)

const ganttTimeLayout = "2006-01-02 15:04"

// Fence wraps a diagram in a markdown mermaid block.
func Fence(diagram string) string {
	if diagram == "" {
		return ""
	}
	return "```mermaid\n" + diagram + "```"
}

// GeneratePlannedGantt renders the planned schedule as a Mermaid gantt, one
// section per room. Only rooms in show are drawn unless show is empty.
func GeneratePlannedGantt(rows []schedule.PlannedCase, show []string) (string, error) {
	if err := ValidatePlanned(rows); err != nil {
		return "", err
	}
	bars := make([]bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, bar{
			room: r.Room, line: r.ServiceLine, number: r.CaseNumber,
			start: r.ScheduledStart, end: r.ScheduledEnd, cancelled: r.Cancelled,
		})
	}
	return gantt("Planned OR schedule", bars, show), nil
}

// GenerateSimulatedGantt renders realized cases by the room actually used.
// Cancelled cases have no timeline and are left out.
func GenerateSimulatedGantt(rows []schedule.SimulatedCase, show []string) (string, error) {
	if err := ValidateSimulated(rows); err != nil {
		return "", err
	}
	bars := make([]bar, 0, len(rows))
	for _, r := range rows {
		if r.InRoom == nil || r.OutRoom == nil {
			continue
		}
		bars = append(bars, bar{
			room: r.ActualRoom, line: r.ServiceLine, number: r.CaseNumber,
			start: *r.InRoom, end: *r.OutRoom,
		})
	}
	return gantt("Simulated OR schedule", bars, show), nil
}

type bar struct {
	room       string
	line       schedule.ServiceLine
	number     int
	start, end time.Time
	cancelled  bool
}

func gantt(title string, bars []bar, show []string) string {
	allowed := make(map[string]bool, len(show))
	for _, r := range show {
		allowed[r] = true
	}

	var rooms []string
	byRoom := make(map[string][]bar)
	for _, b := range bars {
		if len(allowed) > 0 && !allowed[b.room] {
			continue
		}
		if _, ok := byRoom[b.room]; !ok {
			rooms = append(rooms, b.room)
		}
		byRoom[b.room] = append(byRoom[b.room], b)
	}
	if len(rooms) == 0 {
		return ""
	}
	slices.Sort(rooms)

	var sb strings.Builder
	sb.WriteString("gantt\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", title))
	sb.WriteString("    dateFormat YYYY-MM-DD HH:mm\n")
	sb.WriteString("    axisFormat %H:%M\n")
	for _, room := range rooms {
		sb.WriteString(fmt.Sprintf("    section %s\n", sanitize(room)))
		for _, b := range byRoom[room] {
			tag := ""
			if b.cancelled {
				tag = "crit, "
			}
			sb.WriteString(fmt.Sprintf("    %s case %d :%s%s, %s, %s\n",
				sanitize(string(b.line)), b.number, tag, TaskID(b.line, room, b.number),
				b.start.Format(ganttTimeLayout), b.end.Format(ganttTimeLayout)))
		}
	}
	return sb.String()
}

// TaskID builds a gantt task id prefixed by the service line's CSS class so the
// report can colour bars by service line.
func TaskID(line schedule.ServiceLine, room string, number int) string {
	return fmt.Sprintf("%s_%s_%d", ClassName(line), slug(room), number)
}

// GenerateOverrunChart creates a Mermaid bar chart of end-of-day overrun per room.
func GenerateOverrunChart(rooms []simulation.RoomSummary) string {
	if len(rooms) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0.0
	minVal := 0.0
	for _, r := range rooms {
		labels = append(labels, fmt.Sprintf("\"%s\"", sanitize(r.Room)))
		values = append(values, fmt.Sprintf("%.0f", r.Overrun))
		maxVal = math.Max(maxVal, r.Overrun)
		minVal = math.Min(minVal, r.Overrun)
	}

	var sb strings.Builder
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"End-of-day overrun (minutes)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Minutes\" %d --> %d\n",
		int(math.Floor(minVal*1.1)), int(math.Ceil(math.Max(1, maxVal*1.2)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	return sb.String()
}

// sanitize strips characters the gantt grammar treats as separators.
func sanitize(s string) string {
	return strings.NewReplacer(":", " ", "#", " ", ";", " ", "\"", "'").Replace(s)
}

func slug(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
