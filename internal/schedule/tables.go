package schedule

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// SortPlanned orders rows by room, then case number.
func SortPlanned(rows []PlannedCase) {
	slices.SortStableFunc(rows, func(a, b PlannedCase) int {
		if c := cmp.Compare(a.Room, b.Room); c != 0 {
			return c
		}
		return cmp.Compare(a.CaseNumber, b.CaseNumber)
	})
}

// SortSimulated orders rows by room, then case number.
func SortSimulated(rows []SimulatedCase) {
	slices.SortStableFunc(rows, func(a, b SimulatedCase) int {
		if c := cmp.Compare(a.Room, b.Room); c != 0 {
			return c
		}
		return cmp.Compare(a.CaseNumber, b.CaseNumber)
	})
}

// GroupByRoom splits a plan into per-room slices, preserving row order, and
// returns the room names in first-seen order.
func GroupByRoom(rows []PlannedCase) ([]string, map[string][]PlannedCase) {
	var rooms []string
	groups := make(map[string][]PlannedCase)
	for _, r := range rows {
		if _, ok := groups[r.Room]; !ok {
			rooms = append(rooms, r.Room)
		}
		groups[r.Room] = append(groups[r.Room], r)
	}
	return rooms, groups
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ReadPlannedFile loads a planned table previously written with WriteJSON.
func ReadPlannedFile(path string) ([]PlannedCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open planned schedule: %w", err)
	}
	defer f.Close()

	var rows []PlannedCase
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode planned schedule: %w", err)
	}
	return rows, nil
}

// ReadSimulatedFile loads a simulated table previously written with WriteJSON.
func ReadSimulatedFile(path string) ([]SimulatedCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open simulated schedule: %w", err)
	}
	defer f.Close()

	var rows []SimulatedCase
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode simulated schedule: %w", err)
	}
	return rows, nil
}

var plannedHeader = []string{"CASE_NBR", "SCH_START", "SCH_END", "SCH_OR", "Service_Line", "CANCELLED"}

// WritePlannedCSV writes the planned table with the column names the renderer expects.
func WritePlannedCSV(w io.Writer, rows []PlannedCase) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(plannedHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(plannedRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSimulatedCSV writes the simulated table; cancelled cases have empty actual columns.
func WriteSimulatedCSV(w io.Writer, rows []SimulatedCase) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), plannedHeader...), "IN_ROOM_TIME", "OUT_ROOM_TIME", "OR_USED")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append(plannedRecord(r.PlannedCase), formatOptional(r.InRoom), formatOptional(r.OutRoom), r.ActualRoom)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func plannedRecord(r PlannedCase) []string {
	cancelled := "0"
	if r.Cancelled {
		cancelled = "1"
	}
	return []string{
		strconv.Itoa(r.CaseNumber),
		r.ScheduledStart.Format(timeLayout),
		r.ScheduledEnd.Format(timeLayout),
		r.Room,
		string(r.ServiceLine),
		cancelled,
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
