package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"orsim/internal/schedule"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// output is the destination and encoding shared by the table commands.
type output struct {
	format string
	path   string
}

func (o output) validate() error {
	if o.format != formatJSON && o.format != formatCSV {
		return fmt.Errorf("unknown format %q (want json or csv)", o.format)
	}
	return nil
}

// write opens the destination (stdout when no path is set) and hands it to fn.
func (o output) write(fn func(w io.Writer) error) error {
	if o.path == "" {
		return fn(os.Stdout)
	}
	if err := os.MkdirAll(filepath.Dir(o.path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(o.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("path", o.path).Msg("Output written")
	return nil
}

func (o output) planned(rows []schedule.PlannedCase) error {
	return o.write(func(w io.Writer) error {
		if o.format == formatCSV {
			return schedule.WritePlannedCSV(w, rows)
		}
		return schedule.WriteJSON(w, rows)
	})
}

func (o output) simulated(rows []schedule.SimulatedCase) error {
	return o.write(func(w io.Writer) error {
		if o.format == formatCSV {
			return schedule.WriteSimulatedCSV(w, rows)
		}
		return schedule.WriteJSON(w, rows)
	})
}

// document writes v as JSON regardless of the table format.
func (o output) document(v any) error {
	return o.write(func(w io.Writer) error {
		return schedule.WriteJSON(w, v)
	})
}
