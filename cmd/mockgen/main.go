package main

import (
	"flag"
	"fmt"
	"os"

	"orsim/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	out := flag.String("out", "./.cache/cases.jsonl", "Output case log file")
	year := flag.Int("year", 2019, "Calendar year to generate")
	rooms := flag.Int("rooms", 8, "Number of operating rooms")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Year:     *year,
		Rooms:    *rooms,
		Seed:     *seed,
	}

	fmt.Printf("Generating scenario '%s' (Year: %d, Rooms: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Year, cfg.Rooms, cfg.Seed, *out)

	events := engine.Generate(cfg)
	if err := engine.Save(*out, events); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d cases.\n", len(events))
}
