package visuals

import (
	"fmt"
	"slices"
	"strings"

	"orsim/internal/schedule"
)

// lineColors maps every known service line to its chart colour.
var lineColors = map[schedule.ServiceLine]string{
	schedule.Urology:              "green",
	schedule.Ortho:                "blue",
	schedule.Otolaryngology:       "orange",
	schedule.TraumaSurgery:        "red",
	schedule.Neurosurgery:         "purple",
	schedule.PlasticSurgery:       "brown",
	schedule.VascularSurgery:      "pink",
	schedule.OBGyn:                "gray",
	schedule.OphthalmologySurgery: "olive",
	schedule.MISBariatricSurgery:  "cyan",
	schedule.GSSSOHPB:             "goldenrod",
	schedule.GSSSOGSO:             "magenta",
	schedule.PediatricSurgery:     "teal",
	schedule.ColorectalSurgery:    "black",
	schedule.CTSurgery:            "tomato",
	schedule.ThoracicSurgery:      "sienna",
	schedule.GIAdult:              "darkgoldenrod",
	schedule.PedsCTSurgery:        "forestgreen",
	schedule.TransplantSurgery:    "darkseagreen",
	schedule.DentalSurgery:        "aquamarine",
	schedule.MiscSurgery:          "darkslategray",
	schedule.GiftOfLife:           "deepskyblue",
	schedule.Pain:                 "dodgerblue",
	schedule.PulmonaryAdult:       "rebeccapurple",
	schedule.GIPeds:               "indigo",
	schedule.PulmonaryPeds:        "hotpink",
}

// Color returns the chart colour of a known service line.
func Color(line schedule.ServiceLine) (string, bool) {
	c, ok := lineColors[line]
	return c, ok
}

// ClassName is the CSS class used for bars of a service line.
func ClassName(line schedule.ServiceLine) string {
	return "sl_" + slug(string(line))
}

// ValidateServiceLines fails with every label outside the known vocabulary.
func ValidateServiceLines(lines []schedule.ServiceLine) error {
	var unknown []string
	for _, l := range lines {
		if !l.Known() && !slices.Contains(unknown, string(l)) {
			unknown = append(unknown, string(l))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", schedule.ErrUnknownServiceLine, strings.Join(unknown, ", "))
}

// ValidatePlanned checks the service lines of a planned table.
func ValidatePlanned(rows []schedule.PlannedCase) error {
	lines := make([]schedule.ServiceLine, len(rows))
	for i, r := range rows {
		lines[i] = r.ServiceLine
	}
	return ValidateServiceLines(lines)
}

// ValidateSimulated checks the service lines of a simulated table.
func ValidateSimulated(rows []schedule.SimulatedCase) error {
	lines := make([]schedule.ServiceLine, len(rows))
	for i, r := range rows {
		lines[i] = r.ServiceLine
	}
	return ValidateServiceLines(lines)
}

// legendEntry is one row of the report legend.
type legendEntry struct {
	Label string
	Class string
	Color string
}

// legend lists the service lines present in rows, in vocabulary order.
func legend(used map[schedule.ServiceLine]bool) []legendEntry {
	var out []legendEntry
	for _, l := range schedule.KnownServiceLines {
		if used[l] {
			out = append(out, legendEntry{Label: string(l), Class: ClassName(l), Color: lineColors[l]})
		}
	}
	return out
}
