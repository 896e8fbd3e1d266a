package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownServiceLine = errors.New("unknown service line")
	ErrUnknownMonth       = errors.New("unknown month label")
	ErrUnknownWeekday     = errors.New("unknown weekday label")
)

// ServiceLine is the surgical specialty performing a case.
// The engine treats it as an opaque label; only the presentation layer requires
// it to be one of the known values.
type ServiceLine string

const (
	Urology              ServiceLine = "Urology"
	Ortho                ServiceLine = "Ortho"
	Otolaryngology       ServiceLine = "Otolaryngology"
	TraumaSurgery        ServiceLine = "Trauma Surgery"
	Neurosurgery         ServiceLine = "Neurosurgery"
	PlasticSurgery       ServiceLine = "Plastic Surgery"
	VascularSurgery      ServiceLine = "Vascular Surgery"
	OBGyn                ServiceLine = "OB/Gyn"
	OphthalmologySurgery ServiceLine = "Ophthalmology Surgery"
	MISBariatricSurgery  ServiceLine = "MIS/Bariatric Surgery"
	GSSSOHPB             ServiceLine = "GSSSO - HPB"
	GSSSOGSO             ServiceLine = "GSSSO - GSO"
	PediatricSurgery     ServiceLine = "Pediatric Surgery"
	ColorectalSurgery    ServiceLine = "Colorectal Surgery"
	CTSurgery            ServiceLine = "CT Surgery"
	ThoracicSurgery      ServiceLine = "Thoracic Surgery"
	GIAdult              ServiceLine = "GI-Adult"
	PedsCTSurgery        ServiceLine = "PEDS CT Surgery"
	TransplantSurgery    ServiceLine = "Transplant Surgery"
	DentalSurgery        ServiceLine = "Dental Surgery"
	MiscSurgery          ServiceLine = "Miscellaneous Surgery"
	GiftOfLife           ServiceLine = "Gift of Life"
	Pain                 ServiceLine = "Pain"
	PulmonaryAdult       ServiceLine = "Pulmonary - Adult"
	GIPeds               ServiceLine = "GI-Peds"
	PulmonaryPeds        ServiceLine = "Pulmonary - Peds"
)

// KnownServiceLines lists the vocabulary accepted by the renderer, in legend order.
var KnownServiceLines = []ServiceLine{
	Urology, Ortho, Otolaryngology, TraumaSurgery, Neurosurgery, PlasticSurgery,
	VascularSurgery, OBGyn, OphthalmologySurgery, MISBariatricSurgery, GSSSOHPB,
	GSSSOGSO, PediatricSurgery, ColorectalSurgery, CTSurgery, ThoracicSurgery,
	GIAdult, PedsCTSurgery, TransplantSurgery, DentalSurgery, MiscSurgery,
	GiftOfLife, Pain, PulmonaryAdult, GIPeds, PulmonaryPeds,
}

var knownSet = func() map[ServiceLine]bool {
	m := make(map[ServiceLine]bool, len(KnownServiceLines))
	for _, s := range KnownServiceLines {
		m[s] = true
	}
	return m
}()

// Known reports whether s belongs to the known vocabulary.
func (s ServiceLine) Known() bool {
	return knownSet[s]
}

// ParseServiceLine returns the matching known service line.
func ParseServiceLine(label string) (ServiceLine, error) {
	s := ServiceLine(strings.TrimSpace(label))
	if !s.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownServiceLine, label)
	}
	return s, nil
}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ParseMonth accepts a three-letter month abbreviation (case-insensitive).
func ParseMonth(label string) (time.Month, error) {
	for i, m := range monthLabels {
		if strings.EqualFold(m, strings.TrimSpace(label)) {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, label)
}

// ParseWeekday accepts a three-letter weekday abbreviation (case-insensitive).
func ParseWeekday(label string) (time.Weekday, error) {
	for i, d := range weekdayLabels {
		if strings.EqualFold(d, strings.TrimSpace(label)) {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, label)
}

// MonthLabel renders m in the three-letter form used by the dataset.
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthLabels[m-1]
}

// WeekdayLabel renders d in the three-letter form used by the dataset.
func WeekdayLabel(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayLabels[d]
}

// MonthLabels returns all accepted month labels.
func MonthLabels() []string { return append([]string(nil), monthLabels...) }

// WeekdayLabels returns all accepted weekday labels.
func WeekdayLabels() []string { return append([]string(nil), weekdayLabels...) }
