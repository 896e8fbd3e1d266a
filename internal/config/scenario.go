package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"orsim/internal/schedule"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

const (
	scenarioFileEnv = "ORSIM_SCENARIO"
	envPrefix       = "ORSIM_"

	// DefaultCutoffDays freezes the plan at 17:00 the day before.
	DefaultCutoffDays = 0.2916666
)

// listKeys are scenario keys read from the environment as comma separated lists.
var listKeys = map[string]bool{"ignore_rooms": true}

// DefaultIgnoredRooms are bedside, procedure, add-on and standby locations that
// never carry a regular surgical schedule.
var DefaultIgnoredRooms = []string{
	"At Bedside", "MOR CATH 01", "MPR 01", "SPR 04", "CHPR 02", "CHPR 01", "MOR Add On 2",
	"CHOR Add On 1", "MOR Standby 1", "MOR Standby 2", "CHOR Standby 1", "CHPR Add On 1",
	"MOR Add On 1",
}

// Scenario selects the representative day and run parameters.
type Scenario struct {
	Month   string `koanf:"month"`
	Weekday string `koanf:"weekday"`
	// CutoffDays is how many days before midnight the plan is frozen.
	CutoffDays  float64  `koanf:"cutoff_days"`
	Seed        int64    `koanf:"seed"`
	AnchorYear  int      `koanf:"anchor_year"`
	Replicates  int      `koanf:"replicates"`
	Workers     int      `koanf:"workers"`
	IgnoreRooms []string `koanf:"ignore_rooms"`
}

// DefaultScenario returns the built-in defaults.
func DefaultScenario() Scenario {
	return Scenario{
		Month:       "Jan",
		Weekday:     "Mon",
		CutoffDays:  DefaultCutoffDays,
		AnchorYear:  2020,
		Replicates:  10,
		Workers:     runtime.NumCPU(),
		IgnoreRooms: append([]string(nil), DefaultIgnoredRooms...),
	}
}

// LoadScenario builds a Scenario by layering defaults, an optional YAML file
// named by ORSIM_SCENARIO, and ORSIM_* environment variables (low -> high).
func LoadScenario() (*Scenario, error) {
	k := koanf.New(".")

	if path := os.Getenv(scenarioFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// ORSIM_CUTOFF_DAYS -> cutoff_days. Empty variables count as unset and
	// list keys are comma separated.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		if listKeys[key] {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal onto a zero value and fill the gaps afterwards, so lists from the
	// file or env replace the defaults instead of merging into them. A cutoff of
	// zero is a valid setting (midnight), so its default is decided by presence.
	var s Scenario
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if !k.Exists("cutoff_days") {
		s.CutoffDays = DefaultCutoffDays
	}
	s.fillDefaults()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) fillDefaults() {
	def := DefaultScenario()
	if s.Month == "" {
		s.Month = def.Month
	}
	if s.Weekday == "" {
		s.Weekday = def.Weekday
	}
	if s.AnchorYear == 0 {
		s.AnchorYear = def.AnchorYear
	}
	if s.Replicates == 0 {
		s.Replicates = def.Replicates
	}
	if s.Workers == 0 {
		s.Workers = def.Workers
	}
	if s.IgnoreRooms == nil {
		s.IgnoreRooms = def.IgnoreRooms
	}

	rooms := s.IgnoreRooms[:0]
	for _, r := range s.IgnoreRooms {
		if r = strings.TrimSpace(r); r != "" {
			rooms = append(rooms, r)
		}
	}
	s.IgnoreRooms = rooms
}

// Validate checks labels and ranges.
func (s *Scenario) Validate() error {
	if _, err := schedule.ParseMonth(s.Month); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := schedule.ParseWeekday(s.Weekday); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if s.CutoffDays < 0 || s.CutoffDays > 30 {
		return fmt.Errorf("%w: cutoff_days %v out of range [0, 30]", ErrInvalidConfig, s.CutoffDays)
	}
	if s.Replicates < 0 {
		return fmt.Errorf("%w: replicates must not be negative", ErrInvalidConfig)
	}
	if s.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Selection resolves the labels into a schedule selection.
func (s *Scenario) Selection() (schedule.Selection, error) {
	if err := s.Validate(); err != nil {
		return schedule.Selection{}, err
	}
	month, _ := schedule.ParseMonth(s.Month)
	weekday, _ := schedule.ParseWeekday(s.Weekday)
	return schedule.Selection{
		Month:   month,
		Weekday: weekday,
		Cutoff:  schedule.CutoffFromDays(s.CutoffDays),
	}, nil
}
