package caselog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store provides thread-safe, chronological storage for CaseEvents.
type Store struct {
	mu     sync.RWMutex
	events []CaseEvent
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds events, dropping duplicates and keeping the log ordered by scheduled start.
func (s *Store) Append(events []CaseEvent) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.events))
	for _, e := range s.events {
		existing[e.identity()] = true
	}

	added := 0
	for _, e := range events {
		id := e.identity()
		if existing[id] {
			continue
		}
		existing[id] = true
		s.events = append(s.events, e)
		added++
	}

	if added == 0 {
		return 0
	}

	sort.SliceStable(s.events, func(i, j int) bool {
		if !s.events[i].ScheduledStart.Equal(s.events[j].ScheduledStart) {
			return s.events[i].ScheduledStart.Before(s.events[j].ScheduledStart)
		}
		return s.events[i].ScheduledRoom < s.events[j].ScheduledRoom
	})
	return added
}

// Load reads events from a JSONL file. Undecodable lines are skipped with a
// warning; events violating the dataset invariants abort the load.
func (s *Store) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open case log: %w", err)
	}
	defer file.Close()

	var events []CaseEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e CaseEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Warn().Err(err).Str("path", path).Int("line", line).Msg("Skipping invalid JSON line in case log")
			continue
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading case log: %w", err)
	}

	added := s.Append(events)
	log.Info().Str("path", path).Int("read", len(events)).Int("added", added).Msg("Loaded case events")
	return nil
}

// Save writes all events to a JSONL file via a temp file and atomic rename.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	data := append([]CaseEvent(nil), s.events...)
	s.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create case log directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp case log: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	for _, e := range data {
		if err := encoder.Encode(e); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode case %s: %w", e.CaseID, err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename case log: %w", err)
	}

	log.Info().Str("path", path).Int("count", len(data)).Msg("Case log saved")
	return nil
}

// Count returns the number of stored events.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events returns a copy of all stored events.
func (s *Store) Events() []CaseEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CaseEvent(nil), s.events...)
}

// Span returns the earliest and latest scheduled start in the store.
func (s *Store) Span() (time.Time, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.events[0].ScheduledStart, s.events[len(s.events)-1].ScheduledStart
}

// History snapshots the store into an immutable query view.
func (s *Store) History() *History {
	return NewHistory(s.Events())
}

// identity distinguishes a case from a re-booking of the same case number.
func (e CaseEvent) identity() string {
	return fmt.Sprintf("%s|%s|%d|%t",
		e.CaseID,
		e.ScheduledRoom,
		e.ScheduledStart.UnixMicro(),
		e.Cancelled,
	)
}
